package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/examhall/core"
)

// Roles
const (
	// Admin
	RoleAdmin       = "admin:"
	RoleAdminOwner  = "admin:owner"
	RoleAdminEditor = "admin:editor"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner, RoleAdminEditor}
	StudentRoles = []string{RoleStudent}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner:  30,
		RoleAdminEditor: 25,
		RoleAdmin:       21,

		// Students: 10 - 1
		RoleStudent: 1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Editor", Value: RoleAdminEditor},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 4)
	all = append(all, AdminRoles...)
	all = append(all, StudentRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID         string    `json:"id" db:"id"`
	ExternalID string    `json:"-" db:"external_id"` // identity provider subject
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	Roles      []string  `json:"roles" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin  time.Time `json:"last_login" db:"last_login"` // UTC
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) HasAnyRole(roles ...string) bool {
	for _, want := range roles {
		for _, role := range u.Roles {
			if role == want {
				return true
			}
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

// CanEditContent tells whether the User can manage the exam catalog.
func (u *User) CanEditContent() bool {
	return u.HasAnyRole(RoleAdminEditor, RoleAdminOwner)
}

func (u *User) IsStudent() bool {
	return u.RoleStartsWith(RoleStudent)
}

// UpdateRoles defines the roles to set on an existing User.
type UpdateRoles struct {
	Roles []string `json:"roles" validate:"allroles"`
}

func (ur *UpdateRoles) Validate(validate *validator.Validate) error {
	if ur.Roles == nil {
		ur.Roles = []string{}
	}
	return validate.Struct(ur)
}

type SetActive struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (sa SetActive) Validate(validate *validator.Validate) error { return validate.Struct(sa) }

type QueryFilter struct {
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	IsActive *bool    `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
