package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/user"
)

var userComparators = map[string]comparator[user.User]{
	"name":       func(a, b user.User) int { return cmpString(a.Name, b.Name) },
	"email":      func(a, b user.User) int { return cmpString(a.Email, b.Email) },
	"created_at": func(a, b user.User) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"last_login": func(a, b user.User) int { return cmpTime(a.LastLogin, b.LastLogin) },
}

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user}
}

func copyUser(usr user.User) user.User {
	usr.Roles = append([]string{}, usr.Roles...)
	return usr
}

func (repo *userRepository) find(match func(u *user.User) bool) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.table {
		if match(usr) {
			return copyUser(*usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, u := range repo.db.table {
		if u.ExternalID == usr.ExternalID {
			return user.User{}, user.ErrExternalIDTaken
		}
	}
	usr.ID = uuid.New().String()
	usr = copyUser(usr)
	repo.db.table[usr.ID] = &usr
	return copyUser(usr), nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(repo.db.table))
	for _, usr := range repo.db.table {
		if filter != nil && !matchUser(usr, filter) {
			continue
		}
		users = append(users, copyUser(*usr))
	}
	orderBy(users, ordering, userComparators, core.DBOrdering{Field: "created_at"})
	return users, nil
}

func matchUser(usr *user.User, filter *user.QueryFilter) bool {
	// users with Name or Email matching the search keyword
	if filter.Search != "" && !containsFold(usr.Name, filter.Search) && !containsFold(usr.Email, filter.Search) {
		return false
	}
	// users with any role that starts with any of the provided roles
	if len(filter.Roles) > 0 {
		var ok bool
		for _, prefix := range filter.Roles {
			if usr.RoleStartsWith(strings.ToLower(prefix)) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	return true
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	return repo.find(func(u *user.User) bool { return u.ID == id })
}

func (repo *userRepository) GetUserByExternalID(_ context.Context, externalID string) (user.User, error) {
	return repo.find(func(u *user.User) bool { return u.ExternalID == externalID })
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	return repo.find(func(u *user.User) bool { return u.Email == email })
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	usr = copyUser(usr)
	repo.db.table[usr.ID] = &usr
	return copyUser(usr), nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}
