package sqlxrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/user"
)

const userColumns = `id, external_id, name, email, is_active, roles, created_at, updated_at, last_login`

var userOrderings = map[string]string{
	"name":       "name",
	"email":      "email",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRow struct {
	user.User
	Roles pq.StringArray `db:"roles"`
}

func (r userRow) user() user.User {
	usr := r.User
	usr.Roles = []string(r.Roles)
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	return usr
}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) get(ctx context.Context, cond string, arg interface{}) (user.User, error) {
	var row userRow
	q := `SELECT ` + userColumns + ` FROM "user" WHERE ` + cond
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.user(), nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	q := `INSERT INTO "user" (` + userColumns + `)
		VALUES (:id, :external_id, :name, :email, :is_active, :roles, :created_at, :updated_at, :last_login)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, userRow{User: usr, Roles: usr.Roles}); err != nil {
		if isUniqueViolation(err, "user_external_id_key") {
			return user.User{}, user.ErrExternalIDTaken
		}
		return user.User{}, dbErr(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var where whereClause
	if filter != nil {
		// users with Name or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			where.add("name ILIKE ? OR email ILIKE ?", val, val)
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			conds := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				conds = append(conds, "EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role ILIKE ?)")
				where.args = append(where.args, role+"%")
			}
			where.conds = append(where.conds, strings.Join(conds, " OR "))
		}
		if filter.IsActive != nil {
			where.add("is_active = ?", *filter.IsActive)
		}
	}

	q := where.query(
		`SELECT `+userColumns+` FROM "user"`,
		` ORDER BY `+core.OrderByClause(ordering, userOrderings, "created_at DESC"),
	)
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, where.args...); err != nil {
		return nil, dbErr(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if !isValidID(id) {
		return user.User{}, user.ErrNotFound
	}
	return repo.get(ctx, "id = $1", id)
}

func (repo *userRepository) GetUserByExternalID(ctx context.Context, externalID string) (user.User, error) {
	return repo.get(ctx, "external_id = $1", externalID)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.get(ctx, "email = $1", email)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE "user" SET name = :name, email = :email, is_active = :is_active, roles = :roles,
		updated_at = :updated_at, last_login = :last_login WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, userRow{User: usr, Roles: usr.Roles})
	if err != nil {
		return user.User{}, dbErr(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string) (int, error) {
	valid := validIDs(ids...)
	if len(valid) == 0 {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1)`, pq.Array(valid))
	if err != nil {
		return 0, dbErr(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	return int(cnt), dbErr(err, "counting deleted users")
}
