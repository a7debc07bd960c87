package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/examhall/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound          = core.NewNotFoundError("user not found")
	ErrNoPermsToSetRoles = core.NewValidationError(nil, core.FieldError{Field: "roles", Error: "not enough rights to set these roles"})
	ErrSelfDestruct      = core.NewForbiddenError("you cannot delete or deactivate yourself")
	// ErrExternalIDTaken is returned by Repository.CreateUser when a user with the same ExternalID exists.
	ErrExternalIDTaken = errors.New("external ID already taken")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByExternalID(ctx context.Context, externalID string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids []string) (int, error)
	}

	ServiceInterface interface {
		Provision(ctx context.Context, ident core.Identity) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		UpdateRoles(ctx context.Context, actor User, id string, roles []string) (User, error)
		SetActive(ctx context.Context, actor User, id string, active bool) (User, error)
		Delete(ctx context.Context, actor User, ids ...string) (int, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Provision returns the User matching the authenticated identity, creating it on first login.
// Name & Email are kept in sync with the identity provider.
func (svc *Service) Provision(ctx context.Context, ident core.Identity) (User, error) {
	now := NowFunc().UTC()
	email := core.CleanString(ident.Email, true /* lower */)
	name := core.CleanString(ident.Name)

	usr, err := svc.repo.GetUserByExternalID(ctx, ident.Subject)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return User{}, errors.Wrap(err, "finding user by external ID")
		}
		created, err := svc.repo.CreateUser(ctx, User{
			ExternalID: ident.Subject,
			Name:       name,
			Email:      email,
			IsActive:   true,
			Roles:      []string{RoleStudent},
			CreatedAt:  now,
			UpdatedAt:  now,
			LastLogin:  now,
		})
		if err == nil {
			svc.logger.Info("user provisioned", map[string]interface{}{"id": created.ID, "email": created.Email})
			return created, nil
		}
		if errors.Cause(err) != ErrExternalIDTaken {
			return User{}, errors.Wrap(err, "creating user")
		}
		// provisioned by a concurrent login
		if usr, err = svc.repo.GetUserByExternalID(ctx, ident.Subject); err != nil {
			return User{}, errors.Wrap(err, "finding user by external ID")
		}
	}

	if name != "" {
		usr.Name = name
	}
	if email != "" {
		usr.Email = email
	}
	usr.LastLogin = now
	usr.UpdatedAt = now
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// UpdateRoles sets the roles of a User. The actor cannot grant a role above their own max role.
func (svc *Service) UpdateRoles(ctx context.Context, actor User, id string, roles []string) (User, error) {
	if MaxRolePriority(roles) > MaxRolePriority(actor.Roles) {
		return User{}, ErrNoPermsToSetRoles
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if MaxRolePriority(usr.Roles) > MaxRolePriority(actor.Roles) {
		return User{}, ErrNoPermsToSetRoles
	}
	usr.Roles = roles
	usr.UpdatedAt = NowFunc().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user roles")
}

func (svc *Service) SetActive(ctx context.Context, actor User, id string, active bool) (User, error) {
	if actor.ID == id && !active {
		return User{}, ErrSelfDestruct
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.IsActive = active
	usr.UpdatedAt = NowFunc().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

// Delete deletes Users by ID. Say No to Suicide! the actor cannot delete themselves.
func (svc *Service) Delete(ctx context.Context, actor User, ids ...string) (int, error) {
	for _, id := range ids {
		if id == actor.ID {
			return 0, ErrSelfDestruct
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	cnt, err := svc.repo.DeleteUsersByID(ctx, ids)
	return cnt, errors.Wrap(err, "deleting users")
}
