package user_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/user"
	"github.com/trezcool/examhall/storage/database/inmem"
	"github.com/trezcool/examhall/tests"
)

func setup(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	t.Cleanup(func() { user.NowFunc = time.Now })
	return user.NewService(repo, testutil.NopLogger{}), repo
}

func TestService_Provision(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	first := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	user.NowFunc = func() time.Time { return first }

	usr, err := svc.Provision(ctx, core.Identity{Subject: "ext-1", Email: " Jane@Examhall.TEST ", Name: " Jane "})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, "jane@examhall.test", usr.Email)
	assert.Equal(t, "Jane", usr.Name)
	assert.True(t, usr.IsActive)
	assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
	assert.Equal(t, first, usr.CreatedAt)

	later := first.Add(24 * time.Hour)
	user.NowFunc = func() time.Time { return later }
	again, err := svc.Provision(ctx, core.Identity{Subject: "ext-1", Email: "jane.doe@examhall.test"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, again.ID, "same user")
	assert.Equal(t, "Jane", again.Name, "kept when the provider sends none")
	assert.Equal(t, "jane.doe@examhall.test", again.Email)
	assert.Equal(t, first, again.CreatedAt)
	assert.Equal(t, later, again.LastLogin)

	users, err := svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestService_Provision_Concurrent(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	const n = 100
	start := make(chan struct{})
	ids := make(chan string, n)
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			usr, err := svc.Provision(ctx, core.Identity{Subject: "ext-race", Email: "race@examhall.test"})
			if err != nil {
				errs <- err
				return
			}
			ids <- usr.ID
		}()
	}
	close(start)
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Errorf("Provision(): %v", err)
	}
	seen := make(map[string]bool)
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1, "every login gets the same user")

	users, err := svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestService_UpdateRoles(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	owner := testutil.CreateUser(t, repo, "Owner", "owner@examhall.test", []string{user.RoleAdminOwner}, true)
	editor := testutil.CreateUser(t, repo, "Editor", "editor@examhall.test", []string{user.RoleAdminEditor}, true)
	student := testutil.CreateUser(t, repo, "Student", "student@examhall.test", []string{user.RoleStudent}, true)

	tests := []struct {
		name    string
		actor   user.User
		target  user.User
		roles   []string
		wantErr error
	}{
		{name: "owner promotes student", actor: owner, target: student, roles: []string{user.RoleAdminEditor}},
		{name: "editor cannot grant owner", actor: editor, target: student, roles: []string{user.RoleAdminOwner}, wantErr: user.ErrNoPermsToSetRoles},
		{name: "editor cannot demote owner", actor: editor, target: owner, roles: []string{user.RoleStudent}, wantErr: user.ErrNoPermsToSetRoles},
		{name: "unknown user", actor: owner, target: user.User{ID: "nope"}, roles: []string{user.RoleStudent}, wantErr: user.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.UpdateRoles(ctx, tt.actor, tt.target.ID, tt.roles)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.roles, usr.Roles)
		})
	}
}

func TestService_SetActive(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	admin := testutil.CreateUser(t, repo, "Admin", "admin@examhall.test", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, repo, "Student", "student@examhall.test", []string{user.RoleStudent}, true)

	_, err := svc.SetActive(ctx, admin, admin.ID, false)
	assert.Equal(t, user.ErrSelfDestruct, err)

	usr, err := svc.SetActive(ctx, admin, student.ID, false)
	require.NoError(t, err)
	assert.False(t, usr.IsActive)

	inactive := false
	users, err := svc.Query(ctx, &user.QueryFilter{IsActive: &inactive}, nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, student.ID, users[0].ID)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	admin := testutil.CreateUser(t, repo, "Admin", "admin@examhall.test", []string{user.RoleAdmin}, true)
	s1 := testutil.CreateUser(t, repo, "S1", "s1@examhall.test", []string{user.RoleStudent}, true)
	s2 := testutil.CreateUser(t, repo, "S2", "s2@examhall.test", []string{user.RoleStudent}, true)

	cnt, err := svc.Delete(ctx, admin, s1.ID, admin.ID)
	assert.Equal(t, user.ErrSelfDestruct, err)
	assert.Zero(t, cnt)

	cnt, err = svc.Delete(ctx, admin)
	require.NoError(t, err)
	assert.Zero(t, cnt)

	cnt, err = svc.Delete(ctx, admin, s1.ID, s2.ID, "nope")
	require.NoError(t, err)
	assert.Equal(t, 2, cnt)

	_, err = svc.GetByID(ctx, s1.ID)
	assert.Equal(t, user.ErrNotFound, err)
	usr, err := svc.GetByEmail(ctx, " ADMIN@examhall.test")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, usr.ID)
}

func TestQuery_Filters(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	now := time.Now().UTC()
	testutil.CreateUser(t, repo, "Alice Admin", "alice@examhall.test", []string{user.RoleAdminEditor}, true, now.Add(-2*time.Hour))
	testutil.CreateUser(t, repo, "Bob", "bob@examhall.test", []string{user.RoleStudent}, true, now.Add(-time.Hour))
	testutil.CreateUser(t, repo, "Carol", "carol@examhall.test", []string{user.RoleStudent}, false, now)

	names := func(users []user.User) []string {
		n := make([]string, 0, len(users))
		for _, u := range users {
			n = append(n, u.Name)
		}
		return n
	}

	users, err := svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol", "Bob", "Alice Admin"}, names(users), "newest first")

	users, err = svc.Query(ctx, nil, []core.DBOrdering{{Field: "name", Ascending: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice Admin", "Bob", "Carol"}, names(users))

	users, err = svc.Query(ctx, &user.QueryFilter{Roles: []string{user.RoleAdmin}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice Admin"}, names(users), "role prefix")

	users, err = svc.Query(ctx, &user.QueryFilter{Search: "CAROL@"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol"}, names(users))
}

func TestUpdateRoles_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	ur := user.UpdateRoles{}
	require.NoError(t, ur.Validate(validate))
	assert.Equal(t, []string{}, ur.Roles)

	ur = user.UpdateRoles{Roles: []string{user.RoleStudent, user.RoleAdminEditor}}
	assert.NoError(t, ur.Validate(validate))

	ur = user.UpdateRoles{Roles: []string{"root"}}
	assert.Error(t, ur.Validate(validate))
}
