package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/subscription"
	"github.com/trezcool/examhall/core/user"
	emailsvc "github.com/trezcool/examhall/services/email"
	inmemdb "github.com/trezcool/examhall/storage/database/inmem"
	testutil "github.com/trezcool/examhall/tests"
)

type testCLI struct {
	*commandLine
	usrRepo user.Repository
	payRepo subscription.Repository
	out     *bytes.Buffer
}

func setup(t *testing.T) *testCLI {
	conf := &core.Config{AppName: "Examhall", TestMode: true}
	logger := testutil.NopLogger{}

	mem := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(mem)
	payRepo := inmemdb.NewPaymentRepository(mem)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	subscription.InitValidators(validate, translator)

	usrSvc := user.NewService(usrRepo, logger)
	out := new(bytes.Buffer)
	return &testCLI{
		commandLine: &commandLine{
			usrSvc:   usrSvc,
			subSvc:   subscription.NewService(payRepo, usrSvc, emailsvc.NewConsoleServiceMock(conf, logger), new(testutil.EventRecorder), logger),
			validate: validate,
			in:       strings.NewReader(""),
			out:      out,
		},
		usrRepo: usrRepo,
		payRepo: payRepo,
		out:     out,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_run(t *testing.T) {
	cli := setup(t)
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "setrole: no args", args: []string{"setrole"}, wantErr: errHelp},
		{name: "setrole: no role", args: []string{"setrole", "-email", "a@examhall.test"}, wantErr: errHelp},
		{name: "setrole: unknown flag", args: []string{"setrole", "-lol"}, wantErr: errHelp},
		{name: "reviewpayment: no args", args: []string{"reviewpayment"}, wantErr: errHelp},
		{name: "reviewpayment: no reviewer", args: []string{"reviewpayment", "-id", "x", "-status", "SUCCESS"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	runMigrationsFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	t.Cleanup(func() { runMigrationsFunc = defaultRunMigrations })

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "comments", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_setRole(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, cli.usrRepo, "Student", "student@examhall.test", []string{user.RoleStudent}, true)

	tests := []cliTest{
		{name: "invalid role", args: []string{"setrole", "-email", usr.Email, "-role", "teacher:"}, wantErr: errInvalidRole},
		{name: "user not found", args: []string{"setrole", "-email", "lol@examhall.test", "-role", user.RoleAdminEditor}, wantErr: user.ErrNotFound},
		{name: "grant", args: []string{"setrole", "-email", " Student@Examhall.test", "-role", user.RoleAdminEditor}},
		{name: "already granted", args: []string{"setrole", "-email", usr.Email, "-role", user.RoleAdminEditor}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	got, err := cli.usrRepo.GetUserByID(context.Background(), usr.ID)
	if assert.NoError(t, err) {
		assert.ElementsMatch(t, []string{user.RoleStudent, user.RoleAdminEditor}, got.Roles)
	}
	assert.Contains(t, cli.out.String(), "already has role "+user.RoleAdminEditor)
}

func Test_commandLine_reviewPayment(t *testing.T) {
	cli := setup(t)
	admin := testutil.CreateUser(t, cli.usrRepo, "Admin", "admin@examhall.test", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, cli.usrRepo, "Student", "student@examhall.test", []string{user.RoleStudent}, true)
	p := testutil.CreatePayment(t, cli.payRepo, student.ID, subscription.PaymentPending, subscription.PlanMonthly, time.Now())

	review := func(status, reviewer string) []string {
		return []string{"reviewpayment", "-id", p.ID, "-status", status, "-reviewer", reviewer}
	}
	tests := []cliTest{
		{name: "reviewer not admin", args: review("SUCCESS", student.Email), wantErr: errNotAdmin},
		{name: "unknown reviewer", args: review("SUCCESS", "lol@examhall.test"), wantErr: user.ErrNotFound},
		{name: "unknown payment", args: []string{"reviewpayment", "-id", "lol", "-status", "FAILED", "-reviewer", admin.Email}, wantErr: subscription.ErrPaymentNotFound},
		{name: "approve", args: review("success", admin.Email)},
		{name: "already reviewed", args: review("FAILED", admin.Email), wantErr: subscription.ErrAlreadyReviewed},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("invalid status", func(t *testing.T) {
		err := cli.run(append([]string{"admin"}, review("PENDING", admin.Email)...))
		_, ok := err.(validator.ValidationErrors)
		assert.True(t, ok, "error = %v", err)
	})

	got, err := cli.payRepo.GetPayment(context.Background(), p.ID)
	if assert.NoError(t, err) {
		assert.Equal(t, subscription.PaymentSuccess, got.Status)
		assert.Equal(t, admin.ID, got.ReviewedBy.String)
	}
}

func Test_commandLine_purgeUsers(t *testing.T) {
	cli := setup(t)
	active := testutil.CreateUser(t, cli.usrRepo, "Active", "active@examhall.test", []string{user.RoleStudent}, true)
	gone1 := testutil.CreateUser(t, cli.usrRepo, "Gone 1", "gone1@examhall.test", []string{user.RoleStudent}, false)
	gone2 := testutil.CreateUser(t, cli.usrRepo, "Gone 2", "gone2@examhall.test", []string{user.RoleStudent}, false)
	ctx := context.Background()

	t.Run("declined on a terminal", func(t *testing.T) {
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("os.Pipe(): %v", err)
		}
		defer r.Close()
		_, _ = w.WriteString("n\n")
		_ = w.Close()

		isTerminalFunc = func(int) bool { return true }
		defer func() { isTerminalFunc = defaultIsTerminal }()
		cli.in = r
		defer func() { cli.in = strings.NewReader("") }()

		err = cli.run([]string{"admin", "purge-users"})
		assert.Equal(t, errAborted, err)
		assert.Contains(t, cli.out.String(), "delete 2 deactivated users? [y/N]")
		_, err = cli.usrRepo.GetUserByID(ctx, gone1.ID)
		assert.NoError(t, err)
	})

	t.Run("no terminal", func(t *testing.T) {
		assert.NoError(t, cli.run([]string{"admin", "purge-users"}))
		for _, id := range []string{gone1.ID, gone2.ID} {
			_, err := cli.usrRepo.GetUserByID(ctx, id)
			assert.Equal(t, user.ErrNotFound, err)
		}
		_, err := cli.usrRepo.GetUserByID(ctx, active.ID)
		assert.NoError(t, err)
	})

	t.Run("nothing to purge", func(t *testing.T) {
		cli.out.Reset()
		assert.NoError(t, cli.run([]string{"admin", "purge-users", "-yes"}))
		assert.Equal(t, "no deactivated users\n", cli.out.String())
	})
}
