package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/examhall/core/subscription"
	"github.com/trezcool/examhall/core/user"
)

var (
	defaultIsTerminal = term.IsTerminal
	isTerminalFunc    = defaultIsTerminal // mockable

	errHelp        = errors.New("help provided")
	errAborted     = errors.New("aborted")
	errInvalidRole = errors.New("invalid role")
	errNotAdmin    = errors.New("reviewer is not an admin")

	// cliActor performs the operations of the command line; it has every right.
	cliActor = user.User{Name: "admin CLI", Roles: []string{user.RoleAdminOwner}}
)

type commandLine struct {
	db       *sqlx.DB
	usrSvc   user.ServiceInterface
	subSvc   subscription.ServiceInterface
	validate *validator.Validate
	in       io.Reader
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                - run a goose command (up, down, status, ...)")
	_, _ = fmt.Fprintln(cli.out, "  setrole -email EMAIL -role ROLE                       - grant a role to a user")
	_, _ = fmt.Fprintln(cli.out, "  reviewpayment -id ID -status SUCCESS|FAILED -reviewer EMAIL - review a pending payment")
	_, _ = fmt.Fprintln(cli.out, "  purge-users [-yes]                                    - delete all deactivated users")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	setRoleCmd := flag.NewFlagSet("setrole", flag.ContinueOnError)
	setRoleCmd.SetOutput(cli.out)
	setRoleEmail := setRoleCmd.String("email", "", "The user's email.")
	setRoleRole := setRoleCmd.String("role", "", "The role to grant, one of "+strings.Join(user.AllRoles, ", ")+".")

	reviewCmd := flag.NewFlagSet("reviewpayment", flag.ContinueOnError)
	reviewCmd.SetOutput(cli.out)
	reviewID := reviewCmd.String("id", "", "The payment ID.")
	reviewStatus := reviewCmd.String("status", "", "SUCCESS or FAILED.")
	reviewReviewer := reviewCmd.String("reviewer", "", "The email of the reviewing admin.")

	purgeCmd := flag.NewFlagSet("purge-users", flag.ContinueOnError)
	purgeCmd.SetOutput(cli.out)
	purgeYes := purgeCmd.Bool("yes", false, "Do not ask for confirmation.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "setrole":
		if err := setRoleCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *setRoleEmail == "" || *setRoleRole == "" {
			setRoleCmd.Usage()
			return errHelp
		}
		return cli.setRole(ctx, *setRoleEmail, *setRoleRole)

	case "reviewpayment":
		if err := reviewCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *reviewID == "" || *reviewStatus == "" || *reviewReviewer == "" {
			reviewCmd.Usage()
			return errHelp
		}
		return cli.reviewPayment(ctx, *reviewID, *reviewStatus, *reviewReviewer)

	case "purge-users":
		if err := purgeCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.purgeUsers(ctx, *purgeYes)

	default:
		cli.printUsage()
		return errHelp
	}
}

// confirm asks a yes/no question; anything but y|yes is a no.
// Without a terminal on stdin there is nobody to ask, so the answer is yes.
func (cli *commandLine) confirm(question string) bool {
	if f, ok := cli.in.(*os.File); !ok || !isTerminalFunc(int(f.Fd())) {
		return true
	}
	_, _ = fmt.Fprintf(cli.out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(cli.in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
