package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/feria/core/assignment"
	"github.com/trezcool/feria/core/grading"
	"github.com/trezcool/feria/core/project"
	"github.com/trezcool/feria/core/user"
	"github.com/trezcool/feria/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	gooseRunFunc     = database.RunGoose // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sqlx.DB
	out        io.Writer
	usrSvc     user.Service
	projSvc    project.Service
	gradingSvc grading.Service
	syncer     *assignment.Synchronizer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  adduser -username USERNAME [-name NAME] [-email EMAIL] [-role ROLE] - create a user or update their password and role")
	_, _ = fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run a goose migration command (up, down, status, ...)")
	_, _ = fmt.Fprintln(cli.out, "  setgrade -project ID [-grade GRADE] - set or, without a grade, clear a project's internal grade")
	_, _ = fmt.Fprintln(cli.out, "  report [-kind admin|professor|student|course] - print a grade report")
	_, _ = fmt.Fprintln(cli.out, "  reconcile - re-sync every project with its judges")
}

// promptPassword reads a password without echoing it; an empty password yields errHelp after printing usage.
func (cli *commandLine) promptPassword(fs *flag.FlagSet) (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's full name (defaults to the username).")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", user.RoleAdmin, "One of admin, teacher or judge.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	setGradeCmd := flag.NewFlagSet("setgrade", flag.ContinueOnError)
	setGradeProject := setGradeCmd.String("project", "", "The project ID.")
	setGradeGrade := setGradeCmd.String("grade", "", "The internal grade, between 0 and 100. Leave blank to clear it.")

	reportCmd := flag.NewFlagSet("report", flag.ContinueOnError)
	reportKind := reportCmd.String("kind", string(grading.KindProfessor), "The report view: admin, professor, student or course.")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd, setGradeCmd, reportCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserUname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(*addUserUname, *addUserName, *addUserEmail, *addUserRole, pwd)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "setgrade":
		if err := setGradeCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *setGradeProject == "" {
			setGradeCmd.Usage()
			return errHelp
		}
		return cli.setGrade(*setGradeProject, *setGradeGrade)
	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.report(*reportKind)
	case "reconcile":
		return cli.reconcile()
	default:
		cli.printUsage()
		return errHelp
	}
}
