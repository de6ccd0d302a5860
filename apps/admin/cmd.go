package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/mwalimu/darasa/core/user"
	"github.com/mwalimu/darasa/storage/database/migrate"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	usrRepo user.Repository
	runner  *migrate.Runner
	seeder  *migrate.Seeder
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createdb                                            - create the app user and database if missing")
	fmt.Println("  migrate [up [NAME]|status|mark NAME|rollback [NAME]] - manage schema migrations")
	fmt.Println("  seed [run [NAME]|refresh [NAME]|list]               - load seed data")
	fmt.Println("  adduser -name NAME -email EMAIL [-admin] [-owner]   - add or update a user; the password is prompted next")
	fmt.Println("  resetpassword -email EMAIL                          - reset a user's password; the password is prompted next")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant the admin role.")
	addUserOwner := addUserCmd.Bool("owner", false, "Grant the class-owner role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		return cli.migrate(args[2:])
	case "seed":
		return cli.seed(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		roles := []string{user.RoleLearner}
		if *addUserOwner {
			roles = append(roles, user.RoleClassOwner)
		}
		if *addUserAdmin {
			roles = user.AllRoles
		}
		return cli.addUser(*addUserName, *addUserEmail, pwd, roles)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func printResults(results ...migrate.Result) {
	for _, res := range results {
		fmt.Printf("%-45s %-12s %s\n", res.Script, res.Outcome, res.Message)
	}
}
