// Command authctl is the operator tool for campus-auth: it provisions admin
// accounts and clears lockouts directly against the configured store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/campusrecords/campus-auth/internal/app/bootstrap"
	"github.com/campusrecords/campus-auth/internal/application"
)

const usage = `usage:
  authctl create-admin -email EMAIL -first NAME -last NAME
  authctl unlock -email EMAIL

The admin password is read from AUTHCTL_PASSWORD or prompted without echo.
`

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "authctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}

	switch args[0] {
	case "create-admin":
		fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
		configPath := fs.String("config", "configs/default.yaml", "config file")
		email := fs.String("email", "", "admin email")
		first := fs.String("first", "", "first name")
		last := fs.String("last", "", "last name")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *email == "" || *first == "" || *last == "" {
			return errors.New("create-admin requires -email, -first and -last")
		}
		password, err := adminPassword(out)
		if err != nil {
			return err
		}
		runtime, err := bootstrap.NewRuntime(ctx, *configPath)
		if err != nil {
			return err
		}
		defer runtime.Close()

		view, err := runtime.Service().Provision(ctx, application.SignupRequest{
			Email:     *email,
			Password:  password,
			FirstName: *first,
			LastName:  *last,
			Role:      "admin",
		})
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		fmt.Fprintf(out, "created admin %s (%s)\n", view.Email, view.ID)
		return nil

	case "unlock":
		fs := flag.NewFlagSet("unlock", flag.ContinueOnError)
		configPath := fs.String("config", "configs/default.yaml", "config file")
		email := fs.String("email", "", "account email")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *email == "" {
			return errors.New("unlock requires -email")
		}
		runtime, err := bootstrap.NewRuntime(ctx, *configPath)
		if err != nil {
			return err
		}
		defer runtime.Close()

		view, err := runtime.Service().UnlockByEmail(ctx, *email)
		if err != nil {
			return fmt.Errorf("unlock: %w", err)
		}
		fmt.Fprintf(out, "unlocked %s\n", view.Email)
		return nil

	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func adminPassword(out io.Writer) (string, error) {
	if pw := os.Getenv("AUTHCTL_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Fprint(out, "Admin password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(out, "Repeat password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	pw := strings.TrimRight(string(first), "\r\n")
	if pw == "" {
		return "", errors.New("empty password")
	}
	return pw, nil
}
