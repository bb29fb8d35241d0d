package commands

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/oremband/oremband/internal/auth"
	"golang.org/x/term"
)

// HashPassword handles the hash-password subcommand. It prompts for the admin
// password twice and prints the config entries that enable the admin routes.
func HashPassword(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	user := fs.String("user", "admin", "Admin username")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: oremband hash-password [OPTIONS]\n\n")
		fmt.Fprintf(fs.Output(), "Prints an Argon2id hash for the admin password.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	password, err := readPassword("Enter password:   ")
	if err != nil {
		return err
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return err
	}
	hash, err := hashConfirmed(password, confirm)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "admin:\n  user: %s\n  passwordhash: '%s'\n", *user, hash)
	fmt.Fprintf(stdout, "\nor as environment:\n  OREMBAND_ADMIN_USER=%s\n  OREMBAND_ADMIN_PASSWORDHASH='%s'\n", *user, hash)
	return nil
}

func hashConfirmed(password, confirm string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	if password != confirm {
		return "", errors.New("passwords do not match")
	}
	return auth.HashPassword(password)
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("hash-password needs an interactive terminal")
	}
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
