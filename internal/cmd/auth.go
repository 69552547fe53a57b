package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
)

var errCredentialsRequired = errors.New("email or username and password are required")

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session for later commands",
		Long: `Sign in with an email address or username and a password.

The session cookies are kept in the state file so later commands and the
console start signed in. The password is prompted for when not given.

Examples:
  gkadmin login --email admin@gkstore.test
  echo "$PASSWORD" | gkadmin login --email admin@gkstore.test --password-stdin`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
	cmd.Flags().StringP("email", "e", "", "email address or username")
	cmd.Flags().StringP("password", "p", "", "password (prefer the prompt or --password-stdin)")
	cmd.Flags().Bool("password-stdin", false, "read the password from standard input")
	return cmd
}

func runLogin(cmd *cobra.Command, _ []string) error {
	b, err := openBackend(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer b.Close()

	identifier, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.ErrOrStderr()
	if identifier == "" && !fromStdin {
		if identifier, err = readLine(in, out, "Email or username: "); err != nil {
			return fmt.Errorf("reading email: %w", err)
		}
	}
	if password == "" {
		if password, err = readSecret(cmd.InOrStdin(), in, out, !fromStdin); err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
	}

	creds := client.Credentials{Identifier: strings.TrimSpace(identifier), Secret: password}
	if creds.Identifier == "" || creds.Secret == "" {
		return errCredentialsRequired
	}

	res := b.Provider.Login(cmd.Context(), creds)
	if !res.Success {
		return errors.New(res.Message)
	}

	user := b.Provider.Current().User
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s> (%s)\n", user.DisplayName(), user.Email, user.Role)
	if !user.IsAdmin() {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: this account is not an admin, the console and catalog commands will be refused")
	}
	return nil
}

// readSecret reads the password without echo from a terminal, or as a plain
// line otherwise.
func readSecret(raw io.Reader, in *bufio.Reader, out io.Writer, prompt bool) (string, error) {
	if f, ok := raw.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, "Password: ")
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		return string(secret), err
	}
	label := ""
	if prompt {
		label = "Password: "
	}
	line, err := readLine(in, out, label)
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	return line, err
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBackend(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			b.Provider.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBackend(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			snap := b.Provider.Start(cmd.Context())
			if !snap.Authenticated() {
				return ErrNotSignedIn
			}
			u := snap.User
			if b.Context.Format != FormatText {
				return printValue(cmd.OutOrStdout(), b.Context.Format, u)
			}
			printFields(cmd.OutOrStdout(), [][2]string{
				{"Name", u.DisplayName()},
				{"Email", u.Email},
				{"Role", u.Role},
				{"ID", u.ID},
			})
			return nil
		},
	}
}
