// Package auth handles Zaim OAuth token acquisition and verification
package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"fjacquet/anapay2zaim/cmd/root"
	"fjacquet/anapay2zaim/internal/container"
	"fjacquet/anapay2zaim/internal/logging"
	"fjacquet/anapay2zaim/internal/zaim"

	"github.com/spf13/cobra"
)

// Cmd represents the auth command
var Cmd = &cobra.Command{
	Use:   "auth",
	Short: "Obtain Zaim access tokens",
	Long: `Run the OAuth 1.0a flow against Zaim: open the printed URL, approve the
application, paste the oauth_verifier value and the access tokens are saved to
zaim.token_file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.GetContainer()
		if err != nil {
			return err
		}
		return Acquire(c, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// VerifyCmd represents the verify command
var VerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the stored Zaim tokens are valid",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.GetContainer()
		if err != nil {
			return err
		}
		client, err := c.NewZaimClient()
		if err != nil {
			return err
		}
		return Verify(cmd.Context(), client, cmd.OutOrStdout())
	},
}

// Acquire runs the interactive token flow, reading the verifier from in.
func Acquire(c *container.Container, in io.Reader, out io.Writer) error {
	logger := c.GetLogger()
	authorizer, err := c.NewAuthorizer()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Starting Zaim OAuth token acquisition process...")
	rt, err := authorizer.Begin()
	if err != nil {
		return err
	}
	logger.Debug("Request token obtained")

	fmt.Fprintln(out, "Please visit the following URL to authorize the application:")
	fmt.Fprintln(out, rt.AuthorizeURL)
	fmt.Fprint(out, "Enter the oauth_verifier value: ")

	verifier, err := readLine(in)
	if err != nil {
		return err
	}

	tokens, err := authorizer.Complete(rt, verifier)
	if err != nil {
		return err
	}

	path := c.GetConfig().Zaim.TokenFile
	if err := zaim.SaveTokens(path, tokens); err != nil {
		return err
	}
	logger.Info("Access tokens saved", logging.F(logging.FieldFile, path))

	fmt.Fprintf(out, "\nAccess tokens successfully acquired and saved to %s\n", path)
	fmt.Fprintln(out, "Keep this file secure as it contains credentials.")
	return nil
}

func readLine(in io.Reader) (string, error) {
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("error reading verifier: %w", err)
		}
		return "", errors.New("no verifier entered")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// UserVerifier is satisfied by zaim.Client.
type UserVerifier interface {
	VerifyUser(ctx context.Context) (*zaim.User, error)
}

// Verify prints the user the stored tokens belong to.
func Verify(ctx context.Context, v UserVerifier, out io.Writer) error {
	user, err := v.VerifyUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Authenticated as %s (id %d, %d entries)\n", user.Login, user.ID, user.InputCount)
	return nil
}
