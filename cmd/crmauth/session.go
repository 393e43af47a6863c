package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/spf13/cobra"
)

func loginCmd(opts *options) *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with email and password. The password is read from the
first line of stdin so it never appears in the process list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(email) == "" {
				return errors.New("--email is required")
			}
			if !passwordStdin {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			}
			password, err := readLine(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			return withClient(cmd, opts, func(ctx context.Context, c *goAuthClient.Client) error {
				data, err := c.Login(ctx, goAuthClient.Credentials{Email: email, Password: password})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", displayName(data.User), strings.Join(data.Roles, ", "))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin without prompting")

	return cmd
}

func logoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and remove the stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, opts, func(ctx context.Context, c *goAuthClient.Client) error {
				c.Logout(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func statusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, opts, func(ctx context.Context, c *goAuthClient.Client) error {
				out := cmd.OutOrStdout()
				if !c.IsAuthenticated() {
					fmt.Fprintln(out, "Not signed in")
					return nil
				}
				u := c.CurrentUser()
				fmt.Fprintf(out, "Signed in as %s\n", displayName(u))
				if u.TenantID != "" {
					fmt.Fprintf(out, "  Tenant: %s\n", u.TenantID)
				}
				fmt.Fprintf(out, "  Roles:  %s\n", strings.Join(c.Decider().UserRoles(ctx), ", "))
				return nil
			})
		},
	}
}

func refreshCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, opts, func(ctx context.Context, c *goAuthClient.Client) error {
				if _, err := c.RefreshToken(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Tokens refreshed")
				return nil
			})
		},
	}
}

func displayName(u *goAuthClient.User) string {
	if u == nil {
		return "unknown user"
	}
	if u.Name != "" && u.Email != "" {
		return u.Name + " <" + u.Email + ">"
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}
