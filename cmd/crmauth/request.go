package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/spf13/cobra"
)

func checkCmd(opts *options) *cobra.Command {
	var roles []string

	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Report whether the session may open a page",
		Long: `Report whether the session may open path. Without --role the
login allow-list is required. Exits non-zero on a denial.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, opts, func(ctx context.Context, c *goAuthClient.Client) error {
				d, err := c.Authorize(ctx, args[0], roles...)
				if err != nil {
					return err
				}
				if d.Allowed {
					fmt.Fprintf(cmd.OutOrStdout(), "allowed: %s\n", args[0])
					return nil
				}
				return fmt.Errorf("denied: %s (redirect to %s)", args[0], c.RedirectURL(d.Redirect))
			})
		},
	}

	cmd.Flags().StringSliceVarP(&roles, "role", "r", nil, "required role (repeatable)")

	return cmd
}

func getCmd(opts *options) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "GET a protected resource with the stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, opts, func(ctx context.Context, c *goAuthClient.Client) error {
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.API().Resolve(args[0]), nil)
				if err != nil {
					return err
				}
				req.Header.Set("Accept", "application/json")
				resp, err := c.API().Do(req)
				if err != nil {
					return err
				}
				defer resp.Body.Close()

				body, err := io.ReadAll(resp.Body)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if raw {
					_, err = out.Write(body)
					return err
				}
				var v any
				if err := json.Unmarshal(body, &v); err != nil {
					_, err = out.Write(body)
					return err
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(v)
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the body unformatted")

	return cmd
}
