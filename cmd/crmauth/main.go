// Command crmauth signs in to the CRM backend from a terminal and keeps the
// session in a local file (or Redis) between invocations.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/guard"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	baseURL    string
	storePath  string
	auditLog   string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "crmauth",
		Short: "Sign in to the CRM backend and call it with the stored session",
		Long: `crmauth keeps a CRM session between invocations.

The token pair and user are stored in a local file by default, or in
Redis when the config file selects the redis store. Expired access
tokens are refreshed transparently.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&opts.baseURL, "base-url", os.Getenv("CRMAUTH_BASE_URL"), "CRM API base URL (overrides config)")
	flags.StringVar(&opts.storePath, "store", "", "session file (default: user config dir)")
	flags.StringVar(&opts.auditLog, "audit-log", "", "append audit events as JSON lines to this file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(
		loginCmd(opts),
		logoutCmd(opts),
		statusCmd(opts),
		refreshCmd(opts),
		checkCmd(opts),
		getCmd(opts),
	)

	return rootCmd
}

// openClient builds and initializes a client from the flags and config.
// The caller must call the returned close func.
func openClient(ctx context.Context, opts *options) (*goAuthClient.Client, func(), error) {
	cfg := goAuthClient.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := goAuthClient.LoadConfig(opts.configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	if opts.baseURL != "" {
		cfg.API.BaseURL = opts.baseURL
	}
	if cfg.API.BaseURL == "" {
		return nil, nil, errors.New("no base URL: pass --base-url, set CRMAUTH_BASE_URL or use --config")
	}

	// A memory store would forget the session when the process exits.
	if cfg.Store.Kind == goAuthClient.StoreMemory {
		cfg.Store.Kind = goAuthClient.StoreFile
	}
	if opts.storePath != "" {
		cfg.Store.Path = opts.storePath
	}
	if cfg.Store.Kind == goAuthClient.StoreFile && cfg.Store.Path == "" {
		path, err := defaultStorePath()
		if err != nil {
			return nil, nil, err
		}
		cfg.Store.Path = path
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	b := goAuthClient.New()
	var auditFile *os.File
	if opts.auditLog != "" {
		f, err := os.OpenFile(opts.auditLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open audit log: %w", err)
		}
		auditFile = f
		cfg.Audit.Enabled = true
		if cfg.Audit.BufferSize <= 0 {
			cfg.Audit.BufferSize = 64
		}
		b.WithAuditSink(goAuthClient.MultiSink{
			goAuthClient.NewJSONWriterSink(f),
			goAuthClient.NewLogSink(logger),
		})
	}
	closeAll := func() {
		if auditFile != nil {
			_ = auditFile.Close()
		}
	}

	client, err := b.
		WithConfig(cfg).
		WithLogger(logger).
		WithNavigator(guard.NavigatorFunc(func(_ context.Context, r guard.Redirect) {
			if r.Kind == guard.RedirectSignIn {
				logger.Debug("session ended", "next", "crmauth login")
			}
		})).
		Build()
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	client.Initialize(ctx)
	return client, func() {
		_ = client.Close()
		closeAll()
	}, nil
}

func defaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "crmauth", "session.json"), nil
}

// withClient runs fn with an initialized client and closes it afterwards.
func withClient(cmd *cobra.Command, opts *options, fn func(ctx context.Context, c *goAuthClient.Client) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client, closeClient, err := openClient(ctx, opts)
	if err != nil {
		return err
	}
	defer closeClient()
	return fn(ctx, client)
}
