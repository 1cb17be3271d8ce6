package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go-crm-reports/internal/client"
	"go-crm-reports/internal/features/layout"
	"go-crm-reports/internal/features/workspace"
	"go-crm-reports/internal/localstore"
	"go-crm-reports/internal/logger"
	"go-crm-reports/pkg/condition"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// options are the persistent flags. Empty values fall back to the config file.
type options struct {
	configPath string
	server     string
	token      string
	store      string
	format     string
	timeout    time.Duration
	verbose    bool

	// now is replaced in tests.
	now func() time.Time
}

// env is what a command works with once flags and config are resolved.
type env struct {
	cfg     Config
	log     *zap.Logger
	api     *client.Client
	store   *localstore.SQLite
	session *workspace.Session
	out     io.Writer
}

func (e *env) Close() error {
	_ = e.log.Sync()
	return e.store.Close()
}

func newRootCmd() *cobra.Command {
	opts := &options{now: time.Now}

	root := &cobra.Command{
		Use:           "reportctl",
		Short:         "Edit and preview CRM reports",
		Long:          `reportctl opens a saved report, changes its filters or card layout, and shows preview data. Layout changes are also kept in a local store so they survive a failed save.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", filepath.Join(configDir(), "config.yaml"), "Path to the settings file.")
	flags.StringVar(&opts.server, "server", "", "Report API base URL.")
	flags.StringVar(&opts.token, "token", "", "Bearer token for the report API.")
	flags.StringVar(&opts.store, "store", "", "Path of the local layout store.")
	flags.StringVarP(&opts.format, "format", "o", "", "Output format: yaml or json.")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Request timeout.")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log requests to stderr.")

	root.AddCommand(
		newListCmd(opts),
		newShowCmd(opts),
		newCreateCmd(opts),
		newDeleteCmd(opts),
		newFilterCmd(opts),
		newLayoutCmd(opts),
		newPreviewCmd(opts),
		newImportCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

func (o *options) resolve() (Config, error) {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.server != "" {
		cfg.Server = o.server
	}
	if o.token != "" {
		cfg.Token = o.token
	}
	if o.store != "" {
		cfg.Store = o.store
	}
	if o.format != "" {
		cfg.Format = o.format
	}
	if o.timeout > 0 {
		cfg.Timeout = o.timeout
	}
	switch cfg.Format {
	case "yaml", "json":
	default:
		return cfg, fmt.Errorf("unknown output format %q", cfg.Format)
	}
	return cfg, nil
}

func (o *options) open(cmd *cobra.Command) (*env, error) {
	cfg, err := o.resolve()
	if err != nil {
		return nil, err
	}
	log := logger.NewConsoleLogger(o.verbose)

	store, err := localstore.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening layout store: %w", err)
	}

	api := client.New(cfg.Server, cfg.Token, cfg.Timeout, log)
	codec := condition.NewCodec(log).WithClock(o.now)
	notifier := &stderrNotifier{w: cmd.ErrOrStderr()}
	session := workspace.NewSession(api, layout.NewStore(store, log), codec, notifier, log)

	return &env{cfg: cfg, log: log, api: api, store: store, session: session, out: cmd.OutOrStdout()}, nil
}

// run wraps a command body with env setup and teardown.
func (o *options) run(body func(ctx context.Context, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := o.open(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		return body(cmd.Context(), e, args)
	}
}

func (e *env) print(v any) error {
	if e.cfg.Format == "json" {
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(e.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

type stderrNotifier struct {
	w io.Writer
}

func (n *stderrNotifier) Notify(level workspace.NoticeLevel, message string) {
	fmt.Fprintf(n.w, "%s: %s\n", strings.ToLower(string(level)), message)
}
