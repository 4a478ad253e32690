package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stellarlinkco/mytodo/internal/app"
	"github.com/stellarlinkco/mytodo/internal/config"
	"github.com/stellarlinkco/mytodo/internal/gateway"
	"github.com/stellarlinkco/mytodo/internal/logging"
	"github.com/stellarlinkco/mytodo/internal/reminder"
	"github.com/stellarlinkco/mytodo/internal/storage"
	"github.com/stellarlinkco/mytodo/internal/suggest"
	"github.com/stellarlinkco/mytodo/internal/task"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mytodo",
		Short:         "mytodo - tasks, food reminders and meal ideas",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newOnboardCmd(),
		newStatusCmd(),
		newServeCmd(),
		newTaskCmd(),
		newReminderCmd(),
		newSuggestCmd(),
		newProgressCmd(),
		newExportCmd(),
		newImportCmd(),
	)
	return root
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// session is the state every data command works against: the loaded
// config, its storage backend and a controller over both collections.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	store  storage.Backend
	ctrl   *app.Controller
}

func openSession() (*session, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	pref, err := suggest.ParsePreference(cfg.Suggestions.Preference)
	if err != nil {
		return nil, fmt.Errorf("suggestions config: %w", err)
	}
	catalog, err := suggest.LoadFile(cfg.Suggestions.CatalogPath)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	tasks, err := task.NewStore(store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	reminders, err := reminder.NewStore(store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load food reminders: %w", err)
	}

	ctrl := app.New(tasks, reminders, catalog,
		app.WithPreference(pref),
		app.WithLogger(logger.Named("app")),
	)
	return &session{cfg: cfg, logger: logger, store: store, ctrl: ctrl}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Warn("close storage", zap.Error(err))
	}
	_ = s.logger.Sync()
}

// withSession opens a session for the duration of fn.
func withSession(fn func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, args, s)
	}
}

func newOnboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Initialize config and data directory",
		Args:  cobra.NoArgs,
		RunE:  runOnboard,
	}
}

func runOnboard(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(out, "Created config: %s\n", cfgPath)
	} else {
		fmt.Fprintf(out, "Config already exists: %s\n", cfgPath)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(cfg.Storage.Dir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	fmt.Fprintf(out, "Data directory ready: %s\n", cfg.Storage.Dir)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'mytodo task add \"Buy groceries\"' to add a task")
	fmt.Fprintf(out, "  2. Edit %s to enable Telegram alerts\n", cfgPath)
	fmt.Fprintln(out, "  3. Run 'mytodo serve' and open the web UI")
	return nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show mytodo status",
		Args:  cobra.NoArgs,
		RunE:  withSession(runStatus),
	}
}

func runStatus(cmd *cobra.Command, args []string, s *session) error {
	out := cmd.OutOrStdout()
	cfg := s.cfg

	fmt.Fprintf(out, "Config: %s\n", config.ConfigPath())
	switch cfg.Storage.Backend {
	case config.StorageBackendSQLite:
		fmt.Fprintf(out, "Storage: sqlite (%s)\n", cfg.Storage.DBPath)
	case config.StorageBackendMemory:
		fmt.Fprintln(out, "Storage: memory")
	default:
		fmt.Fprintf(out, "Storage: file (%s)\n", cfg.Storage.Dir)
	}
	p := s.ctrl.Progress()
	fmt.Fprintf(out, "Tasks: %d (%d completed)\n", p.Total, p.Completed)
	fmt.Fprintf(out, "Food reminders: %d\n", len(s.ctrl.Reminders()))
	fmt.Fprintf(out, "Meal preference: %s\n", s.ctrl.Preference())
	fmt.Fprintf(out, "Console: enabled=%v\n", cfg.Channels.Console.Enabled)
	fmt.Fprintf(out, "Telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)
	fmt.Fprintf(out, "Web UI: enabled=%v\n", cfg.Channels.WebUI.Enabled)
	fmt.Fprintf(out, "Gateway: %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	return nil
}

func newServeCmd() *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway (scheduler + channels + HTTP)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if host != "" {
				cfg.Gateway.Host = host
			}
			if port != 0 {
				cfg.Gateway.Port = port
			}
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			gw, err := gateway.NewWithOptions(cfg, gateway.Options{
				Stdout: cmd.OutOrStdout(),
				Logger: logger.Named("gateway"),
			})
			if err != nil {
				return fmt.Errorf("create gateway: %w", err)
			}
			return gw.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides config)")
	return cmd
}
