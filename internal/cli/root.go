package cli

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"threadterm/internal/backend"
	"threadterm/internal/config"
	"threadterm/internal/dialog"
	"threadterm/internal/logging"
	"threadterm/internal/stash"
	"threadterm/internal/store"
	"threadterm/internal/tui"
	"threadterm/internal/workflow"
)

// NewRootCommand builds the threadterm command tree. Without a subcommand
// it opens the terminal UI.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "threadterm [thread]",
		Short:         "Review dialog threads and archive messages",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTUI,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().String("backend", "", "backend base URI, e.g. http://127.0.0.1:8000/api")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn, error")
	rootCmd.PersistentFlags().StringP("output", "o", "text", "output format: text, json or yaml")

	rootCmd.AddCommand(newMessagesCmd())
	rootCmd.AddCommand(newMessageCmd())
	rootCmd.AddCommand(newInstructionCmd())
	rootCmd.AddCommand(newSuggestCmd())
	rootCmd.AddCommand(newArchiveCmd())
	rootCmd.AddCommand(newPersistCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

// runtime is what every command needs once flags, files and environment
// have been merged.
type runtime struct {
	cfg     config.Config
	logger  zerolog.Logger
	printer printer
}

// loadConfig merges configuration with the precedence
// flags > environment (.env included) > config file > defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()

	envFile, _ := flags.GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return config.Config{}, err
	}

	configPath, _ := flags.GetString("config")
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return cfg, errors.Wrapf(err, "load config %s", configPath)
	}
	cfg.ApplyEnv(os.Getenv)

	if v, _ := flags.GetString("backend"); v != "" {
		cfg.Backend.URI = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	return cfg, cfg.Validate()
}

func loadRuntime(cmd *cobra.Command, interactive bool) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	format, _ := cmd.Flags().GetString("output")
	p, err := newPrinter(cmd.OutOrStdout(), format)
	if err != nil {
		return nil, err
	}

	// The TUI owns the terminal, so it only logs to the file.
	logger := logging.Init(logging.FromConfig(cfg.Log, !interactive))

	return &runtime{cfg: cfg, logger: logger, printer: p}, nil
}

func (r *runtime) dialog() (*dialog.Service, error) {
	conn, err := backend.NewConnector(backend.Config{
		BaseURL: r.cfg.Backend.URI,
		Timeout: r.cfg.RequestTimeout(),
		Logger:  r.logger,
	})
	if err != nil {
		return nil, err
	}
	return dialog.NewService(conn, r.logger), nil
}

func (r *runtime) openStore() (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(r.cfg.StorePath())
	if err != nil {
		return nil, errors.Wrap(err, "open local store")
	}
	return st, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd, true)
	if err != nil {
		return err
	}

	thread := rt.cfg.Thread
	if len(args) > 0 {
		thread = args[0]
	}

	svc, err := rt.dialog()
	if err != nil {
		return err
	}
	st, err := rt.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	stashBackend, closeStash, err := stash.OpenBackend(rt.cfg.Stash.Backend, rt.cfg.DataDir, st)
	if err != nil {
		return err
	}
	defer closeStash()
	activity, err := stash.New(stashBackend)
	if err != nil {
		return err
	}

	wf := workflow.New(svc, workflow.Options{Committer: svc, Journal: st, Logger: rt.logger})
	defer wf.Close()

	app := tui.NewAppModel(wf, tui.Options{Thread: thread, Stash: activity, Logger: rt.logger})
	p := tea.NewProgram(&app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "run terminal ui")
	}
	return nil
}
