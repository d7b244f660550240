package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"threadterm/internal/config"
	"threadterm/internal/devserver"
	"threadterm/internal/logging"
	"threadterm/internal/model"
)

// NewServerCommand builds the threadd command tree.
func NewServerCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "threadd",
		Short:         "Development backend serving threads from files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn, error")
	rootCmd.PersistentFlags().String("storage", "", "thread storage directory")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSeedCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the thread API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().String("bind", "", "listen address")
	cmd.Flags().String("prefix", "", "route prefix, e.g. /api")
	return cmd
}

func openBroker(cmd *cobra.Command, cfg config.Config) (*devserver.FileBroker, error) {
	storage := cfg.Server.StorageDir
	if v, _ := cmd.Flags().GetString("storage"); v != "" {
		storage = v
	}
	return devserver.NewFileBroker(storage)
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("bind"); v != "" {
		cfg.Server.Bind = v
	}
	if v, _ := cmd.Flags().GetString("prefix"); v != "" {
		cfg.Server.Prefix = v
	}

	logger := logging.Init(logging.FromConfig(cfg.Log, true))

	broker, err := openBroker(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := devserver.NewServer(broker, devserver.MockSuggester{}, cfg.Server.Prefix, logger)
	return srv.Run(ctx, cfg.Server.Bind)
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <thread>",
		Short: "Create a small sample thread",
		Args:  cobra.ExactArgs(1),
		RunE:  runSeedCmd,
	}
}

func runSeedCmd(cmd *cobra.Command, args []string) error {
	thread := args[0]
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	broker, err := openBroker(cmd, cfg)
	if err != nil {
		return err
	}

	if err := broker.SetArchivingInstruction(thread, "Summarize the selected messages in one paragraph."); err != nil {
		return err
	}
	_, err = broker.Append(thread, []model.Message{
		{ThreadUID: thread, Order: 1, Role: model.RoleUser, Text: "Can you explain what a goroutine is?"},
		{ThreadUID: thread, Order: 2, Role: model.RoleAssistant, Text: "A goroutine is a function running concurrently with others in the same address space."},
		{ThreadUID: thread, Order: 3, Role: model.RoleUser, Text: "And how do they communicate?"},
		{ThreadUID: thread, Order: 4, Role: model.RoleAssistant, Text: "Mostly through channels, which pass values between goroutines."},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded thread %s\n", thread)
	return nil
}
