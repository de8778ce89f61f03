package main

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/partbot/internal/config"
	"github.com/JonMunkholm/partbot/internal/logging"
)

// Command annotations read by the root pre-run hook.
const (
	annotationSkipConfig = "skipConfigLoad"
	annotationNeedsBot   = "needsBot"
)

type commandContext struct {
	envFile string
	config  *config.Config
}

func newRootCommand() *cobra.Command {
	cc := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "partbot",
		Short:         "Warehouse spare-part movement bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cc.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cc.envFile, "env-file", ".env", "Environment file loaded before configuration (overrides the process environment)")

	rootCmd.AddCommand(newServeCommand(cc))
	rootCmd.AddCommand(newSchemaCommand(cc))
	rootCmd.AddCommand(newSearchCommand(cc))
	rootCmd.AddCommand(newResolveCommand(cc))
	rootCmd.AddCommand(newWorkbookCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// load reads the env file, then configuration, then sets up logging.
// Commands without the needsBot annotation load with the chat transport
// off, so they run without a bot token.
func (cc *commandContext) load(cmd *cobra.Command) error {
	if hasAnnotation(cmd, annotationSkipConfig) {
		return nil
	}

	envErr := godotenv.Overload(cc.envFile)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		return envErr
	}

	loadConfig := config.LoadOffline
	if hasAnnotation(cmd, annotationNeedsBot) {
		loadConfig = config.Load
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if envErr == nil {
		slog.Debug("loaded env file (overwriting existing env vars)", "path", cc.envFile)
	}
	cc.config = cfg
	return nil
}

func hasAnnotation(cmd *cobra.Command, key string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations[key] == "true" {
			return true
		}
	}
	return false
}
