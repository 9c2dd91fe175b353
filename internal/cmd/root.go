package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/karmanspace/tracker/internal/config"
	"github.com/karmanspace/tracker/internal/errors"
	"github.com/karmanspace/tracker/internal/prompt"
	"github.com/karmanspace/tracker/internal/styles"
)

// RootOption configures the command tree.
type RootOption func(*rootOptions)

type rootOptions struct {
	prompter prompt.Prompter
}

// WithPrompter replaces the terminal prompter.
func WithPrompter(p prompt.Prompter) RootOption {
	return func(o *rootOptions) { o.prompter = p }
}

// NewRootCmd builds the tracker command tree.
func NewRootCmd(opts ...RootOption) *cobra.Command {
	o := &rootOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.prompter == nil {
		o.prompter = prompt.NewTerminal(os.Stdin)
	}

	rootCmd := &cobra.Command{
		Use:   "tracker",
		Short: "Track requests between teams",
		Long: `Tracker records the questions teams ask each other and how they depend
on one another.

A request is asked by one team (the requester) of another (the requestee).
Answering it may need further requests, which the requestee asks in turn.
Solving a request archives it together with its answer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "config file (default is $HOME/.config/tracker/config.yaml)")
	pf.StringP("team", "t", "", "team you are acting as")
	pf.String("storage", "", "storage backend ("+strings.Join(config.ValidBackends(), ", ")+")")
	pf.String("data-dir", "", "data directory for stored requests and logs")
	pf.Bool("no-color", false, "disable styled output")

	env := &environment{prompter: o.prompter}
	for _, register := range []func(*cobra.Command, *environment){
		registerRequestCmd,
		registerSolveCmd,
		registerEditCmd,
		registerMoveCmd,
		registerLinkCmds,
		registerClearCmd,
		registerDisplayCmd,
		registerSearchCmd,
		registerArchiveCmd,
		registerTeamsCmd,
		registerOutboxCmd,
		registerWatchCmd,
		registerLogsCmd,
		registerConfigCmd,
	} {
		register(rootCmd, env)
	}
	return rootCmd
}

// Execute runs the root command with ctx and reports a failure on stderr.
func Execute(ctx context.Context) error {
	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		reportError(root.ErrOrStderr(), err)
	}
	return err
}

// reportError prints err, with a hint when the failure is transient.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, styles.Failure(err.Error()))
	if errors.IsRetryable(err) {
		fmt.Fprintln(w, styles.Info("The storage backend may be temporarily unavailable. Try again."))
	}
}

func initConfig(cmd *cobra.Command) error {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	flags := cmd.Flags()
	bindings := map[string]string{
		"config":   "config",
		"team":     "team",
		"storage":  "storage.backend",
		"data-dir": "storage.dir",
	}
	for flag, key := range bindings {
		if f := flags.Lookup(flag); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
	}

	viper.SetEnvPrefix("TRACKER")
	// Replace dots with underscores for nested keys in env vars
	// e.g., TRACKER_STORAGE_BACKEND for storage.backend
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || viper.GetString("config") != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if noColor, _ := flags.GetBool("no-color"); noColor || os.Getenv("NO_COLOR") != "" {
		styles.SetColor(false)
	} else {
		styles.SetColor(viper.GetBool("display.color"))
	}
	return nil
}
