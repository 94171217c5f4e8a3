package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the partrack CLI with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// flag targets shared by the persistent flags; the config is rebuilt
// from them in setupCommand once cobra has parsed.
type persistentFlags struct {
	configFile string
	verbose    bool
	quiet      bool
	noColor    bool
	logLevel   string
	dryRun     bool
	slack      bool
	only       []string
	limit      int
}

func (a *App) createRootCommand() *cobra.Command {
	flags := &persistentFlags{}

	rootCmd := &cobra.Command{
		Use:     "partrack",
		Short:   "Standards project tracker sync",
		Version: a.version,
		Long: `Partrack keeps the committee's project tracking database in step
with its external sources of truth: the status spreadsheet, the
standards body's development server, and the mailing-list archive.

Each subcommand syncs one source. All of them are idempotent and
honor --dry-run, which logs every write that would have happened
without touching the database.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupCommand(flags)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "secrets YAML file (default secrets.yml)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolVarP(&flags.quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	rootCmd.PersistentFlags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "log writes without performing them")
	rootCmd.PersistentFlags().BoolVarP(&flags.slack, "slack", "z", false, "post recent events to the Slack webhook")
	rootCmd.PersistentFlags().StringSliceVarP(&flags.only, "only", "O", nil, "restrict processing to these designations")
	rootCmd.PersistentFlags().IntVar(&flags.limit, "limit", 0, "bound the number of listing pages walked")

	rootCmd.SetVersionTemplate("partrack {{.Version}}\n")

	a.registerCommands(rootCmd)
	return rootCmd
}

// setupCommand runs before any command: it reloads the configuration
// when --config names a different secrets file, folds the parsed flags
// in, and reinitializes the logger.
func (a *App) setupCommand(flags *persistentFlags) error {
	if flags.configFile != "" && flags.configFile != a.config.ConfigFile {
		config, err := LoadConfig(flags.configFile)
		if err != nil {
			return err
		}
		a.config = config
	}
	a.config.UpdateFromFlags(flags.verbose, flags.quiet, flags.noColor,
		flags.dryRun, flags.slack, flags.logLevel, flags.only, flags.limit)

	logger := NewLogger(a.config).With().Str("run_id", a.runID).Logger()
	a.logger = &logger
	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(a.NewSpreadsheetCommand())
	rootCmd.AddCommand(a.NewParsCommand())
	rootCmd.AddCommand(a.NewReportCommand())
	rootCmd.AddCommand(a.NewBallotsCommand())
	rootCmd.AddCommand(a.NewMailCommand())
	rootCmd.AddCommand(a.NewDraftsCommand())
	rootCmd.AddCommand(a.NewVersionCommand())
}

// ExitOnError prints an error and exits with status 1. It is meant for
// top-level error handling in main.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
