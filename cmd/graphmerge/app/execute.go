package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentstation/graphmerge/cmd/graphmerge/cmd/ids"
	"github.com/agentstation/graphmerge/cmd/graphmerge/cmd/resolve"
	schemacmd "github.com/agentstation/graphmerge/cmd/graphmerge/cmd/schema"
)

// Execute runs the graphmerge CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "graphmerge",
		Short:   "Entity resolution and incremental graph merge",
		Version: a.version,
		Long: `Graphmerge collapses raw entity observations produced by an extraction
service into one canonical record per real-world entity, assigns stable
identifiers, and merges the result into a property graph.

Information is never discarded: conflicting facts are recorded next to the
value that was seen first, and repeated runs over the same input leave the
graph unchanged.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})

	f := &globalFlags{}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.config, "config", "", "config file (default is $HOME/.graphmerge.yaml)")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	pf.BoolVarP(&f.quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	pf.BoolVar(&f.noColor, "no-color", false, "disable colored output")
	pf.StringVarP(&f.format, "format", "o", "", "output format: table, json, yaml")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	a.flags = f

	rootCmd.SetVersionTemplate("graphmerge {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// globalFlags holds the persistent flags. They are kept apart from Config
// so that unset flags never overwrite values from the environment.
type globalFlags struct {
	config   string
	verbose  bool
	quiet    bool
	noColor  bool
	format   string
	logLevel string
}

// setupCommand applies the global flags before any command runs.
func (a *App) setupCommand(_ *cobra.Command, _ []string) error {
	f := a.flags

	// An explicit config file replaces the one found at startup
	if f.config != "" && f.config != viper.ConfigFileUsed() {
		viper.Set("config", f.config)
		config, err := LoadConfig()
		if err != nil {
			return err
		}
		a.config = config
	}

	a.config.UpdateFromFlags(f.verbose, f.quiet, f.noColor, f.format, f.logLevel)

	logger := NewLogger(a.config)
	a.logger = &logger

	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(resolve.NewCommand(a))
	rootCmd.AddCommand(ids.NewCommand(a))
	rootCmd.AddCommand(schemacmd.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(a.NewVersionCommand())
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("graphmerge %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		//nolint:errcheck // Ignoring write error since we're exiting anyway
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
