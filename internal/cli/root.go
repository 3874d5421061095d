// Package cli implements the agent command line.
package cli

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"translator-agent/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Quiet  bool
	Format string // "teamcity" | "plain"

	// Config is loaded from the environment before any subcommand runs.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"teamcity", "plain"}

// NewRootCommand creates the root command for the agent CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Build log translator agent",
		Long: `Translates build log lines with regex translators that the build itself
enables, disables and resets through RegexMessageParser service messages:

  ##teamcity[RegexMessageParser.Enable resource='presets/maven.yaml' scope='build']
  ##teamcity[RegexMessageParser.Disable file='conf/parser.yaml']
  ##teamcity[RegexMessageParser.Reset scope='runner']`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("format") {
				if !isValidFormat(opts.Format) {
					return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
				}
				cfg.OutputFormat = opts.Format
			}
			opts.Config = cfg
			if opts.Quiet {
				log.SetOutput(io.Discard)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress agent logs on stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "teamcity", "output format (teamcity|plain)")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTailCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewEmitCommand(opts))
	cmd.AddCommand(NewPresetsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
