package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"translator-agent/internal/command"
	"translator-agent/internal/servicemsg"
)

// EmitOptions holds flags for the emit command.
type EmitOptions struct {
	Scope    string
	Name     string
	Resource string
	File     string
}

// NewEmitCommand creates the emit command.
func NewEmitCommand(_ *RootOptions) *cobra.Command {
	opts := &EmitOptions{}

	cmd := &cobra.Command{
		Use:   "emit enable|disable|reset",
		Short: "Print a RegexMessageParser service message",
		Long: `Print the service message a build step writes to its output to control
translators, for use in build scripts:

  agent emit enable --resource presets/gotest.yaml --scope build`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"enable", "disable", "reset"},
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := emitLine(args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Scope, "scope", string(command.DefaultScope), "runner|next-runner|build")
	cmd.Flags().StringVar(&opts.Name, "name", "", "parser name")
	cmd.Flags().StringVar(&opts.Resource, "resource", "", "bundled parser resource path")
	cmd.Flags().StringVar(&opts.File, "file", "", "parser definition file")

	return cmd
}

func emitLine(verb string, opts *EmitOptions) (string, error) {
	var name string
	switch verb {
	case "enable":
		name = command.Enable
	case "disable":
		name = command.Disable
	case "reset":
		name = command.Reset
	default:
		return "", fmt.Errorf("unknown command %q: must be enable, disable or reset", verb)
	}

	// Parsing falls back to the default scope silently; be strict here.
	if command.ResolveScope(opts.Scope, "") == "" {
		return "", fmt.Errorf("invalid scope %q: must be one of %v", opts.Scope, command.Scopes())
	}

	attrs := map[string]string{command.AttrScope: opts.Scope}
	if verb != "reset" {
		for key, value := range map[string]string{
			command.AttrName:     opts.Name,
			command.AttrResource: opts.Resource,
			command.AttrFile:     opts.File,
		} {
			if value != "" {
				attrs[key] = value
			}
		}
	}

	cmd, err := command.Parse(servicemsg.Message{Name: name, Attributes: attrs})
	if err != nil {
		return "", err
	}
	return servicemsg.Format(command.Message(cmd)), nil
}
