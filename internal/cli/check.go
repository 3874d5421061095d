package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"translator-agent/internal/command"
	"translator-agent/internal/loader"
	"translator-agent/internal/servicemsg"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	Load     bool
	Checkout string
}

// checkoutOnly pretends a build is running in a fixed checkout directory.
type checkoutOnly string

func (c checkoutOnly) IsRunningBuild() bool      { return c != "" }
func (c checkoutOnly) CheckoutDirectory() string { return string(c) }

// NewCheckCommand creates the check command.
func NewCheckCommand(_ *RootOptions) *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check [message...]",
		Short: "Validate RegexMessageParser service messages",
		Long: `Parse each argument (or each stdin line when no arguments are given) as a
RegexMessageParser service message and report the resulting command.

With --load the identified parser is also loaded, resolving relative files
against --checkout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := args
			if len(lines) == 0 {
				var err error
				if lines, err = readLines(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			return runCheck(cmd.OutOrStdout(), lines, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Load, "load", false, "load the identified parser as well")
	cmd.Flags().StringVar(&opts.Checkout, "checkout", "", "checkout directory for relative parser files")

	return cmd
}

func runCheck(out io.Writer, lines []string, opts *CheckOptions) error {
	var l *loader.Loader
	if opts.Load {
		l = loader.New(checkoutOnly(opts.Checkout))
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"#", "Command", "Scope", "Identifier", "Result"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	failed := 0
	for i, line := range lines {
		row, ok := checkLine(line, l)
		if !ok {
			failed++
		}
		table.Append(append([]string{strconv.Itoa(i + 1)}, row...))
	}
	table.Render()

	if failed > 0 {
		return fmt.Errorf("%d of %d message(s) rejected", failed, len(lines))
	}
	return nil
}

// checkLine returns the Command, Scope, Identifier and Result columns.
func checkLine(line string, l *loader.Loader) ([]string, bool) {
	msg, err := servicemsg.Parse(line)
	if err != nil {
		return []string{"-", "-", "-", err.Error()}, false
	}
	cmd, err := command.Parse(msg)
	if err != nil {
		return []string{msg.Name, "-", "-", errorResult(err)}, false
	}

	ident := "-"
	var id command.ParserID
	switch c := cmd.(type) {
	case command.EnableCommand:
		id, ident = c.ID, c.ID.String()
	case command.DisableCommand:
		id, ident = c.ID, c.ID.String()
	}
	row := []string{strings.TrimPrefix(cmd.Name(), command.Prefix), string(cmd.CommandScope()), ident, "ok"}

	if l == nil || ident == "-" {
		return row, true
	}
	p, err := l.Load(id)
	switch {
	case err != nil:
		row[3] = errorResult(err)
		return row, false
	case p == nil:
		row[3] = "ok (nothing to load)"
	default:
		row[3] = fmt.Sprintf("ok (%s, %d rules)", p.Name(), p.RuleCount())
	}
	return row, true
}

func errorResult(err error) string {
	if code := command.CodeOf(err); code != "" {
		return string(code)
	}
	return err.Error()
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
