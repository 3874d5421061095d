package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"translator-agent/internal/tailer"
)

// TailOptions holds flags for the tail command.
type TailOptions struct {
	Follow   bool
	FromEnd  bool
	Checkout string
}

// NewTailCommand creates the tail command.
func NewTailCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TailOptions{}

	cmd := &cobra.Command{
		Use:   "tail <file>",
		Short: "Translate an existing or growing build log",
		Long: `Read a build log file through the translator pipeline.

With --checkout (or CHECKOUT_DIR) the file is read inside a build, so
relative parser files resolve against that directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checkout := opts.Checkout
			if checkout == "" {
				checkout = rootOpts.Config.CheckoutDir
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTail(ctx, rootOpts, cmd, args[0], checkout, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "keep reading as the file grows")
	cmd.Flags().BoolVar(&opts.FromEnd, "from-end", false, "with --follow, skip the existing content")
	cmd.Flags().StringVar(&opts.Checkout, "checkout", "", "checkout directory of the build")

	return cmd
}

func runTail(ctx context.Context, rootOpts *RootOptions, cmd *cobra.Command, path, checkout string, opts *TailOptions) error {
	cfg := rootOpts.Config
	a, err := newAgent(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.close()

	if checkout != "" {
		if _, err := a.startBuild("", checkout); err != nil {
			return err
		}
	}

	lines := make(chan string, 256)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(lines)
		return tailer.TailFile(gctx, path, tailer.Options{
			Follow:    opts.Follow,
			Poll:      cfg.TailPoll,
			FromStart: !opts.FromEnd,
		}, lines)
	})
	g.Go(func() error {
		for line := range lines {
			if err := a.pool.SubmitLine(path, line); err != nil {
				return err
			}
		}
		return nil
	})

	err = g.Wait()
	if a.tracker.IsRunningBuild() {
		if ferr := a.finishBuild(); ferr != nil && err == nil {
			err = ferr
		}
	}
	if err == nil {
		err = a.pool.Sync()
	}
	return err
}
