package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"translator-agent/internal/config"
	"translator-agent/internal/monitor"
	"translator-agent/internal/process"
)

// StepError reports a build step that exited non-zero.
type StepError struct {
	Step     string
	ExitCode int
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed with exit code %d", e.Step, e.ExitCode)
}

// RunOptions holds flags for the run command.
type RunOptions struct {
	Steps    []string
	Checkout string
	BuildID  string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run --step name=command [--step ...]",
		Short: "Run build steps and translate their output",
		Long: `Run one build with each --step as a runner, in order. Step output is
translated and written to stdout. The first failing step ends the build.`,
		Example: `  agent run --checkout . \
    --step "compile=mvn -B compile" \
    --step "test=go test -v ./..."`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps, err := parseSteps(opts.Steps)
			if err != nil {
				return err
			}
			checkout := opts.Checkout
			if checkout == "" {
				checkout = rootOpts.Config.CheckoutDir
			}
			if checkout == "" {
				if checkout, err = os.Getwd(); err != nil {
					return err
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBuild(ctx, rootOpts.Config, cmd.OutOrStdout(), opts.BuildID, checkout, steps)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Steps, "step", nil, "build step as name=command (repeatable)")
	cmd.Flags().StringVar(&opts.Checkout, "checkout", "", "checkout directory (default $CHECKOUT_DIR or the working directory)")
	cmd.Flags().StringVar(&opts.BuildID, "build-id", "", "build id (generated when empty)")
	_ = cmd.MarkFlagRequired("step")

	return cmd
}

func parseSteps(raw []string) ([]process.Step, error) {
	steps := make([]process.Step, 0, len(raw))
	for i, s := range raw {
		name, command, ok := strings.Cut(s, "=")
		if !ok {
			name, command = fmt.Sprintf("step-%d", i+1), s
		}
		name, command = strings.TrimSpace(name), strings.TrimSpace(command)
		if name == "" || command == "" {
			return nil, fmt.Errorf("invalid step %q: want name=command", s)
		}
		steps = append(steps, process.Step{Name: name, Command: command})
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("no steps given")
	}
	return steps, nil
}

func runBuild(ctx context.Context, cfg *config.Config, out io.Writer, buildID, checkout string, steps []process.Step) error {
	a, err := newAgent(cfg, out)
	if err != nil {
		return err
	}
	defer a.close()

	info, err := a.startBuild(buildID, checkout)
	if err != nil {
		return err
	}

	sampler := monitor.NewRunnerSampler(a.collector)
	g, gctx := errgroup.WithContext(ctx)
	sampleCtx, stopSampling := context.WithCancel(gctx)
	g.Go(func() error {
		sampler.Run(sampleCtx, cfg.SampleInterval)
		return nil
	})
	g.Go(func() error {
		defer stopSampling()
		for _, step := range steps {
			step.Dir = info.CheckoutDir
			step.Env = []string{"BUILD_ID=" + info.ID, "CHECKOUT_DIR=" + info.CheckoutDir}
			if err := runStep(gctx, a, sampler, step); err != nil {
				return err
			}
		}
		return nil
	})

	err = g.Wait()
	if ferr := a.finishBuild(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

func runStep(ctx context.Context, a *agent, sampler *monitor.RunnerSampler, step process.Step) error {
	if err := a.pool.Sync(); err != nil {
		return err
	}
	if err := a.tracker.StartRunner(step.Name); err != nil {
		return err
	}

	runner := process.NewRunner(a.pool)
	runner.OnStart = func(pid int) { sampler.Track(step.Name, pid) }
	res, runErr := runner.Run(ctx, step)
	sampler.Untrack()

	if err := a.pool.Sync(); err != nil {
		return err
	}
	if err := a.tracker.FinishRunner(); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if res.ExitCode != 0 {
		return &StepError{Step: step.Name, ExitCode: res.ExitCode}
	}
	return nil
}
