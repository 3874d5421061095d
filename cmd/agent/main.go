package main

import (
	"errors"
	"os"

	"translator-agent/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var stepErr *cli.StepError
		if errors.As(err, &stepErr) {
			os.Exit(stepErr.ExitCode)
		}
		os.Exit(1)
	}
}
