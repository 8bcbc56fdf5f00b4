package main

import (
	"fmt"
	"os"

	"github.com/xformctl/xformctl/internal/logging"
	"github.com/xformctl/xformctl/internal/task"
)

func main() {
	logging.ConfigureRuntime()
	log := logging.New("xformctl")

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: xformctl <task.toml>")
		os.Exit(2)
	}

	t, err := loadTask(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "xformctl: %v\n", err)
		os.Exit(1)
	}

	report, err := task.NewRunner(log).Run(t)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xformctl: %v\n", err)
		os.Exit(1)
	}

	for _, d := range report.Outputs {
		log.Info().
			Str("path", d.Path).
			Str("media_type", d.MediaType).
			Str("encoding", d.Encoding).
			Msg("output committed")
	}
}
