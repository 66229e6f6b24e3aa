package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spachava753/pipetask/internal/executor"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: pipetask <run.yaml>")
		os.Exit(1)
	}

	configPath := os.Args[1]

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	defer func() {
		signal.Stop(sigChan)
		cancel()
	}()

	go func() {
		sig := <-sigChan
		slog.Info("interrupt received, cancelling run...", "signal", sig)
		cancel()
	}()

	result, err := executor.RunFromConfig(ctx, configPath)
	if err != nil {
		if executor.IsTaskError(err) {
			slog.Error("task failed", "error", err)
		} else {
			slog.Error("run failed", "error", err)
		}
		os.Exit(1)
	}

	// Print summary
	fmt.Printf("\nRun: %s (%s)\n", result.RunName, result.RunID)
	for _, step := range result.Steps {
		fmt.Printf("  %s [%s]: %d quanta\n", step.Label, step.TaskName, step.Quanta)
	}
	fmt.Printf("Total quanta: %d\n", result.TotalQuanta)
	fmt.Printf("Completed: %d\n", result.CompletedQuanta)
	fmt.Printf("Duration: %.2fs\n", result.TotalDurationSec)

	if !result.Executed {
		fmt.Println("Nothing was executed: a pre-call hook failed")
		os.Exit(1)
	}
}
