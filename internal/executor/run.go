package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spachava753/pipetask/internal/config"
	"github.com/spachava753/pipetask/internal/graph"
	"github.com/spachava753/pipetask/internal/models"
	"github.com/spachava753/pipetask/internal/pipeline"
	"github.com/spachava753/pipetask/internal/plan"
	"github.com/spachava753/pipetask/internal/repository"
	"github.com/spachava753/pipetask/internal/task"
	"github.com/spachava753/pipetask/internal/task/example"
	"github.com/spachava753/pipetask/internal/telemetry"
)

// RunFromConfig loads a run config file and executes the run it
// describes.
func RunFromConfig(ctx context.Context, configPath string) (*models.RunResult, error) {
	cfg, err := config.LoadRunConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading run config: %w", err)
	}
	logger := telemetry.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	baseDir := filepath.Dir(configPath)

	reg := task.NewRegistry()
	defer reg.Close()
	if err := example.Register(reg); err != nil {
		return nil, fmt.Errorf("registering tasks: %w", err)
	}

	factory, err := repository.NewFactory(cfg.Repository)
	if err != nil {
		return nil, fmt.Errorf("creating repository: %w", err)
	}

	runName := time.Now().Format("2006-01-02__15-04-05")
	if cfg.Name != nil {
		runName = *cfg.Name
	}

	promReg := prometheus.NewRegistry()
	d, err := NewDispatcher(Options{
		Name:          runName,
		Processes:     cfg.Processes,
		Timeout:       time.Duration(cfg.TimeoutSec * float64(time.Second)),
		FailFast:      cfg.FailFast,
		ClobberConfig: cfg.ClobberConfig,
		Registry:      reg,
		Repository:    factory,
		Metrics:       NewMetrics(promReg),
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	var result *models.RunResult
	if cfg.Legacy != nil {
		ovr, lerr := config.OverrideList(cfg.Legacy.Overrides, baseDir)
		if lerr != nil {
			return nil, fmt.Errorf("legacy: %w", lerr)
		}
		result, err = d.RunLegacy(ctx, cfg.Legacy.Task, cfg.Legacy.Label, ovr, cfg.Legacy.Items)
	} else {
		steps, perr := planRun(ctx, cfg, reg, factory, baseDir)
		if perr != nil {
			return nil, perr
		}
		result, err = d.Run(ctx, steps)
	}

	if cfg.MetricsFile != "" {
		if werr := prometheus.WriteToTextfile(cfg.MetricsFile, promReg); werr != nil {
			logger.Warn("failed to write metrics", "path", cfg.MetricsFile, "error", werr)
		}
	}
	return result, err
}

// planRun builds, orders and plans the configured pipeline, writing the
// requested graph files along the way.
func planRun(ctx context.Context, cfg models.RunConfig, reg *task.Registry, factory repository.Factory, baseDir string) ([]plan.Step, error) {
	p, err := config.BuildPipeline(cfg, reg, baseDir)
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	if cfg.OrderPipeline {
		if p, err = pipeline.Order(p, reg); err != nil {
			return nil, err
		}
	} else {
		ok, err := pipeline.IsOrdered(p, reg)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &models.PlanningError{Message: "pipeline tasks are not in dependency order (set order_pipeline to sort them)"}
		}
	}

	if cfg.PipelineDot != "" {
		if err := graph.SavePipeline(cfg.PipelineDot, p, reg); err != nil {
			return nil, fmt.Errorf("writing pipeline graph: %w", err)
		}
	}

	repo, err := factory()
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	defer repo.Close()

	steps, err := plan.NewBuilder(reg, repo).BuildPlan(ctx, p, cfg.Inputs, cfg.Outputs)
	if err != nil {
		return nil, err
	}
	slog.Debug("plan built", "steps", len(steps))

	if cfg.QGraphDot != "" {
		if err := graph.SaveQuantumGraph(cfg.QGraphDot, steps); err != nil {
			return nil, fmt.Errorf("writing quantum graph: %w", err)
		}
	}
	return steps, nil
}
