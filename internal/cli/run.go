package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pablasso/crewflow/internal/ai"
	"github.com/pablasso/crewflow/internal/config"
	"github.com/pablasso/crewflow/internal/demo"
	"github.com/pablasso/crewflow/internal/display"
	"github.com/pablasso/crewflow/internal/executor"
	"github.com/pablasso/crewflow/internal/logging"
	"github.com/pablasso/crewflow/internal/metrics"
	"github.com/pablasso/crewflow/internal/plan"
	"github.com/pablasso/crewflow/internal/report"
	"github.com/pablasso/crewflow/internal/skills"
	"github.com/pablasso/crewflow/internal/tui"
)

func newRunCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every task in a task file",
		Long: `Run loads a batch of tasks and drives each one through planning, step
execution with review, and a final review. A Markdown and a JSON report is
written per task and every model response is appended to the run log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			tasks, err := plan.LoadTasks(cfg.Tasks)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return executeRun(ctx, runOptions{
				cfg:    cfg,
				tasks:  tasks,
				preset: demo.PresetQuick,
				out:    cmd.OutOrStdout(),
				errOut: cmd.ErrOrStderr(),
			})
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVar(&configFile, "config", "", "Config file (default ./crewflow.yaml when present)")
	return cmd
}

type runOptions struct {
	cfg    *config.Config
	tasks  []plan.Task
	preset demo.Preset
	out    io.Writer
	errOut io.Writer
}

// crew groups the collaborators of one run.
type crew struct {
	planner     executor.Planner
	reviewer    executor.Reviewer
	runner      executor.StepRunner
	coordinator executor.Coordinator
}

func newCrew(opts runOptions, presenter ai.Presenter, recorder ai.Recorder, logger logrus.FieldLogger) (*crew, error) {
	cfg := opts.cfg
	if cfg.Demo != "" {
		scenario, err := demo.ParseScenario(cfg.Demo)
		if err != nil {
			return nil, err
		}
		demoCfg, err := demo.NewConfig(scenario, opts.preset)
		if err != nil {
			return nil, err
		}
		c := demo.NewCrew(demoCfg, presenter, recorder, logger)
		return &crew{planner: c, reviewer: c, runner: c, coordinator: c}, nil
	}

	client, err := ai.NewOpenAIClient(cfg.Client(), logger)
	if err != nil {
		return nil, err
	}
	aiOpts := ai.Options{
		Client:    client,
		Recorder:  recorder,
		Presenter: presenter,
		Logger:    logger,
	}
	return &crew{
		planner:     ai.NewPlanner(aiOpts),
		reviewer:    ai.NewReviewer(aiOpts),
		runner:      ai.NewStepAgent(skills.Default(), cfg.MaxSkillInvocations, aiOpts),
		coordinator: ai.NewCoordinator(aiOpts),
	}, nil
}

// executeRun runs opts.tasks and reports the outcome on opts.out.
func executeRun(ctx context.Context, opts runOptions) error {
	cfg := opts.cfg

	logger, err := logging.New(cfg.LogLevel, opts.errOut)
	if err != nil {
		return err
	}
	if cfg.Demo != "" {
		if _, err := demo.ParseScenario(cfg.Demo); err != nil {
			return err
		}
	}

	if len(opts.tasks) == 0 {
		fmt.Fprintf(opts.out, "No tasks found in %s. Nothing to do.\n", cfg.Tasks)
		return nil
	}

	lock := plan.NewRunLock(cfg.ReportsDir)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.WithError(err).Warn("failed to release run lock")
		}
	}()

	runLog, err := plan.NewRunLog(cfg.LogsDir, cfg.RunName)
	if err != nil {
		return err
	}
	log := logger.WithField("run_id", runLog.RunID())
	sink := report.NewSink(cfg.ReportsDir, log)
	recorder := metrics.NewRecorder()
	logEvents := newRunLogEvents(runLog, log)

	batch := func(ctx context.Context, events executor.Events, presenter ai.Presenter) ([]*plan.TaskRunResult, error) {
		if cfg.Quiet {
			presenter = nil
		}
		c, err := newCrew(opts, presenter, runLog, log)
		if err != nil {
			return nil, err
		}
		engine := executor.New(cfg.Executor(), c.planner, c.reviewer, c.runner).
			WithSink(sink).
			WithEvents(executor.MultiEvents(events, recorder, logEvents)).
			WithLogger(log)
		if !cfg.NoCoordinator {
			engine = engine.WithCoordinator(c.coordinator)
		}
		return executor.NewBatch(engine).WithContinueOnError(cfg.KeepGoing).Run(ctx, opts.tasks)
	}

	var results []*plan.TaskRunResult
	var runErr error
	if cfg.TUI {
		results, runErr = tui.Run(ctx, cfg.RunName, opts.tasks, cfg.Executor(), batch)
	} else {
		results, runErr = runPlain(ctx, opts, batch)
	}

	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			log.WithError(err).Warn("failed to write metrics file")
		}
	}

	fmt.Fprintf(opts.out, "\nCompleted %d of %d tasks.\n", len(results), len(opts.tasks))
	fmt.Fprintf(opts.out, "Reports: %s\n", sink.Dir())
	fmt.Fprintf(opts.out, "Run log: %s\n", runLog.Path())
	return runErr
}

// runPlain reports progress as plain lines, with a live status line when out
// is a terminal.
func runPlain(ctx context.Context, opts runOptions, batch tui.BatchFunc) ([]*plan.TaskRunResult, error) {
	d := display.New(opts.out)
	var presenter ai.Presenter
	if !opts.cfg.Quiet {
		presenter = display.NewPrinter(opts.out).Above(d)
	}
	if isTerminal(opts.out) {
		d.Start()
		defer d.Stop()
	}
	return batch(ctx, display.NewProgress(d, opts.cfg.Executor()), presenter)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
