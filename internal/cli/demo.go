package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pablasso/crewflow/internal/config"
	"github.com/pablasso/crewflow/internal/demo"
)

func newDemoCmd() *cobra.Command {
	var (
		scenario string
		preset   string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the sample tasks with scripted collaborators",
		Long: `Run the built-in sample tasks against a scripted crew. No API key is
required. Useful for trying the progress output and the reports.

Scenarios:
  success        every plan and step is approved (default)
  flaky          one step is rejected once, then approved
  replan         one step asks for a new plan
  rejected-plan  the first plan is rejected
  fail           a step is never approved and the run stops

Presets:
  quick    no delay between responses (default)
  medium   300ms per response
  slow     1.5s per response`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := demo.ParseScenario(scenario)
			if err != nil {
				return err
			}
			p, err := demo.ParsePreset(preset)
			if err != nil {
				return err
			}

			cfg, err := config.Load(cmd.Flags(), "")
			if err != nil {
				return err
			}
			cfg.Demo = string(s)
			cfg.Tasks = "(built-in sample tasks)"
			if err := cfg.Validate(); err != nil {
				return err
			}
			tasks, err := demo.SampleTasks()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return executeRun(ctx, runOptions{
				cfg:    cfg,
				tasks:  tasks,
				preset: p,
				out:    cmd.OutOrStdout(),
				errOut: cmd.ErrOrStderr(),
			})
		},
	}

	names := make([]string, 0, len(demo.Scenarios()))
	for _, s := range demo.Scenarios() {
		names = append(names, string(s))
	}
	cmd.Flags().StringVar(&scenario, "scenario", string(demo.ScenarioSuccess),
		fmt.Sprintf("Demo scenario: %s", strings.Join(names, ", ")))
	cmd.Flags().StringVar(&preset, "preset", string(demo.PresetQuick), "Pacing preset: quick, medium, slow")

	// The run flags apply unchanged. The task file and the scenario come from
	// the demo itself.
	config.RegisterFlags(cmd.Flags())
	_ = cmd.Flags().MarkHidden(config.KeyTasks)
	_ = cmd.Flags().MarkHidden(config.KeyDemo)
	return cmd
}
