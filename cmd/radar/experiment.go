package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/moneyradar/backend/internal/domain/entity"
)

var (
	expName       string
	expHypothesis string
	expChange     string
	expMetric     string
	expPlanID     int64
	expBaseline   float64
	expTarget     float64
	expActual     float64
	expOutcome    string
	expAll        bool
)

func init() {
	experimentCreateCmd.Flags().StringVar(&expName, "name", "", "Experiment name")
	experimentCreateCmd.Flags().StringVar(&expHypothesis, "hypothesis", "", "What you expect to happen and why")
	experimentCreateCmd.Flags().StringVar(&expChange, "change", "", "Description of the pricing change")
	experimentCreateCmd.Flags().StringVar(&expMetric, "metric", entity.MetricARPU, "Tracked metric: arpu, mrr, churn_rate or conversion_rate")
	experimentCreateCmd.Flags().Int64Var(&expPlanID, "plan", 0, "Restrict the segment to one plan ID")
	experimentCreateCmd.Flags().Float64Var(&expBaseline, "baseline", 0, "Baseline metric value (computed at start when omitted)")
	experimentCreateCmd.Flags().Float64Var(&expTarget, "target", 0, "Target metric value")
	experimentCreateCmd.MarkFlagRequired("name")
	experimentCreateCmd.MarkFlagRequired("hypothesis")
	experimentCreateCmd.MarkFlagRequired("change")

	experimentCompleteCmd.Flags().Float64Var(&expActual, "actual", 0, "Final metric value")
	experimentCompleteCmd.Flags().StringVar(&expOutcome, "outcome", "", "What the experiment showed")
	experimentCompleteCmd.MarkFlagRequired("actual")
	experimentCompleteCmd.MarkFlagRequired("outcome")

	experimentListCmd.Flags().BoolVar(&expAll, "all", false, "Include draft and completed experiments")

	experimentCmd.AddCommand(
		experimentCreateCmd,
		experimentListCmd,
		experimentStartCmd,
		experimentAnalyzeCmd,
		experimentCompleteCmd,
	)
	rootCmd.AddCommand(experimentCmd)
}

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Manage pricing experiments",
}

func experimentID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid experiment ID %q", arg)
	}
	return id, nil
}

var experimentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a draft experiment",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var segment map[string]any
		if expPlanID > 0 {
			segment = map[string]any{"plan_id": expPlanID}
		}
		var baseline, target *float64
		if cmd.Flags().Changed("baseline") {
			baseline = &expBaseline
		}
		if cmd.Flags().Changed("target") {
			target = &expTarget
		}

		experiment, err := a.tracker.Create(
			cmd.Context(), expName, expHypothesis, expChange, expMetric,
			segment, baseline, target,
		)
		if err != nil {
			return err
		}
		fmt.Printf("Created experiment %d (%s) in draft\n", experiment.ID, experiment.Name)
		return nil
	},
}

var experimentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List experiments",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var experiments []*entity.Experiment
		if expAll {
			experiments, err = a.experimentRepo.ListAll(cmd.Context())
		} else {
			experiments, err = a.tracker.ListActive(cmd.Context())
		}
		if err != nil {
			return err
		}
		if len(experiments) == 0 {
			fmt.Println("No experiments.")
			return nil
		}

		w := table()
		fmt.Fprintln(w, "ID\tSTATUS\tMETRIC\tNAME\tOUTCOME")
		for _, e := range experiments {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				e.ID, e.Status, e.MetricTracked, e.Name, e.Outcome)
		}
		return w.Flush()
	},
}

var experimentStartCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Start a draft experiment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := experimentID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		experiment, err := a.tracker.Start(cmd.Context(), id)
		if err != nil {
			return err
		}

		baseline := "n/a"
		if experiment.BaselineValue != nil {
			baseline = fmt.Sprintf("%.2f", *experiment.BaselineValue)
		}
		fmt.Printf("Experiment %d running: baseline %s, control %d, variant %d\n",
			experiment.ID, baseline, experiment.ControlGroupSize, experiment.VariantGroupSize)
		return nil
	},
}

var experimentAnalyzeCmd = &cobra.Command{
	Use:   "analyze <id>",
	Short: "Compare the tracked metric against baseline and target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := experimentID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		analysis, err := a.tracker.Analyze(cmd.Context(), id)
		if err != nil {
			return err
		}

		w := table()
		fmt.Fprintf(w, "Experiment\t%s (%s)\n", analysis.Name, analysis.Status)
		fmt.Fprintf(w, "Metric\t%s\n", analysis.Metric)
		fmt.Fprintf(w, "Baseline\t%.2f\n", analysis.BaselineValue)
		fmt.Fprintf(w, "Current\t%.2f\n", analysis.CurrentValue)
		if analysis.TargetValue != nil {
			met := "no"
			if analysis.TargetMet {
				met = "yes"
			}
			fmt.Fprintf(w, "Target\t%.2f (met: %s)\n", *analysis.TargetValue, met)
		}
		fmt.Fprintf(w, "Improvement\t%+.2f (%+.1f%%)\n", analysis.Improvement, analysis.ImprovementPercent)
		fmt.Fprintf(w, "Days running\t%d\n", analysis.DaysRunning)
		return w.Flush()
	},
}

var experimentCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Record the outcome of a running experiment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := experimentID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		experiment, err := a.tracker.Complete(cmd.Context(), id, expActual, expOutcome)
		if err != nil {
			return err
		}
		fmt.Printf("Experiment %d completed: %s\n", experiment.ID, experiment.Outcome)
		return nil
	},
}
