package commands

import (
	"fmt"

	"precisebet/services/export"
	"precisebet/services/flow"

	"github.com/spf13/cobra"
)

var flowArgs struct {
	period                   int64
	fullUpdate               bool
	flowInterval             float64
	retryTimes               int
	executeTimes             int
	extraIntervalProbability float64
}

func init() {
	flags := flowCmd.Flags()
	defaults := DefaultConfig().Flow
	flags.Int64Var(&flowArgs.period, "period", 0, "The period to work on, the current one when 0.")
	flags.BoolVar(&flowArgs.fullUpdate, "full-update", true, "Also fetch the valuations of matches never valued.")
	flags.Float64Var(&flowArgs.flowInterval, "flow-interval", defaults.Interval, "The wait between two executions in seconds.")
	flags.IntVar(&flowArgs.retryTimes, "retry-times", defaults.RetryTimes, "How many failures in a row are retried.")
	flags.IntVar(&flowArgs.executeTimes, "execute-times", defaults.ExecuteTimes, "How many executions to run, 0 runs until interrupted.")
	flags.Float64VarP(&flowArgs.extraIntervalProbability, "extra-interval-probability", "p", 0, "The chance of each wait being extended, in [0, 1].")
	rootCmd.AddCommand(flowCmd)
}

var flowCmd = &cobra.Command{
	Use:   "flow [--period N]",
	Short: "Generates the listing, updates valuations and handicaps, repeats, then exports a report.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cfg.Flow
		flags := cmd.Flags()
		if flags.Changed("flow-interval") {
			c.Interval = flowArgs.flowInterval
		}
		if flags.Changed("retry-times") {
			c.RetryTimes = flowArgs.retryTimes
		}
		if flags.Changed("execute-times") {
			c.ExecuteTimes = flowArgs.executeTimes
		}
		format, err := export.ParseFormat(c.ExportFormat)
		if err != nil {
			return err
		}

		var base updateFlags
		updateOptions, err := base.options(cmd)
		if err != nil {
			return err
		}
		if flags.Changed("extra-interval-probability") {
			if p := flowArgs.extraIntervalProbability; p < 0 || p > 1 {
				return fmt.Errorf("extra interval probability %v is not in [0, 1]", p)
			}
			updateOptions.Policy.ExtendedProbability = flowArgs.extraIntervalProbability
		}

		s, err := newSession()
		if err != nil {
			return err
		}
		updater := s.updater()
		updater.Out = cmd.OutOrStdout()

		service := flow.Service{
			Generator: s.generator(),
			Updater:   updater,
			Exporter:  exporter(),
			Value:     s.valueAction(),
			Handicap:  s.handicapAction(),
		}
		result, err := service.Run(cmd.Context(), flow.Options{
			Period:       flowArgs.period,
			FullUpdate:   flowArgs.fullUpdate,
			Interval:     duration(c.Interval),
			RetryTimes:   c.RetryTimes,
			ExecuteTimes: c.ExecuteTimes,
			Update:       updateOptions,
			ExportFormat: format,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "执行 %d 次，报告：%s\n", result.Executions, result.Report)
		return nil
	},
}
