package commands

import (
	"fmt"
	"strings"

	"precisebet/lib/schedule"
	"precisebet/services/update"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// updateFlags mirror UpdateConfig, a flag only wins over the config when it is
// set on the command line.
type updateFlags struct {
	period                   int64
	interval                 float64
	extraInterval            float64
	extraIntervalProbability float64
	intervalOffsetRange      float64
	randomUA                 bool
	lastUpdatedStatus        string
	status                   string
	breakHours               float64
	onlyNew                  bool
	limitCount               int
	debug                    bool
}

func (f *updateFlags) register(flags *pflag.FlagSet) {
	defaults := DefaultConfig().Update
	flags.Int64Var(&f.period, "period", 0, "Only update matches of this period, every period when 0.")
	flags.Float64VarP(&f.interval, "interval", "i", defaults.Interval, "The base wait between two matches in seconds.")
	flags.Float64VarP(&f.extraInterval, "extra-interval", "e", defaults.ExtraInterval, "The extended wait in seconds.")
	flags.Float64VarP(&f.extraIntervalProbability, "extra-interval-probability", "p", defaults.ExtraIntervalProbability, "The chance of each wait being extended, in [0, 1].")
	flags.Float64VarP(&f.intervalOffsetRange, "interval-offset-range", "r", defaults.IntervalOffsetRange, "The random offset range of every wait in seconds.")
	flags.BoolVar(&f.randomUA, "random-ua", false, "Draw a new user agent after every match.")
	flags.StringVar(&f.lastUpdatedStatus, "last-updated-status", defaults.LastUpdatedStatus, "Status codes a match had when last updated, comma separated, prefix with e to exclude them instead.")
	flags.StringVar(&f.status, "status", defaults.Status, "Current status codes to update, comma separated, prefix with e to exclude them instead.")
	flags.Float64VarP(&f.breakHours, "break-hours", "b", defaults.BreakHours, "Skip not started matches kicking off later than this many hours, 0 disables it.")
	flags.BoolVarP(&f.onlyNew, "only-new", "n", false, "Only update matches never updated before.")
	flags.IntVarP(&f.limitCount, "limit-count", "m", 0, "Update at most this many matches, 0 is unlimited.")
	flags.BoolVar(&f.debug, "debug", false, "Write the planned matches to processing.csv.")
}

// options merges the config with the flags set on cmd.
func (f *updateFlags) options(cmd *cobra.Command) (update.Options, error) {
	c := cfg.Update
	flags := cmd.Flags()
	override := func(name string, target *float64, value float64) {
		if flags.Changed(name) {
			*target = value
		}
	}
	override("interval", &c.Interval, f.interval)
	override("extra-interval", &c.ExtraInterval, f.extraInterval)
	override("extra-interval-probability", &c.ExtraIntervalProbability, f.extraIntervalProbability)
	override("interval-offset-range", &c.IntervalOffsetRange, f.intervalOffsetRange)
	override("break-hours", &c.BreakHours, f.breakHours)
	if flags.Changed("last-updated-status") {
		c.LastUpdatedStatus = f.lastUpdatedStatus
	}
	if flags.Changed("status") {
		c.Status = f.status
	}
	if c.ExtraIntervalProbability < 0 || c.ExtraIntervalProbability > 1 {
		return update.Options{}, fmt.Errorf("extra interval probability %v is not in [0, 1]", c.ExtraIntervalProbability)
	}

	lastUpdated, err := schedule.ParseStatusList(c.LastUpdatedStatus)
	if err != nil {
		return update.Options{}, fmt.Errorf("--last-updated-status: %w", err)
	}
	status, err := schedule.ParseStatusList(c.Status)
	if err != nil {
		return update.Options{}, fmt.Errorf("--status: %w", err)
	}

	return update.Options{
		Period: f.period,
		Filter: schedule.Filter{
			LastUpdatedStatus: lastUpdated,
			Status:            status,
			Readmit:           !c.DisableReadmit,
			OnlyNew:           f.onlyNew,
			BreakHours:        c.BreakHours,
			Limit:             f.limitCount,
		},
		Policy: schedule.IntervalPolicy{
			Normal:              duration(c.Interval),
			Extended:            duration(c.ExtraInterval),
			ExtendedProbability: c.ExtraIntervalProbability,
			Offset:              duration(c.IntervalOffsetRange),
		},
		RotateUserAgent: f.randomUA,
		Debug:           f.debug,
	}, nil
}

var actionNames = []string{"value", "handicap", "recent"}

var updateArgs updateFlags

func init() {
	updateArgs.register(updateCmd.Flags())
	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:       "update <" + strings.Join(actionNames, "|") + ">",
	Short:     "Refreshes valuations, handicaps or recent results of the matches in the project.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: actionNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := updateArgs.options(cmd)
		if err != nil {
			return err
		}
		s, err := newSession()
		if err != nil {
			return err
		}
		action, ok := s.actions()[args[0]]
		if !ok {
			return fmt.Errorf("unknown action %q", args[0])
		}

		updater := s.updater()
		updater.Out = cmd.OutOrStdout()
		_, err = updater.Update(cmd.Context(), action, opts)
		return err
	},
}
