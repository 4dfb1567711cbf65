package commands

import (
	"fmt"

	"precisebet/services/export"
	"precisebet/services/okooo"

	"github.com/spf13/cobra"
)

var okoooArgs struct {
	start    int64
	end      int64
	interval float64
	format   string
}

func init() {
	flags := okoooCmd.Flags()
	defaults := DefaultConfig().Okooo
	flags.Int64Var(&okoooArgs.start, "start", 0, "The first period to collect.")
	flags.Int64Var(&okoooArgs.end, "end", 0, "The last period to collect.")
	flags.Float64VarP(&okoooArgs.interval, "interval", "i", defaults.Interval, "The wait between two periods in seconds.")
	flags.StringVar(&okoooArgs.format, "format", defaults.Format, "The report format, one of csv, html, markdown or xlsx.")
	okoooCmd.MarkFlagRequired("start")
	okoooCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(okoooCmd)
}

var okoooCmd = &cobra.Command{
	Use:   "okooo --start N --end N [--interval S] [--format FORMAT]",
	Short: "Collects the danchang results of okooo.com, one report per period.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cfg.Okooo
		flags := cmd.Flags()
		if flags.Changed("interval") {
			c.Interval = okoooArgs.interval
		}
		if flags.Changed("format") {
			c.Format = okoooArgs.format
		}
		format, err := export.ParseFormat(c.Format)
		if err != nil {
			return err
		}

		s, err := newSession()
		if err != nil {
			return err
		}
		result, err := s.okoooService().Run(cmd.Context(), okooo.Options{
			Start:    okoooArgs.start,
			End:      okoooArgs.end,
			Interval: duration(c.Interval),
			Format:   format,
		})
		if err != nil {
			return err
		}
		for _, report := range result.Reports {
			fmt.Fprintln(cmd.OutOrStdout(), report)
		}
		if result.Interrupted {
			fmt.Fprintf(cmd.OutOrStdout(), "已中断，完成 %d 期\n", len(result.Periods))
		}
		return nil
	},
}
