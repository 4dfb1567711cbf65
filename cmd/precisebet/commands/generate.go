package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var generatePeriod int64

func init() {
	generateCmd.Flags().Int64Var(&generatePeriod, "period", 0, "The period to fetch, the current one when 0.")
	rootCmd.AddCommand(generateCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate [--period N]",
	Short: "Fetches the match listing of a period and merges it into the project.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		result, err := s.generator().Generate(cmd.Context(), generatePeriod)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "解析成功，期号：%d，比赛 %d 场，赔率 %d 条\n", result.Period, result.Matches, result.Odds)
		return nil
	},
}
