package commands

import (
	"fmt"

	"precisebet/lib/dataset"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X".
var Version = "dev"

func init() {
	rootCmd.AddCommand(statusCodesCmd)
	rootCmd.AddCommand(aboutCmd)
}

var statusCodesCmd = &cobra.Command{
	Use:   "status-codes",
	Short: "Prints the match status codes.",
	Run: func(cmd *cobra.Command, args []string) {
		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"代码", "状态"})
		for _, code := range dataset.Statuses() {
			t.AppendRow(table.Row{code, dataset.StatusName(code)})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var aboutCmd = &cobra.Command{
	Use:   "about",
	Short: "Prints the program name and version.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "precisebet %s\n", Version)
	},
}
