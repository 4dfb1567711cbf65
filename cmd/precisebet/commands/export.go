package commands

import (
	"fmt"

	"precisebet/services/export"

	"github.com/spf13/cobra"
)

var (
	exportFormat   string
	exportFileName string
)

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", string(export.FormatHTML), fmt.Sprintf("The report format, one of %v.", export.Formats))
	exportCmd.Flags().StringVar(&exportFileName, "file-name", "report", "The report file name without extension, written into the project.")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [--format csv|html|markdown|sqlite|xlsx] [--file-name NAME]",
	Short: "Exports a report of every match in the project.",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		path, err := exporter().Export(cmd.Context(), format, exportFileName)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}
