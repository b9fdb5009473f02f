package commands

import (
	"fmt"
	"strings"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/cli/client"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/cli/output"
	"github.com/spf13/cobra"
)

var (
	flagChartType    string
	flagChartTitle   string
	flagLabelColumn  string
	flagValueColumns string
	flagSheet        string
	flagLimit        int
	flagSave         bool
	flagChartPage    int
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Build and manage charts",
}

var chartGenerateCmd = &cobra.Command{
	Use:   "generate <file-id>",
	Short: "Build a chart from a processed file",
	Long: `Build a chart from the columns of a processed file. Without --values
every numeric column is charted. The chart is only previewed unless --save
is given.

  excelctl chart generate 550e8400-...
  excelctl chart generate 550e8400-... --type line --label month --values revenue,cost --save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		req := client.GenerateChartRequest{
			FileID:      args[0],
			ChartType:   flagChartType,
			Title:       flagChartTitle,
			LabelColumn: flagLabelColumn,
			Sheet:       flagSheet,
			Limit:       flagLimit,
			Save:        flagSave,
		}
		if flagValueColumns != "" {
			for _, col := range strings.Split(flagValueColumns, ",") {
				if col = strings.TrimSpace(col); col != "" {
					req.ValueColumns = append(req.ValueColumns, col)
				}
			}
		}

		chart, err := apiClient.GenerateChart(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("generating chart: %w", err)
		}

		if flagJSON {
			output.JSON(chart)
			return nil
		}
		output.ChartDetail(chart)
		if flagSave {
			fmt.Fprintf(output.Out, "\nSaved as %s\n", chart.ID)
		}
		return nil
	},
}

var chartLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List saved charts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		charts, _, err := apiClient.ListCharts(cmd.Context(), flagChartType, flagChartPage)
		if err != nil {
			return fmt.Errorf("listing charts: %w", err)
		}

		if flagJSON {
			output.JSON(charts)
			return nil
		}
		output.ChartTable(charts)
		return nil
	},
}

var chartShowCmd = &cobra.Command{
	Use:   "show <chart-id>",
	Short: "Show a chart's labels and values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		chart, err := apiClient.GetChart(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("fetching chart: %w", err)
		}

		if flagJSON {
			output.JSON(chart)
			return nil
		}
		output.ChartDetail(chart)
		return nil
	},
}

var chartRmCmd = &cobra.Command{
	Use:   "rm <chart-id>",
	Short: "Delete a chart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		if err := apiClient.DeleteChart(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting chart: %w", err)
		}
		fmt.Fprintf(output.Out, "Deleted chart %s\n", args[0])
		return nil
	},
}

func init() {
	chartGenerateCmd.Flags().StringVar(&flagChartType, "type", "", "Chart type: bar, line, pie, doughnut, radar, polarArea, scatter")
	chartGenerateCmd.Flags().StringVar(&flagChartTitle, "title", "", "Chart title (default: file name)")
	chartGenerateCmd.Flags().StringVar(&flagLabelColumn, "label", "", "Column used for labels (default: first column)")
	chartGenerateCmd.Flags().StringVar(&flagValueColumns, "values", "", "Comma separated value columns")
	chartGenerateCmd.Flags().StringVar(&flagSheet, "sheet", "", "Workbook sheet (default: first sheet)")
	chartGenerateCmd.Flags().IntVar(&flagLimit, "limit", 0, "Maximum number of points")
	chartGenerateCmd.Flags().BoolVar(&flagSave, "save", false, "Save the chart instead of only previewing it")

	chartLsCmd.Flags().StringVar(&flagChartType, "type", "", "Filter by chart type")
	chartLsCmd.Flags().IntVar(&flagChartPage, "page", 1, "Page number")

	chartCmd.AddCommand(chartGenerateCmd, chartLsCmd, chartShowCmd, chartRmCmd)
	rootCmd.AddCommand(chartCmd)
}
