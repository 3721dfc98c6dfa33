package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sevigo/prompt-warden/internal/service"
)

var (
	statsPeriod string
	statsJSON   bool
)

var statsCmd = &cobra.Command{
	Use:   "stats [prompt-id]",
	Short: "Show time-bucketed run statistics for a prompt",
	Long: `Show time-bucketed run statistics for a prompt.

Buckets are daily, weekly, or monthly depending on --period. Each bucket
reports total runs, success rate, and averaged metrics over successful runs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		var resp struct {
			Performance []service.BucketStats `json:"performance"`
		}
		client := newAPIClient()
		path := "/analytics/prompts/" + args[0] + "/performance?period=" + statsPeriod
		if err := client.get(ctx, path, &resp); err != nil {
			return fmt.Errorf("failed to fetch performance stats: %w", err)
		}

		if statsJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(resp.Performance)
		}

		if len(resp.Performance) == 0 {
			slog.Info("The prompt has no recorded runs.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "BUCKET\tRUNS\tSUCCESS\tAVG RESPONSE MS\tAVG TOKENS")
		for _, b := range resp.Performance {
			fmt.Fprintf(w, "%s\t%d\t%.0f%%\t%s\t%s\n",
				b.Bucket,
				b.TotalRuns,
				b.SuccessRate*100,
				formatMetric(b.AvgMetrics, "responseTime"),
				formatMetric(b.AvgMetrics, "tokenCount"),
			)
		}
		return w.Flush()
	},
}

func formatMetric(metrics map[string]float64, key string) string {
	v, ok := metrics[key]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.1f", v)
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	statsCmd.Flags().StringVarP(&statsPeriod, "period", "p", "day", "Bucket period: day, week, or month")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}
