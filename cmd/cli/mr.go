package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/prompt-warden/internal/core"
)

var (
	mrFilter string
	mrJSON   bool
)

var mrCmd = &cobra.Command{
	Use:   "mr",
	Short: "Inspect and act on merge requests",
}

var mrListCmd = &cobra.Command{
	Use:   "list [prompt-id]",
	Short: "List a prompt's merge requests",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		var resp struct {
			MergeRequests []core.MergeRequest `json:"mergeRequests"`
		}
		client := newAPIClient()
		path := "/prompts/" + args[0] + "/merge-requests?filter=" + mrFilter
		if err := client.get(ctx, path, &resp); err != nil {
			return fmt.Errorf("failed to list merge requests: %w", err)
		}

		if mrJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(resp.MergeRequests)
		}

		if len(resp.MergeRequests) == 0 {
			slog.Info("No merge requests match the filter.", "filter", mrFilter)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tAUTHOR\tDESCRIPTION\tCREATED")
		for _, mr := range resp.MergeRequests {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				mr.ID,
				mr.Status,
				mr.AuthorID,
				mr.Description,
				mr.CreatedAt.Format(time.RFC822),
			)
		}
		return w.Flush()
	},
}

var mrMergeCmd = &cobra.Command{
	Use:   "merge [merge-request-id]",
	Short: "Merge an approved merge request into a new prompt version",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		var resp struct {
			MergeRequest core.MergeRequest  `json:"mergeRequest"`
			Version      core.PromptVersion `json:"version"`
		}
		client := newAPIClient()
		if err := client.post(ctx, "/merge-requests/"+args[0]+"/merge", nil, &resp); err != nil {
			return fmt.Errorf("failed to merge: %w", err)
		}

		successColor.Printf("Merged as version %d (%s)\n", resp.Version.VersionNumber, resp.Version.ID)
		return nil
	},
}

var mrRejectCmd = &cobra.Command{
	Use:   "reject [merge-request-id]",
	Short: "Reject an open merge request",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		var mr core.MergeRequest
		client := newAPIClient()
		if err := client.post(ctx, "/merge-requests/"+args[0]+"/reject", nil, &mr); err != nil {
			return fmt.Errorf("failed to reject: %w", err)
		}

		fmt.Printf("Merge request %s is now %s\n", mr.ID, mr.Status)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	mrListCmd.Flags().StringVarP(&mrFilter, "filter", "f", "all", "Filter merge requests: all, open, or closed")
	mrListCmd.Flags().BoolVar(&mrJSON, "json", false, "Output merge requests as JSON")
	mrCmd.AddCommand(mrListCmd, mrMergeCmd, mrRejectCmd)
	rootCmd.AddCommand(mrCmd)
}
