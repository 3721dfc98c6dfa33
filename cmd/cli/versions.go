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

var versionsJSON bool

var versionsCmd = &cobra.Command{
	Use:   "versions [prompt-id]",
	Short: "List the version history of a prompt, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		var resp struct {
			Versions []core.PromptVersion `json:"versions"`
		}
		client := newAPIClient()
		if err := client.get(ctx, "/prompts/"+args[0]+"/versions", &resp); err != nil {
			return fmt.Errorf("failed to list versions: %w", err)
		}

		if versionsJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(resp.Versions)
		}

		if len(resp.Versions) == 0 {
			slog.Info("The prompt has no versions yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "VERSION\tID\tAUTHOR\tCOMMIT MESSAGE\tCREATED")
		for _, v := range resp.Versions {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				v.VersionNumber,
				v.ID,
				v.AuthorID,
				v.CommitMessage,
				v.CreatedAt.Format(time.RFC822),
			)
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	versionsCmd.Flags().BoolVar(&versionsJSON, "json", false, "Output versions as JSON")
	rootCmd.AddCommand(versionsCmd)
}
