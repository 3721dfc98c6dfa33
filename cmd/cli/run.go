package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/prompt-warden/internal/core"
	"github.com/sevigo/prompt-warden/internal/service"
)

// Color definitions
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	infoColor    = color.New(color.FgWhite)
	dimColor     = color.New(color.FgHiBlack)
)

var (
	runModel     string
	runVersionID string
	runVars      []string
	runJSON      bool
)

var runCmd = &cobra.Command{
	Use:   "run [prompt-id]",
	Short: "Execute a prompt against the configured LLM gateway",
	Long: `Execute a prompt against the configured LLM gateway.

The prompt's current version is used unless --version pins a specific one.
Template variables are filled from repeated --var flags.

Examples:
  warden-cli run 4f9c... --model gpt-4o --var topic=testing
  warden-cli run 4f9c... --model gpt-4o --version 82ab... --var name=Ada --var tone=formal`,
	Args: cobra.ExactArgs(1),
	RunE: runExecute,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	runCmd.Flags().StringVarP(&runModel, "model", "m", "", "Model to execute against (required)")
	runCmd.Flags().StringVar(&runVersionID, "version", "", "Pin a specific version ID")
	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "Template variable as key=value (repeatable)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Output the result as JSON")
	_ = runCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(runCmd)
}

func runExecute(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	input := core.VarMap{}
	for _, pair := range runVars {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return fmt.Errorf("invalid --var %q, expected key=value", pair)
		}
		input[key] = value
	}

	body := map[string]any{
		"promptId": args[0],
		"model":    runModel,
		"input":    input,
	}
	if runVersionID != "" {
		body["versionId"] = runVersionID
	}

	var result service.ExecuteResult
	client := newAPIClient()
	if err := client.post(ctx, "/prompt-execution/run", body, &result); err != nil {
		errorColor.Fprintln(os.Stderr, "Execution failed")
		return err
	}

	if runJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	titleColor.Println("Prompt Warden - Execution Result")
	dimColor.Printf("   Run: %s\n\n", result.RunID)
	infoColor.Println(result.Output)
	fmt.Println()
	if result.Metrics.ResponseTime != nil {
		dimColor.Printf("   Response time: %.0f ms\n", *result.Metrics.ResponseTime)
	}
	if result.Metrics.TokenCount != nil {
		dimColor.Printf("   Tokens: %.0f (%d in / %d out)\n",
			*result.Metrics.TokenCount, result.Metrics.TokensInput, result.Metrics.TokensOutput)
	}
	if result.Metrics.Cost != nil {
		dimColor.Printf("   Cost: $%.6f\n", *result.Metrics.Cost)
	}
	successColor.Println("Done")
	return nil
}
