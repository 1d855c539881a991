// cmd/analysis-gateway/submit.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"resume-analyzer/internal/common/validation"
	"resume-analyzer/internal/models"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit one analysis and wait for the result",
		Long: `Runs a single submission through the same dispatcher and listener the
server uses, then prints the outcome.

Usage:
  analysis-gateway submit --text "Go developer, 5y" --context "Backend role"
  analysis-gateway submit --text-file resume.txt --context "SRE" --json`,
		RunE: runSubmit,
	}
	cmd.Flags().String("text", "", "Resume text")
	cmd.Flags().String("text-file", "", "Read resume text from a file")
	cmd.Flags().String("context", "", "Job description")
	cmd.Flags().Bool("json", false, "Print the raw JSON result")
	return cmd
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	text, _ := cmd.Flags().GetString("text")
	textFile, _ := cmd.Flags().GetString("text-file")
	jobDescription, _ := cmd.Flags().GetString("context")
	asJSON, _ := cmd.Flags().GetBool("json")

	if textFile != "" {
		data, err := os.ReadFile(textFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", textFile, err)
		}
		text = string(data)
	}
	payload := models.RequestPayload{Text: text, Context: jobDescription}
	if err := validation.Struct(payload); err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := a.connectSQL(ctx); err != nil {
		return err
	}
	if err := a.connectRedis(ctx); err != nil {
		return err
	}

	p, err := a.newPipeline(nil)
	if err != nil {
		return err
	}
	defer p.broker.Close()

	go func() { _ = p.listener.Run(ctx) }()

	result, err := p.dispatcher.Submit(ctx, payload)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(result)
	return nil
}

func printResult(r *models.Result) {
	if r.Status == models.ResultPendingTimeout {
		fmt.Printf("%s analysis %d\n", color.New(color.FgYellow).Sprint("PENDING"), r.AnalysisID)
		fmt.Printf("  %s\n", r.Message)
		return
	}

	verdict := color.New(color.FgRed).Sprint("NOT SUITABLE")
	if r.IsSuitable {
		verdict = color.New(color.FgGreen).Sprint("SUITABLE")
	}
	fmt.Printf("%s analysis %d: score %d (%s)\n",
		color.New(color.FgGreen).Sprint("COMPLETED"), r.AnalysisID, r.SuitabilityScore, verdict)
	if len(r.KeyStrengths) > 0 {
		fmt.Printf("  strengths: %s\n", strings.Join(r.KeyStrengths, ", "))
	}
	if len(r.KeyGaps) > 0 {
		fmt.Printf("  gaps:      %s\n", strings.Join(r.KeyGaps, ", "))
	}
	if r.Recommendation != "" {
		fmt.Printf("  recommendation:\n    %s\n", strings.ReplaceAll(r.Recommendation, "\n", "\n    "))
	}
}
