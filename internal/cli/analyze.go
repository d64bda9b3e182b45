package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/snapmed/internal/logging"
)

var (
	outJSON      string
	timeout      time.Duration
	llmProvider  string
	llmModel     string
	saveOwner    string
	disableCache bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Identify the medication in one image",
	Long: `Analyze reads an image file or URL and runs the identification pipeline:
- Ask the vision model for the medicine name and uses
- Look up the first line in the drug information service
- Normalize the answer into generic name, dosage form, product type, route

Example:
  snapmed analyze ./box.jpg
  snapmed analyze https://example.com/box.png --json result.json
  snapmed analyze ./box.jpg --llm-provider openai --llm-model gpt-4o-mini
  snapmed analyze ./box.jpg --save-owner U1`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "write the result to this path instead of stdout")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	analyzeCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (gemini, openai, anthropic, ollama)")
	analyzeCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
	analyzeCmd.Flags().StringVar(&saveOwner, "save-owner", "", "append the result to this owner's history")
	analyzeCmd.Flags().BoolVar(&disableCache, "no-cache", false, "disable the drug lookup cache")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ref := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.APIKey = ""
		applyProviderKey(cfg)
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if disableCache {
		cfg.Cache.Enabled = false
	}

	logger := logging.Discard()
	if verbose {
		logger = logging.New(cfg.Logging)
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", ref)
		fmt.Fprintf(os.Stderr, "Oracle: %s/%s\n\n", cfg.LLM.Provider, cfg.LLM.Model)
	}

	p, err := buildPipeline(cfg, logger, nil)
	if err != nil {
		return err
	}

	result, err := p.EnrichFile(ctx, ref)
	if err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Identified: %s\n", result.Subject())
		if result.HasDrugInfo() {
			fmt.Fprintf(os.Stderr, "✓ Drug info: %s\n", result.DrugInfo.GenericName)
		} else {
			fmt.Fprintf(os.Stderr, "✗ No drug info found\n")
		}
		fmt.Fprintln(os.Stderr)
	}

	if saveOwner != "" {
		store, db, err := openHistory(cfg, logger, nil)
		if err != nil {
			return err
		}
		defer closeDB(db)

		id, err := store.Append(ctx, saveOwner, result.Lines, result.DrugInfo)
		if err != nil {
			return fmt.Errorf("save history: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Saved to history: %s\n", id)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if outJSON == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(outJSON, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", outJSON)
	return nil
}
