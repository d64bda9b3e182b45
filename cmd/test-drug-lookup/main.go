// Test program to probe the drug information service and the normalizer
// against real provider responses
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/snapmed/internal/drug"
	"github.com/ppiankov/snapmed/internal/logging"
	"github.com/ppiankov/snapmed/internal/model"
	"github.com/ppiankov/snapmed/internal/normalize"
)

func main() {
	fmt.Println("=== Drug Lookup Probe ===")
	fmt.Println()

	names := os.Args[1:]
	if len(names) == 0 {
		names = []string{"Advil", "Tylenol", "Aspirin", "NotARealMedicine123"}
	}

	cfg := model.DefaultConfig()
	if v := os.Getenv("API_URL"); v != "" {
		cfg.DrugAPI.URL = v
	}
	if v := os.Getenv("RAPIDAPI_HOST"); v != "" {
		cfg.DrugAPI.Host = v
	}
	cfg.DrugAPI.Key = os.Getenv("RAPIDAPI_KEY")
	cfg.DrugAPI.Timeout = 15 * time.Second
	if cfg.DrugAPI.Key == "" {
		fmt.Println("RAPIDAPI_KEY is not set; expect upstream errors")
		fmt.Println()
	}

	client, err := drug.NewClient(drug.ConfigFromModel(cfg), drug.WithLogger(logging.Discard()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "create client: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, name := range names {
		fmt.Printf("Looking up: %s\n", name)
		fmt.Println(strings.Repeat("-", 60))

		result := client.Lookup(ctx, name)
		fmt.Printf("  Outcome: %s\n", result.Outcome)
		if result.Err != nil {
			fmt.Printf("  Error:   %v\n", result.Err)
		}

		if result.Outcome == drug.Found {
			preview := string(result.Raw)
			if len(preview) > 200 {
				preview = preview[:200] + "..."
			}
			fmt.Printf("  Raw:     %s\n", preview)

			md := normalize.NormalizeBytes(result.Raw)
			data, _ := json.MarshalIndent(md, "  ", "  ")
			fmt.Printf("  Normalized:\n  %s\n", data)
		}
		fmt.Println()
	}
}
