package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/snapmed/internal/logging"
)

var (
	historyQuery string
	historyJSON  bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect stored identifications",
}

var historyListCmd = &cobra.Command{
	Use:   "list <owner>",
	Short: "List an owner's most recent identifications",
	Long: `List prints up to 100 of the owner's identifications, newest first.

Example:
  snapmed history list U1
  snapmed history list U1 --json
  snapmed history list U1 --query indexed`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryList,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)

	historyListCmd.Flags().StringVar(&historyQuery, "query", "", "read strategy: scan or indexed (overrides history.query)")
	historyListCmd.Flags().BoolVar(&historyJSON, "json", false, "print JSON instead of a table")
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	owner := args[0]

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if historyQuery != "" {
		cfg.History.Query = historyQuery
	}

	logger := logging.Discard()
	if verbose {
		logger = logging.New(cfg.Logging)
	}

	store, db, err := openHistory(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeDB(db)

	records := store.ListByOwner(context.Background(), owner)

	if historyJSON {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(records) == 0 {
		fmt.Fprintf(os.Stderr, "No history for %s\n", owner)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tID\tNAME\tGENERIC\tFORM\tROUTE")
	for _, r := range records {
		name := ""
		if len(r.Lines) > 0 {
			name = r.Lines[0]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.ID,
			name,
			r.DrugInfo.GenericName,
			r.DrugInfo.DosageForm,
			strings.Join(r.DrugInfo.Route, ","),
		)
	}
	return w.Flush()
}
