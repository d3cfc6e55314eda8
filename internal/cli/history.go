package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/store"
)

var (
	historyLimit    int
	historySource   string
	historyCategory string
	historyOutput   string
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [request-id]",
	Short: "Show logged evaluations",
	Long: `History reads the evaluation log.

Without arguments it lists the newest evaluations. With a request id it
prints that evaluation in full.

Example:
  credence history --limit 20 --source Chainlink
  credence history 3f1c2a9e-5d0b-4a57-9d7e-2c4f0c1b8e11`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", store.DefaultListLimit, "maximum number of evaluations")
	historyCmd.Flags().StringVar(&historySource, "source", "", "only this source (case-insensitive)")
	historyCmd.Flags().StringVar(&historyCategory, "category", "", "only this category")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "table", "output format (table, json)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if !cfg.Store.Enabled {
		return fmt.Errorf("evaluation log is disabled (store.enabled=false)")
	}

	st, err := store.Open(cmd.Context(), cfg.Store)
	if err != nil {
		return fmt.Errorf("open evaluation log: %w", err)
	}
	defer st.Close()

	if len(args) == 1 {
		rec, err := st.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	recs, err := st.List(cmd.Context(), store.ListOptions{
		Limit:      historyLimit,
		SourceName: historySource,
		Category:   historyCategory,
	})
	if err != nil {
		return err
	}

	if strings.ToLower(historyOutput) == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}
	return writeHistory(cmd.OutOrStdout(), recs)
}

func writeHistory(w io.Writer, recs []model.EvaluationRecord) error {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No evaluations logged")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tREQUEST\tSOURCE\tCATEGORY\tSCORE\tTRUST\tFORMULA\tVERIFIED")
	for _, r := range recs {
		score := fmt.Sprintf("%d", r.Score)
		if !r.Success {
			score = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.RequestID, r.SourceName, r.Category,
			score, r.TrustLevel, r.Formula.ID, r.Verification.Verified)
	}
	return tw.Flush()
}
