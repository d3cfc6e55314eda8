package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	concurrency  int
	batchOutput  string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Score many readings from a file in parallel",
	Long: `Batch evaluates many readings concurrently:
- Read requests from a JSON array or a JSON lines file
- Evaluate them with a configurable worker count
- A failing item never affects the others
- Write one result per request, in input order

Example:
  credence batch readings.jsonl
  credence batch readings.json --concurrency 8 --output results.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "write results as JSON lines to this file")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "\n")
	fmt.Fprintf(errOut, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(errOut, "  Credence Batch Evaluation\n")
	fmt.Fprintf(errOut, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(errOut, "\n")
	fmt.Fprintf(errOut, "  Input file:   %s\n", file)
	fmt.Fprintf(errOut, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(errOut, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(errOut, "\n")

	a := newApp(ctx, cfg, logger)
	defer a.Close()

	started := time.Now()
	results, err := a.service.EvaluateFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	var enc *json.Encoder
	if batchOutput != "" {
		f, err := os.Create(batchOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		enc = json.NewEncoder(f)
	}

	successCount := 0
	failureCount := 0
	for _, result := range results {
		if enc != nil {
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("write result %d: %w", result.Index, err)
			}
		}
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(errOut, "✗ #%d: %v\n", result.Index, result.Error)
			continue
		}
		successCount++
		fmt.Fprintf(errOut, "✓ #%d %s: %d/100 (%s, %s)\n",
			result.Index, result.Response.RequestID, result.Response.Score,
			result.Response.TrustLevel, result.Response.FormulaID)
	}

	// Summary
	fmt.Fprintf(errOut, "\n")
	fmt.Fprintf(errOut, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(errOut, "  Batch Complete\n")
	fmt.Fprintf(errOut, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(errOut, "\n")
	fmt.Fprintf(errOut, "  Total:     %d readings\n", len(results))
	fmt.Fprintf(errOut, "  Success:   %d\n", successCount)
	fmt.Fprintf(errOut, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(errOut, "  Duration:  %v\n", time.Since(started).Round(time.Millisecond))
	if batchOutput != "" {
		fmt.Fprintf(errOut, "  Output:    %s\n", batchOutput)
	}
	fmt.Fprintf(errOut, "\n")

	return nil
}
