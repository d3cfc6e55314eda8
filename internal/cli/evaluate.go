package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/credence/internal/model"
)

var (
	evalSource     string
	evalCategory   string
	evalData       string
	evalFile       string
	evalRefs       []float64
	evalSourceURL  string
	evalHint       string
	evalFormula    string
	evalReportedAt string
	evalMaxAge     time.Duration
	evalTolerance  float64
	evalOutput     string
	evalTimeout    time.Duration
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a single oracle reading",
	Long: `Evaluate scores one reading and prints the score, trust level and explanation.

The request is built from flags, or read from a JSON file with --file
("-" reads stdin). Flags override fields from the file.

Example:
  credence evaluate --source Chainlink --category price_feed --data '{"price":1850.2}' --ref 1850 --ref 1851
  credence evaluate --file request.json --output json
  credence evaluate --source MyOracle --category zk_state --data 42 --formula custom --hint "time-critical"`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalSource, "source", "", "name of the reporting source")
	evaluateCmd.Flags().StringVar(&evalCategory, "category", "", "data category, e.g. price_feed or temperature")
	evaluateCmd.Flags().StringVar(&evalData, "data", "", "reported data as JSON")
	evaluateCmd.Flags().StringVarP(&evalFile, "file", "f", "", "read the request from a JSON file (- for stdin)")
	evaluateCmd.Flags().Float64SliceVar(&evalRefs, "ref", nil, "reference value (repeatable)")
	evaluateCmd.Flags().StringVar(&evalSourceURL, "source-url", "", "URL the data was fetched from")
	evaluateCmd.Flags().StringVar(&evalHint, "hint", "", "free-text hint about the data")
	evaluateCmd.Flags().StringVar(&evalFormula, "formula", "", `"custom" forces a generated formula`)
	evaluateCmd.Flags().StringVar(&evalReportedAt, "reported-at", "", "when the reading was taken (RFC 3339, default now)")
	evaluateCmd.Flags().DurationVar(&evalMaxAge, "max-age", 0, "freshness window (default from config)")
	evaluateCmd.Flags().Float64Var(&evalTolerance, "tolerance", 0, "accuracy tolerance in percent (default from config)")
	evaluateCmd.Flags().StringVarP(&evalOutput, "output", "o", "text", "output format (text, json)")
	evaluateCmd.Flags().DurationVar(&evalTimeout, "timeout", time.Minute, "evaluation timeout")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	req, err := buildEvaluateRequest(cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), evalTimeout)
	defer cancel()

	a := newApp(ctx, cfg, logger)
	defer a.Close()

	if err := a.service.Validate(req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	resp := a.service.Handle(ctx, req)

	switch strings.ToLower(evalOutput) {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
	default:
		printResponse(cmd.OutOrStdout(), resp)
	}

	if !resp.Success {
		return fmt.Errorf("evaluation failed: %s", resp.Error)
	}
	return nil
}

// buildEvaluateRequest reads the optional file and applies flag overrides
func buildEvaluateRequest(stdin io.Reader) (model.EvaluateRequest, error) {
	var req model.EvaluateRequest
	if evalFile != "" {
		var (
			raw []byte
			err error
		)
		if evalFile == "-" {
			raw, err = io.ReadAll(stdin)
		} else {
			raw, err = os.ReadFile(evalFile)
		}
		if err != nil {
			return req, fmt.Errorf("read request: %w", err)
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			return req, fmt.Errorf("parse request: %w", err)
		}
	}

	if evalSource != "" {
		req.SourceName = evalSource
	}
	if evalCategory != "" {
		req.Category = evalCategory
	}
	if evalData != "" {
		if !json.Valid([]byte(evalData)) {
			// bare words are treated as a string outcome
			quoted, _ := json.Marshal(evalData)
			req.Data = quoted
		} else {
			req.Data = json.RawMessage(evalData)
		}
	}
	if len(evalRefs) > 0 {
		req.ReferenceValues = evalRefs
	}
	if evalSourceURL != "" {
		req.SourceURL = evalSourceURL
	}
	if evalHint != "" {
		req.Hint = evalHint
	}
	if evalFormula != "" {
		req.Formula = evalFormula
	}
	if evalReportedAt != "" {
		t, err := time.Parse(time.RFC3339, evalReportedAt)
		if err != nil {
			return req, fmt.Errorf("parse --reported-at: %w", err)
		}
		req.ReportedAt = &t
	}
	if evalMaxAge > 0 {
		req.MaxAgeSeconds = int(evalMaxAge.Seconds())
	}
	if evalTolerance > 0 {
		req.TolerancePercent = evalTolerance
	}
	return req, nil
}

func printResponse(w io.Writer, resp model.EvaluateResponse) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Credibility: %d/100 (%s)\n", resp.Score, resp.TrustLevel)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Request:      %s\n", resp.RequestID)
	fmt.Fprintf(w, "  Formula:      %s (%s)\n", resp.FormulaName, resp.FormulaID)
	if resp.Confidence != "" {
		fmt.Fprintf(w, "  Confidence:   %s\n", resp.Confidence)
	}
	fmt.Fprintf(w, "  Verification: verified=%t mode=%s proof=%s\n",
		resp.Verification.Verified, resp.Verification.Mode, resp.Verification.ProofID)
	if resp.Chain != nil {
		fmt.Fprintf(w, "  Chain:        %s %s\n", resp.Chain.Status, resp.Chain.TxHash)
	}
	if resp.PersistError != "" {
		fmt.Fprintf(w, "  Persistence:  %s\n", resp.PersistError)
	}
	fmt.Fprintf(w, "\n")
	b := resp.Breakdown
	fmt.Fprintf(w, "  %-10s %6s %9s\n", "factor", "raw", "weighted")
	fmt.Fprintf(w, "  %-10s %6.2f %9.3f\n", "source", b.Source.Raw, b.Source.Weighted)
	fmt.Fprintf(w, "  %-10s %6.2f %9.3f\n", "time", b.Time.Raw, b.Time.Weighted)
	fmt.Fprintf(w, "  %-10s %6.2f %9.3f\n", "accuracy", b.Accuracy.Raw, b.Accuracy.Weighted)
	fmt.Fprintf(w, "  %-10s %6.2f %9.3f\n", "proof", b.Proof.Raw, b.Proof.Weighted)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "%s\n\n", resp.Explanation)
}
