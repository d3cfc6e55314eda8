package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/credence/internal/formula"
	"github.com/ppiankov/credence/internal/model"
)

var formulasOutput string

// formulasCmd represents the formulas command
var formulasCmd = &cobra.Command{
	Use:   "formulas [category]",
	Short: "List the formula catalog or show which formula a category selects",
	Long: `Formulas prints the built-in weight profiles in match order.

With a category argument it shows the profile that category selects.

Example:
  credence formulas
  credence formulas --output yaml
  credence formulas temperature`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFormulas,
}

func init() {
	rootCmd.AddCommand(formulasCmd)
	formulasCmd.Flags().StringVarP(&formulasOutput, "output", "o", "table", "output format (table, yaml, json)")
}

func runFormulas(cmd *cobra.Command, args []string) error {
	catalog := formula.NewCatalog()
	profiles := catalog.Profiles()

	if len(args) == 1 {
		p, matched := catalog.Select(args[0])
		if !matched {
			fmt.Fprintf(cmd.ErrOrStderr(), "No catalog match for %q, using %s\n", args[0], p.ID)
		}
		profiles = []model.WeightProfile{p}
	}
	return writeProfiles(cmd.OutOrStdout(), profiles, formulasOutput)
}

func writeProfiles(w io.Writer, profiles []model.WeightProfile, format string) error {
	switch strings.ToLower(format) {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(profiles); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(profiles)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSOURCE\tTIME\tACCURACY\tPROOF\tMIN SCORE")
		for _, p := range profiles {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%d\n",
				p.ID, p.Name, p.Weights.Source, p.Weights.Time, p.Weights.Accuracy, p.Weights.Proof, p.MinAcceptableScore)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format: %s (supported: table, yaml, json)", format)
	}
}
