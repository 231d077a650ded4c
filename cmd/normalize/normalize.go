// Package normalize handles the normalize command: a dry run of the input
// normalization that never touches the remote budget.
package normalize

import (
	"fmt"
	"io"
	"os"

	"fjacquet/budget-sync/cmd/root"
	"fjacquet/budget-sync/internal/cli"
	"fjacquet/budget-sync/internal/container"
	"fjacquet/budget-sync/internal/fileutils"
	"fjacquet/budget-sync/internal/logging"
	"fjacquet/budget-sync/internal/normalizer"

	"github.com/spf13/cobra"
)

var (
	input  string
	output string
)

// Cmd represents the normalize command
var Cmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize a CSV or Excel file without syncing",
	Long: `Read a CSV or Excel file the way a run would, print what was kept and
dropped, and optionally write the canonical records as CSV.`,
	RunE: normalizeFunc,
}

func init() {
	Cmd.Flags().StringVarP(&input, "input", "i", "", "CSV or XLSX file")
	Cmd.Flags().StringVarP(&output, "output", "o", "", "Write canonical records to this CSV file")
	_ = Cmd.MarkFlagRequired("input")
}

func normalizeFunc(cmd *cobra.Command, _ []string) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	n := normalizer.New(container.NormalizerOptions(cfg), root.Log)
	return Execute(n, input, output, cfg.Delimiter(), cmd.OutOrStdout(), root.Log)
}

// Execute normalizes inputFile, prints the records and writes them to
// outputFile when it is set.
func Execute(n *normalizer.Normalizer, inputFile, outputFile string, delim rune, out io.Writer, log logging.Logger) error {
	data, err := fileutils.ReadFile(inputFile)
	if err != nil {
		return err
	}

	res, err := n.Normalize(data)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(res.Records))
	for _, r := range res.Records {
		rows = append(rows, []string{r.Group, r.Category, r.Amount.String()})
	}
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("%d records from %s (%s)", len(res.Records), inputFile, res.Source),
		Headers: []string{"Group", "Category", "Amount"},
		Rows:    rows,
	}))
	fmt.Fprintf(out, "Dropped %d row(s) without group or category, zeroed %d negative amount(s), repaired %d line(s).\n",
		res.Dropped, res.Zeroed, res.Repaired)

	if outputFile == "" {
		return nil
	}

	file, err := fileutils.CreateFile(outputFile)
	if err != nil {
		return err
	}
	if err := normalizer.WriteCSV(file, res.Records, delim); err != nil {
		_ = file.Close()
		_ = os.Remove(outputFile)
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", outputFile, err)
	}

	log.Info("Wrote canonical records",
		logging.F(logging.FieldOutputFile, outputFile),
		logging.F(logging.FieldCount, len(res.Records)))
	return nil
}
