// Package inspect provides the "thunderbolt inspect" command.
package inspect

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/thunderbolt/internal/formats/xlsx"
	"github.com/klytics/thunderbolt/internal/ingest"
	"github.com/klytics/thunderbolt/internal/merge"
	"github.com/klytics/thunderbolt/internal/output"
	"github.com/klytics/thunderbolt/internal/table"
)

type result struct {
	File      string              `json:"file"`
	Sheets    []string            `json:"sheets"`
	Sheet     string              `json:"sheet"`
	SheetRows int                 `json:"sheetRows"`
	Fallback  bool                `json:"fallback"`
	Strategy  string              `json:"strategy"`
	Level     int                 `json:"level"`
	Columns   []string            `json:"columns"`
	Rows      int                 `json:"rows"`
	TimeFrom  string              `json:"timeFrom,omitempty"`
	TimeTo    string              `json:"timeTo,omitempty"`
	Preview   []map[string]string `json:"preview,omitempty"`

	head *table.Table
}

// NewCommand creates the "inspect" command.
func NewCommand() *cobra.Command {
	var (
		rows  int
		asCSV bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <file.xlsx>",
		Short: "Show how a workbook would be converted",
		Long: `Runs sheet selection and header detection on one local workbook and shows
the chosen sheet, the header layout that matched, the flattened column names
and the first rows. Pass '-' to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			wb, err := readWorkbook(args[0])
			if err != nil {
				return err
			}

			res := result{File: args[0], Sheets: wb.SheetNames()}
			conv, err := ingest.ConvertWorkbook(wb)
			if err != nil {
				return explain(err, jsonFlag)
			}

			if asCSV {
				return table.Encode(os.Stdout, conv.Table)
			}

			describe(&res, wb, conv, rows)

			if jsonFlag {
				return output.PrintJSON(os.Stdout, "inspect", res)
			}
			return pretty(res)
		},
	}

	cmd.Flags().IntVarP(&rows, "rows", "n", 10, "Number of data rows to preview")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "Print the whole converted table as CSV")

	return cmd
}

func readWorkbook(path string) (*xlsx.Workbook, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("could not read from stdin: %w", err)
		}
		return xlsx.ReadBytes(data)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return nil, fmt.Errorf("expected an .xlsx file, got %q", path)
	}
	return xlsx.ReadFile(path)
}

// describe fills res from a successful conversion, keeping the first n rows
// as the preview.
func describe(res *result, wb *xlsx.Workbook, conv *ingest.Conversion, n int) {
	t := conv.Table
	res.Sheet = conv.Sheet
	if sheet, err := wb.GetSheet(conv.Sheet); err == nil {
		res.SheetRows = sheet.RowCount()
	}
	res.Fallback = conv.Fallback
	res.Strategy = conv.Strategy
	res.Level = conv.Level
	res.Columns = t.Columns
	res.Rows = t.Len()

	if ts := merge.TimestampIndex(t); ts >= 0 && t.Len() > 0 {
		res.TimeFrom, _ = t.Value(0, t.Columns[ts])
		res.TimeTo, _ = t.Value(t.Len()-1, t.Columns[ts])
	}

	n = max(0, min(n, t.Len()))
	res.head, _ = table.New(t.Columns, t.Rows[:n])
	for i := 0; i < n; i++ {
		res.Preview = append(res.Preview, t.Record(i))
	}
}

func explain(err error, jsonFlag bool) error {
	if jsonFlag {
		output.PrintJSONError(os.Stdout, "inspect", err, output.ExitUserError)
		return err
	}
	var he *ingest.HeaderError
	if errors.As(err, &he) {
		color.New(color.FgRed).Printf("No header layout matched sheet %q\n", he.Sheet)
		for _, a := range he.Attempts {
			fmt.Printf("  %-15s %s\n", a.Strategy, a.Reason)
		}
	}
	return err
}

func pretty(res result) error {
	label := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)

	label.Print("Sheet:     ")
	fmt.Print(res.Sheet)
	if res.Fallback {
		dim.Print("  (no Steamfield sheet, using the first sheet)")
	}
	fmt.Println()
	label.Print("Header:    ")
	fmt.Printf("%s (level %d)\n", res.Strategy, res.Level)
	label.Print("Rows:      ")
	fmt.Printf("%d data rows (%d non-empty sheet rows)\n", res.Rows, res.SheetRows)
	if res.TimeFrom != "" {
		label.Print("Time:      ")
		fmt.Printf("%s → %s\n", res.TimeFrom, res.TimeTo)
	}
	label.Println("Columns:")
	for i, c := range res.Columns {
		fmt.Printf("  %2d  %s\n", i, c)
	}

	if res.head == nil || res.head.Len() == 0 {
		return nil
	}
	fmt.Println()
	return output.Table(os.Stdout, res.head)
}
