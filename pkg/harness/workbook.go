package harness

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/signupform/signup/pkg/validation"
)

var defaultHeader = []string{"Full Name", "Email", "Password", "Confirm Password", "Expected Outcome"}

// Case is one spreadsheet row to submit.
type Case struct {
	Row      int
	FullName string
	Email    string
	Password string
	Confirm  string
	Expected string
}

// Fields converts the row into validator input.
func (c Case) Fields() validation.Fields {
	return validation.Fields{FullName: c.FullName, Email: c.Email, Password: c.Password, Confirm: c.Confirm}
}

func (c Case) cells() []any {
	return []any{c.FullName, c.Email, c.Password, c.Confirm, c.Expected}
}

// Sheet is the parsed contents of an input workbook.
type Sheet struct {
	Header []string
	Cases  []Case
}

// ReadSheet loads the first worksheet of the workbook at path. The first row
// is the header; rows with fewer than four cells are skipped.
func ReadSheet(path string) (Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Sheet{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Sheet{}, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Sheet{}, fmt.Errorf("read rows: %w", err)
	}

	out := Sheet{Header: header(nil)}
	if len(rows) == 0 {
		return out, nil
	}
	out.Header = header(rows[0])
	for i, row := range rows[1:] {
		if len(row) < 4 {
			continue
		}
		c := Case{
			Row:      i + 2,
			FullName: row[0],
			Email:    row[1],
			Password: row[2],
			Confirm:  row[3],
		}
		if len(row) > 4 {
			c.Expected = row[4]
		}
		out.Cases = append(out.Cases, c)
	}
	return out, nil
}

func header(row []string) []string {
	h := make([]string, len(defaultHeader))
	for i := range h {
		if i < len(row) && strings.TrimSpace(row[i]) != "" {
			h[i] = row[i]
		} else {
			h[i] = defaultHeader[i]
		}
	}
	return h
}

// WriteResults stores submission results, one row per case.
func WriteResults(path string, hdr []string, results []Result) error {
	rows := make([][]any, 0, len(results))
	for _, r := range results {
		rows = append(rows, append(r.Case.cells(), r.Observed, r.Match))
	}
	return writeSheet(path, "Results", append(header(hdr), "Observed Outcome", "Match"), rows)
}

// WriteReport stores the per-rule evaluation of every case.
func WriteReport(path string, hdr []string, cases []Case, rules validation.Rules) error {
	cols := append(header(hdr), rules.Names()...)
	rows := make([][]any, 0, len(cases))
	for _, c := range cases {
		row := c.cells()
		for _, res := range rules.Evaluate(c.Fields()) {
			row = append(row, passFail(res.Passed))
		}
		rows = append(rows, row)
	}
	return writeSheet(path, "Validator Report", cols, rows)
}

func writeSheet(path, name string, cols []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", name); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	head := make([]any, len(cols))
	for i, c := range cols {
		head[i] = c
	}
	if err := f.SetSheetRow(name, "A1", &head); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}
