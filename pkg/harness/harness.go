// Package harness drives the registration form from a spreadsheet of cases
// and writes back the observed outcomes and a per-rule validator report.
package harness

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/signupform/signup/pkg/validation"
)

const (
	ResultsFile = "results.xlsx"
	ReportFile  = "validator_report.xlsx"
)

// Summary describes a finished batch.
type Summary struct {
	Total       int
	Passed      int
	Failed      int
	Unchecked   int
	ResultsPath string
	ReportPath  string
}

// OutputDir returns dir, or the directory holding input when dir is empty.
func OutputDir(input, dir string) string {
	if dir != "" {
		return dir
	}
	return filepath.Dir(input)
}

// Execute reads the workbook at input, submits every case with runner and
// writes both the results workbook and the validator report into outDir.
func Execute(ctx context.Context, runner *Runner, input, outDir string) (Summary, error) {
	sheet, err := ReadSheet(input)
	if err != nil {
		return Summary{}, err
	}
	results, err := runner.Run(ctx, sheet.Cases)
	if err != nil {
		return Summary{}, fmt.Errorf("run cases: %w", err)
	}

	dir := OutputDir(input, outDir)
	sum := Summary{
		Total:       len(results),
		ResultsPath: filepath.Join(dir, ResultsFile),
		ReportPath:  filepath.Join(dir, ReportFile),
	}
	for _, r := range results {
		switch r.Match {
		case "PASS":
			sum.Passed++
		case "FAIL":
			sum.Failed++
		default:
			sum.Unchecked++
		}
	}
	if err := WriteResults(sum.ResultsPath, sheet.Header, results); err != nil {
		return Summary{}, err
	}
	if err := WriteReport(sum.ReportPath, sheet.Header, sheet.Cases, validation.ReportRules()); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

// Report writes only the validator report for the workbook at input and
// returns its path.
func Report(input, outDir string) (string, error) {
	sheet, err := ReadSheet(input)
	if err != nil {
		return "", err
	}
	path := filepath.Join(OutputDir(input, outDir), ReportFile)
	if err := WriteReport(path, sheet.Header, sheet.Cases, validation.ReportRules()); err != nil {
		return "", err
	}
	return path, nil
}
