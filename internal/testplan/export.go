package testplan

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const (
	combinedCSVName = "all_top_level_testcases.csv"
	workbookName    = "testcases.xlsx"

	// sheetNameLimit is the spreadsheet format's hard cap on sheet names.
	sheetNameLimit = 31
)

var testCaseHeader = []string{
	"TopSuiteId", "TopSuiteName", "TestCaseId", "TestCaseName", "Outcome", "NumPaths", "Paths",
}

var resultHeader = []string{
	"PlanId", "TopSuiteId", "TopSuiteName", "RunId", "RunName", "Automated",
	"ResultId", "Outcome", "State", "TestCaseId", "TestCaseName", "PointId",
	"SuitePath", "Configuration", "Owner", "Priority", "StartedDate",
	"CompletedDate", "DurationInMs",
}

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[\s-]+`)
)

// Slugify turns a suite name into a safe file name fragment.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "&", "and")
	s = slugStrip.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}

func (a *AggregatedTestCase) csvRow(topID, topName string) []string {
	return []string{
		topID,
		topName,
		strconv.Itoa(a.TestCaseID),
		a.Name,
		a.Outcome.String(),
		strconv.Itoa(a.NumPaths()),
		a.PathList(),
	}
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "couldn't create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return errors.Wrapf(err, "couldn't write header to %s", path)
	}
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "couldn't write rows to %s", path)
	}
	w.Flush()
	return w.Error()
}

// WriteSuiteCSVs persists one CSV per top-level suite plus a combined file,
// returning the written paths.
func WriteSuiteCSVs(dir string, reports []SuiteReport) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "couldn't create output directory %s", dir)
	}

	written := []string{}
	combined := [][]string{}
	for i := range reports {
		r := &reports[i]
		rows := make([][]string, 0, len(r.Cases))
		for j := range r.Cases {
			row := r.Cases[j].csvRow(r.TopSuiteID, r.TopSuiteName)
			rows = append(rows, row)
			combined = append(combined, row)
		}
		path := filepath.Join(dir, Slugify(r.TopSuiteName)+"_testcases.csv")
		if err := writeCSV(path, testCaseHeader, rows); err != nil {
			return written, err
		}
		log.Infof("Wrote %s (%d row(s))", path, len(rows))
		written = append(written, path)
	}

	path := filepath.Join(dir, combinedCSVName)
	if err := writeCSV(path, testCaseHeader, combined); err != nil {
		return written, err
	}
	log.Infof("Wrote %s (%d row(s))", path, len(combined))
	return append(written, path), nil
}

// WriteResultCSVs persists one CSV of enriched result rows per top-level
// suite.
func WriteResultCSVs(dir string, reports []ResultsReport) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "couldn't create output directory %s", dir)
	}

	written := []string{}
	for i := range reports {
		r := &reports[i]
		rows := make([][]string, 0, len(r.Rows))
		for j := range r.Rows {
			row := &r.Rows[j]
			started, completed := "", ""
			if !row.StartedDate.IsZero() {
				started = row.StartedDate.Format("2006-01-02T15:04:05Z07:00")
			}
			if !row.CompletedDate.IsZero() {
				completed = row.CompletedDate.Format("2006-01-02T15:04:05Z07:00")
			}
			rows = append(rows, []string{
				strconv.Itoa(row.PlanID),
				row.TopSuiteID,
				row.TopSuiteName,
				strconv.Itoa(row.RunID),
				row.RunName,
				strconv.FormatBool(row.Automated),
				strconv.Itoa(row.ResultID),
				row.Outcome,
				row.State,
				strconv.Itoa(row.TestCaseID),
				row.TestCaseName,
				strconv.Itoa(row.PointID),
				row.SuitePath,
				row.Configuration,
				row.Owner,
				strconv.Itoa(row.Priority),
				started,
				completed,
				strconv.FormatFloat(row.DurationInMS, 'f', -1, 64),
			})
		}
		path := filepath.Join(dir, "results_"+Slugify(r.TopSuiteName)+".csv")
		if err := writeCSV(path, resultHeader, rows); err != nil {
			return written, err
		}
		log.Infof("Wrote %s (%d row(s))", path, len(rows))
		written = append(written, path)
	}
	return written, nil
}

// WriteWorkbook persists every suite report into one spreadsheet, one sheet
// per top-level suite, and returns the workbook path.
func WriteWorkbook(dir string, reports []SuiteReport) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "couldn't create output directory %s", dir)
	}

	book := excelize.NewFile()
	defer book.Close()

	for i := range reports {
		r := &reports[i]
		name := sheetName(r.TopSuiteName, i)
		idx, err := book.NewSheet(name)
		if err != nil {
			return "", errors.Wrapf(err, "couldn't create sheet %q", name)
		}
		if i == 0 {
			book.SetActiveSheet(idx)
		}
		if err := createSheet(book, name); err != nil {
			return "", err
		}
		populateSheet(book, name, r)
	}
	// Drop the default sheet left by the library.
	_ = book.DeleteSheet("Sheet1")

	path := filepath.Join(dir, workbookName)
	if err := book.SaveAs(path); err != nil {
		return "", errors.Wrapf(err, "couldn't save workbook %s", path)
	}
	log.Infof("Wrote %s (%d sheet(s))", path, len(reports))
	return path, nil
}

// sheetName clamps a suite name into a legal, unique sheet name.
func sheetName(name string, idx int) string {
	s := strings.TrimSpace(name)
	if s == "" {
		s = fmt.Sprintf("Suite %d", idx+1)
	}
	if len(s) > sheetNameLimit {
		s = s[:sheetNameLimit]
	}
	return s
}

// createSheet writes the spreadsheet header row.
func createSheet(book *excelize.File, name string) error {
	for col, h := range testCaseHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := book.SetCellValue(name, cell, h); err != nil {
			return err
		}
	}
	return nil
}

// populateSheet fills one row per aggregated test case.
func populateSheet(book *excelize.File, name string, r *SuiteReport) {
	for j := range r.Cases {
		c := &r.Cases[j]
		row := j + 2
		_ = book.SetCellValue(name, fmt.Sprintf("A%d", row), r.TopSuiteID)
		_ = book.SetCellValue(name, fmt.Sprintf("B%d", row), r.TopSuiteName)
		_ = book.SetCellValue(name, fmt.Sprintf("C%d", row), c.TestCaseID)
		_ = book.SetCellValue(name, fmt.Sprintf("D%d", row), c.Name)
		_ = book.SetCellValue(name, fmt.Sprintf("E%d", row), c.Outcome.String())
		_ = book.SetCellValue(name, fmt.Sprintf("F%d", row), c.NumPaths())
		_ = book.SetCellValue(name, fmt.Sprintf("G%d", row), c.PathList())
	}
}
