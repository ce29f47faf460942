// Package bugs implements the subcommand building bug snapshots and
// burndown series from work item queries.
package bugs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qa-tooling/ado-testreport/internal/workitems"
	"github.com/qa-tooling/ado-testreport/pkg/azdo"
)

// defaultCategories mirror the tag taxonomy the QA team applies to bugs.
var defaultCategories = []workitems.Category{
	{Name: "Exploratory", Tag: "exploratory"},
	{Name: "TestCaseUpdate", Tag: "test case update"},
}

type Input struct {
	areaPath      string
	iterationPath string
	startDate     string
	endDate       string
	outputDir     string
	tags          []string
}

func NewCmdBugs(cfg *azdo.Config) *cobra.Command {
	data := Input{}
	cmd := &cobra.Command{
		Use:   "bugs",
		Short: "Summarize bugs by state and severity and compute a daily burndown.",
		Run: func(cmd *cobra.Command, args []string) {
			if err := run(cfg, &data); err != nil {
				log.Errorf("could not build the bug report: %v", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&data.areaPath, "area", "", "Area path filter. Env: AREA_PATH")
	cmd.Flags().StringVar(&data.iterationPath, "iteration", "", "Iteration path filter. Env: ITERATION_PATH")
	cmd.Flags().StringVar(&data.startDate, "start", "", "Created-date window start (YYYY-MM-DD). Env: START_DATE")
	cmd.Flags().StringVar(&data.endDate, "end", "", "Created-date window end (YYYY-MM-DD). Env: END_DATE")
	cmd.Flags().StringVarP(&data.outputDir, "output-dir", "o", "exports", "Directory receiving the burndown CSV. Env: OUTPUT_DIR")
	cmd.Flags().StringSliceVar(&data.tags, "tag", nil, "Extra tag category as name=tag; repeatable")

	return cmd
}

func run(cfg *azdo.Config, data *Input) error {
	applyEnvDefaults(data)

	start, err := time.Parse("2006-01-02", data.startDate)
	if err != nil {
		return errors.Wrapf(err, "invalid start date %q", data.startDate)
	}
	end, err := time.Parse("2006-01-02", data.endDate)
	if err != nil {
		return errors.Wrapf(err, "invalid end date %q", data.endDate)
	}

	categories := append([]workitems.Category{}, defaultCategories...)
	for _, t := range data.tags {
		name, tag, found := strings.Cut(t, "=")
		if !found || name == "" || tag == "" {
			return fmt.Errorf("invalid tag category %q, expected name=tag", t)
		}
		categories = append(categories, workitems.Category{Name: name, Tag: tag})
	}

	client, err := azdo.NewClient(cfg)
	if err != nil {
		return err
	}

	query := &azdo.WorkItemQuery{
		Project:       cfg.Project,
		AreaPath:      data.areaPath,
		IterationPath: data.iterationPath,
		CreatedFrom:   start,
		// Include the whole end day.
		CreatedTo: end.AddDate(0, 0, 1).Add(-time.Second),
	}
	snapshot, err := workitems.Fetch(client, query)
	if err != nil {
		return err
	}
	printSummary(snapshot)

	burndown := workitems.Compute(snapshot.Bugs, start, end, categories)
	open, delta := burndown.Delta()
	log.Infof("Open bugs as of %s: %d (%+d)", end.Format("2006-01-02"), open, delta)

	if err := os.MkdirAll(data.outputDir, 0755); err != nil {
		return errors.Wrapf(err, "couldn't create output directory %s", data.outputDir)
	}
	path := filepath.Join(data.outputDir, "bug_burndown.csv")
	if err := burndown.WriteCSV(path); err != nil {
		return err
	}
	log.Infof("Wrote %s (%d day(s))", path, len(burndown.Total))
	return nil
}

func applyEnvDefaults(data *Input) {
	if data.areaPath == "" {
		data.areaPath = os.Getenv("AREA_PATH")
	}
	if data.iterationPath == "" {
		data.iterationPath = os.Getenv("ITERATION_PATH")
	}
	if data.startDate == "" {
		data.startDate = os.Getenv("START_DATE")
	}
	if data.endDate == "" {
		data.endDate = os.Getenv("END_DATE")
	}
	if dir := os.Getenv("OUTPUT_DIR"); data.outputDir == "exports" && dir != "" {
		data.outputDir = dir
	}
}

func printSummary(snapshot *workitems.Snapshot) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Bugs:\t%d\n", len(snapshot.Bugs))
	for _, sc := range snapshot.States() {
		fmt.Fprintf(w, "State %s:\t%d\n", sc.Name, sc.Count)
	}
	for _, sc := range snapshot.Severities() {
		fmt.Fprintf(w, "Severity %s:\t%d\n", sc.Name, sc.Count)
	}
	w.Flush()
}
