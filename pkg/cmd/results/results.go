// Package results implements the subcommand exporting flat result rows
// enriched with suite and run context.
package results

import (
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qa-tooling/ado-testreport/internal/testplan"
	"github.com/qa-tooling/ado-testreport/pkg/azdo"
)

type Input struct {
	plan      string
	outputDir string
	startDate string
	endDate   string
}

func NewCmdResults(cfg *azdo.Config) *cobra.Command {
	data := Input{}
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Export result rows per top-level suite within a date window.",
		Run: func(cmd *cobra.Command, args []string) {
			if err := run(cfg, &data); err != nil {
				log.Errorf("could not build the results export: %v", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVarP(&data.plan, "plan", "p", "", "Test plan name (exact or substring, case-insensitive). Env: TEST_PLAN_NAME")
	cmd.Flags().StringVarP(&data.outputDir, "output-dir", "o", "exports", "Directory receiving the CSV files. Env: OUTPUT_DIR")
	cmd.Flags().StringVar(&data.startDate, "start", "", "Lower bound on run last-updated date (YYYY-MM-DD). Env: START_DATE")
	cmd.Flags().StringVar(&data.endDate, "end", "", "Upper bound on run last-updated date (YYYY-MM-DD). Env: END_DATE")

	return cmd
}

func run(cfg *azdo.Config, data *Input) error {
	if data.plan == "" {
		data.plan = os.Getenv("TEST_PLAN_NAME")
	}
	if data.plan == "" {
		return errors.New("a plan name is required (--plan or TEST_PLAN_NAME)")
	}
	if dir := os.Getenv("OUTPUT_DIR"); data.outputDir == "exports" && dir != "" {
		data.outputDir = dir
	}
	if data.startDate == "" {
		data.startDate = os.Getenv("START_DATE")
	}
	if data.endDate == "" {
		data.endDate = os.Getenv("END_DATE")
	}

	window, err := parseWindow(data.startDate, data.endDate)
	if err != nil {
		return err
	}

	client, err := azdo.NewClient(cfg)
	if err != nil {
		return err
	}

	agg := &testplan.Aggregator{Client: client}
	reports, err := agg.CollectResults(data.plan, window)
	if err != nil {
		return err
	}
	for i := range reports {
		r := &reports[i]
		if r.Durations.Count > 0 {
			log.Infof("Suite %q durations: n=%d mean=%.0fms median=%.0fms p95=%.0fms",
				r.TopSuiteName, r.Durations.Count, r.Durations.MeanMS, r.Durations.MedianMS, r.Durations.P95MS)
		}
	}

	_, err = testplan.WriteResultCSVs(data.outputDir, reports)
	return err
}

func parseWindow(start, end string) (*azdo.DateWindow, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	window := &azdo.DateWindow{}
	var err error
	if start != "" {
		window.Min, err = time.Parse("2006-01-02", start)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid start date %q", start)
		}
	}
	if end != "" {
		window.Max, err = time.Parse("2006-01-02", end)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid end date %q", end)
		}
	}
	return window, nil
}
