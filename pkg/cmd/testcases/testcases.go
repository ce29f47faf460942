// Package testcases implements the subcommand aggregating unique test cases
// per top-level suite.
package testcases

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qa-tooling/ado-testreport/internal/testplan"
	"github.com/qa-tooling/ado-testreport/pkg/azdo"
)

type Input struct {
	plan      string
	outputDir string
	runLimit  int
	workbook  bool
}

func NewCmdTestCases(cfg *azdo.Config) *cobra.Command {
	data := Input{}
	cmd := &cobra.Command{
		Use:   "testcases",
		Short: "List unique test cases per top-level suite with reconciled outcomes.",
		Run: func(cmd *cobra.Command, args []string) {
			if err := run(cfg, &data); err != nil {
				log.Errorf("could not build the test case report: %v", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVarP(&data.plan, "plan", "p", "", "Test plan name (exact or substring, case-insensitive). Env: TEST_PLAN_NAME")
	cmd.Flags().StringVarP(&data.outputDir, "output-dir", "o", "exports", "Directory receiving the CSV files. Env: OUTPUT_DIR")
	cmd.Flags().IntVar(&data.runLimit, "run-limit", testplan.DefaultRunLimit, "Most recent runs scanned for the outcome backfill; negative disables it")
	cmd.Flags().BoolVar(&data.workbook, "xlsx", false, "Also write a spreadsheet workbook, one sheet per top-level suite")

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

	client, err := azdo.NewClient(cfg)
	if err != nil {
		return err
	}

	agg := &testplan.Aggregator{Client: client, RunLimit: data.runLimit}
	reports, err := agg.Aggregate(data.plan)
	if err != nil {
		return err
	}

	if _, err := testplan.WriteSuiteCSVs(data.outputDir, reports); err != nil {
		return err
	}
	if data.workbook {
		if _, err := testplan.WriteWorkbook(data.outputDir, reports); err != nil {
			return err
		}
	}
	return nil
}
