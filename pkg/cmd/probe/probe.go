// Package probe implements the connectivity check subcommand.
package probe

import (
	"fmt"
	"os"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qa-tooling/ado-testreport/pkg/azdo"
)

func NewCmdProbe(cfg *azdo.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check credential and API route availability.",
		Run: func(cmd *cobra.Command, args []string) {
			if err := run(cfg); err != nil {
				log.Errorf("probe failed: %v", err)
				os.Exit(1)
			}
		},
	}
}

func run(cfg *azdo.Config) error {
	client, err := azdo.NewClient(cfg)
	if err != nil {
		return err
	}

	failed := 0
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK\tVERSION\tSTATUS")
	for _, r := range client.Probe() {
		status := fmt.Sprintf("%d", r.StatusCode)
		if r.StatusCode == 0 {
			status = "unreachable"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Description, r.Version, status)
		if !r.OK() {
			failed++
			log.Debugf("%s: %v", r.Description, r.Err)
		}
	}
	w.Flush()

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}
