package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	logwriter "github.com/sirupsen/logrus/hooks/writer"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qa-tooling/ado-testreport/pkg/azdo"
	"github.com/qa-tooling/ado-testreport/pkg/cmd/bugs"
	"github.com/qa-tooling/ado-testreport/pkg/cmd/probe"
	"github.com/qa-tooling/ado-testreport/pkg/cmd/results"
	"github.com/qa-tooling/ado-testreport/pkg/cmd/testcases"
	"github.com/qa-tooling/ado-testreport/pkg/version"
)

const logFile = "ado-testreport.log"

var config = &azdo.Config{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ado-testreport",
	Short: "ADO test reporting toolkit",
	Long: `ado-testreport pulls test plans, suites, points, runs, results and bug
work items from the Azure DevOps REST API and exports normalized report
tables (CSV/XLSX) per top-level suite.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Validate logging level
		loglevel := viper.GetString("log-level")
		logrusLevel, err := log.ParseLevel(loglevel)
		if err != nil {
			return err
		}
		log.SetLevel(logrusLevel)

		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
		})

		log.SetOutput(os.Stdout)
		fdLog, err := os.OpenFile(logFile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			log.Errorf("error opening file %s: %v", logFile, err)
		} else {
			log.AddHook(&logwriter.Hook{
				Writer: fdLog,
				LogLevels: []log.Level{
					log.PanicLevel,
					log.FatalLevel,
					log.ErrorLevel,
					log.WarnLevel,
					log.InfoLevel,
					log.DebugLevel,
				},
			})
		}

		config.Organization = viper.GetString("org")
		config.Project = viper.GetString("project")
		config.Token = viper.GetString("token")
		if t := viper.GetInt("timeout"); t > 0 {
			config.Timeout = time.Duration(t) * time.Second
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initBindFlag(flag string) {
	err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag))
	if err != nil {
		log.Warnf("Unable to bind flag %s\n", flag)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("org", "", "Azure DevOps organization name or base URL. Env: ADO_ORG")
	rootCmd.PersistentFlags().String("project", "", "Azure DevOps project name. Env: ADO_PROJECT")
	rootCmd.PersistentFlags().String("token", "", "Personal access token. Env: ADO_PAT")
	rootCmd.PersistentFlags().Int("timeout", 0, "Per-request timeout in seconds")
	rootCmd.PersistentFlags().String("log-level", "info", "logging level")
	initBindFlag("org")
	initBindFlag("project")
	initBindFlag("token")
	initBindFlag("timeout")
	initBindFlag("log-level")

	// Link in child commands
	rootCmd.AddCommand(testcases.NewCmdTestCases(config))
	rootCmd.AddCommand(results.NewCmdResults(config))
	rootCmd.AddCommand(bugs.NewCmdBugs(config))
	rootCmd.AddCommand(probe.NewCmdProbe(config))
	rootCmd.AddCommand(version.NewCmdVersion())
}

// initConfig loads an optional .env file and binds the connection values to
// the environment names the team's existing setups already use.
func initConfig() {
	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded .env file")
	}

	viper.AutomaticEnv() // read in environment variables that match
	_ = viper.BindEnv("org", "ADO_ORG")
	_ = viper.BindEnv("project", "ADO_PROJECT")
	_ = viper.BindEnv("token", "ADO_PAT")
}
