package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.New()

var (
	configPath string
	logLevel   string
	outputPath string

	// cfg holds the settings of the current invocation: defaults, then the
	// config file, then any flags set on the command line.
	cfg = defaultFileConfig()

	rootCmd = &cobra.Command{
		Use:   "corcluster",
		Short: "Cluster binary variables by correlation with a bootstrap stopping test",
		Long: `corcluster groups binary (presence/absence) variables by their pairwise
correlation, stops merging when a bootstrap Wald test can no longer tell
the closest pair apart from the rest, and scores merges by their consensus
across bootstrap replicates.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return applyConfig(cmd)
		},
	}
)

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML file with default settings")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "write JSON output to this file instead of stdout")

	rootCmd.AddCommand(bootstrapCmd, clusterCmd, consensusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
