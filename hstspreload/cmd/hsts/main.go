// Command hsts builds and queries HSTS preload datasets.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var (
	verbose int

	rootCmd = &cobra.Command{
		Use:   "hsts [command]",
		Short: "hsts checks hosts against a precomputed HSTS preload dataset.",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().IntVarP(&verbose, "verbose", "v", 0, "log verbosity: 0 warn, 1 info, 2 debug, 3 trace")
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(statsCmd)
}

func newLogger(verbose int) *logrus.Logger {
	log := logrus.New()

	var level logrus.Level
	switch verbose {
	case 0:
		level = logrus.WarnLevel
	case 1:
		level = logrus.InfoLevel
	case 2:
		level = logrus.DebugLevel
	default:
		level = logrus.TraceLevel
	}

	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	log.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "Jan 02 15:04:05",
	})

	return log
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
