package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/starius/hstspreload/hstspreload"
	"github.com/starius/hstspreload/preloadbuild"
)

var (
	buildRules   string
	buildBlob    string
	buildIndex   string
	buildKeepTLD bool

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Compile a rules file into a blob and jump table",
		Args:  cobra.NoArgs,
		RunE:  runBuild,
	}
)

func init() {
	buildCmd.Flags().StringVar(&buildRules, "rules", "", "rules file, one 'host [include_subdomains]' per line")
	buildCmd.Flags().StringVar(&buildBlob, "blob", "hstspreload.bin", "output blob path")
	buildCmd.Flags().StringVar(&buildIndex, "index", "hstspreload.idx", "output jump table path")
	buildCmd.Flags().BoolVar(&buildKeepTLD, "keep-fast-tlds", false, "also store rules under fast-set gTLDs")
	buildCmd.MarkFlagRequired("rules")
}

func runBuild(cmd *cobra.Command, args []string) error {
	log := newLogger(verbose)

	f, err := os.Open(buildRules)
	if err != nil {
		return err
	}
	rules, err := preloadbuild.ParseRules(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", buildRules, err)
	}

	var skip []string
	if !buildKeepTLD {
		skip = hstspreload.DefaultIncludeSubdomainsTLDs()
	}
	table, blob, err := preloadbuild.Compile(rules, skip)
	if err != nil {
		return err
	}
	if err := os.WriteFile(buildBlob, blob, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(buildIndex, table.Serialize(), 0o644); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"rules": len(rules),
		"blob":  len(blob),
	}).Info("dataset written")
	fmt.Fprintln(cmd.OutOrStdout(), table)
	return nil
}
