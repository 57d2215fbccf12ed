package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/starius/hstspreload/hostcache"
	"github.com/starius/hstspreload/hstspreload"
)

var (
	checkBlob      string
	checkIndex     string
	checkIDNA      bool
	checkFileReads bool
	checkVerify    bool
	checkCacheSize int

	checkCmd = &cobra.Command{
		Use:   "check host...",
		Short: "Print whether each host is preloaded",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheck,
	}
)

func init() {
	checkCmd.Flags().StringVar(&checkBlob, "blob", "hstspreload.bin", "path to the dataset blob")
	checkCmd.Flags().StringVar(&checkIndex, "index", "hstspreload.idx", "path to the jump table")
	checkCmd.Flags().BoolVar(&checkIDNA, "idna", false, "IDNA-encode hosts before lookup")
	checkCmd.Flags().BoolVar(&checkFileReads, "file-reads", false, "use positioned reads instead of mmap")
	checkCmd.Flags().BoolVar(&checkVerify, "verify", false, "verify the blob fingerprint before lookups")
	checkCmd.Flags().IntVar(&checkCacheSize, "cache", hostcache.DefaultSize, "number of verdicts to cache")
}

func runCheck(cmd *cobra.Command, hosts []string) error {
	log := newLogger(verbose)

	cache, err := hostcache.New(checkCacheSize)
	if err != nil {
		return err
	}
	opts := []hstspreload.Option{
		hstspreload.WithLogger(log),
		hstspreload.WithCache(cache),
	}
	if checkFileReads {
		opts = append(opts, hstspreload.WithFileReads())
	}
	if checkVerify {
		opts = append(opts, hstspreload.WithVerify())
	}
	c, err := hstspreload.Open(checkBlob, checkIndex, opts...)
	if err != nil {
		return err
	}
	defer c.Close()
	log.Info(c)

	var failed int
	for _, host := range hosts {
		query := host
		if checkIDNA {
			if query, err = hstspreload.ToASCII(host); err != nil {
				log.WithField("host", host).WithError(err).Error("check failed")
				failed++
				continue
			}
		}
		preloaded, err := c.IsPreloaded(query)
		if err != nil {
			log.WithField("host", host).WithError(err).Error("check failed")
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%t\n", host, preloaded)
	}
	if failed != 0 {
		return fmt.Errorf("%d of %d hosts failed", failed, len(hosts))
	}
	return nil
}
