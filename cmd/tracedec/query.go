package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"firmtrace/decoder"
	"firmtrace/store"
	"firmtrace/types"
)

var (
	flagSession  string
	flagLimit    int
	flagFromSeq  uint32
	flagToSeq    uint32
	flagSessions bool
	flagCounts   bool
)

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVar(&flagSession, "session", "", "Only records from this capture session")
	queryCmd.Flags().IntVar(&flagLimit, "limit", 0, "Maximum records to print")
	queryCmd.Flags().Uint32Var(&flagFromSeq, "from", 0, "First sequence number")
	queryCmd.Flags().Uint32Var(&flagToSeq, "to", 0, "Last sequence number (inclusive)")
	queryCmd.Flags().BoolVar(&flagSessions, "sessions", false, "List archived sessions instead of records")
	queryCmd.Flags().BoolVar(&flagCounts, "counts", false, "Print record counts per class")
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the decoded record archive",
	Args:  cobra.NoArgs,
	RunE:  runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	if cfg.Database == "" {
		return errors.New("no archive: pass --db or set database in the config")
	}
	db, err := store.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	switch {
	case flagSessions:
		list, err := db.Sessions()
		if err != nil {
			return err
		}
		for _, s := range list {
			fmt.Printf("%s  build %08x  %-7s  %6d records  %s\n",
				s.ID, s.BuildID, s.Source, s.Records, s.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil

	case flagCounts:
		counts, err := db.ClassCounts(flagSession)
		if err != nil {
			return err
		}
		classes := make([]types.Class, 0, len(counts))
		for c := range counts {
			classes = append(classes, c)
		}
		sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
		for _, c := range classes {
			fmt.Printf("%-8s %d\n", c, counts[c])
		}
		return nil
	}

	q := store.Query{Session: flagSession, FromSeq: flagFromSeq, ToSeq: flagToSeq, Limit: flagLimit}
	for _, name := range cfg.Classes {
		c, err := types.ParseClass(name)
		if err != nil {
			return err
		}
		q.Classes = append(q.Classes, c)
	}
	for _, name := range cfg.Levels {
		l, err := types.ParseLevel(name)
		if err != nil {
			return err
		}
		q.Levels = append(q.Levels, l)
	}
	recs, err := db.Records(q)
	if err != nil {
		return err
	}

	out := newRenderer()
	var gaps []decoder.Gap
	if flagSession != "" && len(q.Classes) == 0 && len(q.Levels) == 0 {
		if gaps, err = db.Gaps(flagSession); err != nil {
			return err
		}
	}
	if err := out.Batch(recs, gaps); err != nil {
		return err
	}
	return out.Flush()
}
