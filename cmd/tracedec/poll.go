package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"firmtrace/capture"
	"firmtrace/control"
	"firmtrace/debug"
	"firmtrace/decoder"
	"firmtrace/mailbox"
	"firmtrace/store"
	"firmtrace/types"
)

var flagCore int

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().IntVar(&flagCore, "core", -2, "CPU to pin the poller to, -1 for none (default from config)")
}

var pollCmd = &cobra.Command{
	Use:   "poll [mailbox]",
	Short: "Decode a live shared-memory mailbox",
	Long: "Maps a host-visible mailbox file and decodes frames as they are committed.\n" +
		"Frames already present when polling starts are skipped. Stop with Ctrl-C.",
	Args: cobra.MaximumNArgs(1),
	RunE: runPoll,
}

func runPoll(cmd *cobra.Command, args []string) error {
	path := cfg.Mailbox
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return cmd.Usage()
	}
	core := cfg.Poll.Core
	if flagCore >= -1 {
		core = flagCore
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	filter, err := cfg.Filter()
	if err != nil {
		return err
	}
	m, err := mailbox.OpenMapped(path)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := checkBuild(reg, m.Ring().BuildID(), false); err != nil {
		return err
	}

	var db *store.Store
	if cfg.Database != "" {
		if db, err = store.Open(cfg.Database); err != nil {
			return err
		}
		defer db.Close()
	}
	sessionID := uuid.NewString()

	out := newRenderer()
	dec := decoder.New(reg, filter)
	dec.Resync()

	// The handler runs on the pinned poller goroutine; mu only orders the
	// final flush after it stops.
	var mu sync.Mutex
	batch := make([]types.Frame, 1)
	handler := func(f types.Frame) {
		mu.Lock()
		defer mu.Unlock()
		batch[0] = f
		recs, gaps := dec.Feed(batch)
		if err := out.Batch(recs, gaps); err != nil {
			debug.DropError("render", err)
		}
		if err := out.Flush(); err != nil {
			debug.DropError("render", err)
		}
		if db != nil {
			if err := db.Save(sessionID, m.Ring().BuildID(), capture.SourceMailbox.String(), recs, gaps); err != nil {
				debug.DropError("store", err)
			}
		}
	}

	control.Reset()
	stop, hot := control.Flags()
	done := make(chan struct{})
	capture.Poll(core, m, stop, hot, handler, done)
	debug.DropMessage("poll", "watching "+path)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
		control.Stop()
		<-done
	case <-done:
	}

	mu.Lock()
	defer mu.Unlock()
	return out.Flush()
}
