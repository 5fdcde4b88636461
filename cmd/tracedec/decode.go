package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"firmtrace/capture"
	"firmtrace/debug"
	"firmtrace/decoder"
	"firmtrace/descriptor"
	"firmtrace/store"
)

var (
	flagFollow bool
	flagStrict bool
)

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().BoolVar(&flagFollow, "follow", false, "Keep decoding as the capture file is rewritten")
	decodeCmd.Flags().BoolVar(&flagStrict, "strict", false, "Refuse captures stamped by a different descriptor table")
}

var decodeCmd = &cobra.Command{
	Use:   "decode [capture]",
	Short: "Decode a capture or raw sink dump",
	Long: "Reads a capture file (or a raw ring/mailbox region) and prints its records\n" +
		"in sequence order. Frames lost to overwrite show up as gap lines.",
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

// session tracks decoding state across reloads of one capture file.
type session struct {
	reg    *descriptor.Registry
	filter decoder.Filter
	out    *decoder.Renderer
	db     *store.Store

	id  uuid.UUID
	dec *decoder.Decoder
}

func runDecode(cmd *cobra.Command, args []string) error {
	path := cfg.Capture
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return cmd.Usage()
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	filter, err := cfg.Filter()
	if err != nil {
		return err
	}
	s := &session{reg: reg, filter: filter, out: newRenderer()}
	if cfg.Database != "" {
		if s.db, err = store.Open(cfg.Database); err != nil {
			return err
		}
		defer s.db.Close()
	}

	if !flagFollow {
		c, err := capture.Load(path)
		if err != nil {
			return err
		}
		return s.handle(c)
	}

	capture.FollowDebounce = cfg.Follow.Debounce
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return capture.Follow(ctx, path, s.handle)
}

// handle decodes one load of the capture. A new capture session restarts
// sequence accounting; a reload of the same session only shows what is new.
func (s *session) handle(c *capture.Capture) error {
	h, frames, err := c.Frames()
	if err != nil {
		return err
	}
	if err := checkBuild(s.reg, h.BuildID, flagStrict); err != nil {
		return err
	}
	if s.dec == nil || c.Session != s.id {
		s.id = c.Session
		s.dec = decoder.New(s.reg, s.filter)
	}

	recs, gaps := s.dec.Feed(frames)
	if err := s.out.Batch(recs, gaps); err != nil {
		return err
	}
	if err := s.out.Flush(); err != nil {
		return err
	}
	if h.Dropped > 0 {
		debug.DropMessage("warning", "sink abandoned frames under contention")
	}

	if s.db != nil {
		return s.db.Save(c.Session.String(), h.BuildID, c.Source.String(), recs, gaps)
	}
	return nil
}
