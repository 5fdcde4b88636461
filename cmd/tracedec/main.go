// tracedec turns trace captures and live mailboxes back into readable records.
//
//	tracedec decode --image fw.elf capture.trc
//	tracedec decode --sidecar fw.json --follow /run/fw/trace.trc
//	tracedec poll --image fw.elf --core 3 /dev/shm/fw-mailbox
//	tracedec query --db trace.db --class ipc --level verbose
//	tracedec descriptors --image fw.elf --format json > fw.json
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"firmtrace/config"
	"firmtrace/debug"
	"firmtrace/decoder"
	"firmtrace/descriptor"
	"firmtrace/image"
)

var (
	flagConfig      string
	flagImage       string
	flagSidecar     string
	flagClasses     []string
	flagLevels      []string
	flagFormat      string
	flagNoColour    bool
	flagHideUnknown bool
	flagDB          string
	flagQuiet       bool

	cfg *config.Config
)

var errNoTable = errors.New("no descriptor table: pass --image or --sidecar")

var rootCmd = &cobra.Command{
	Use:   "tracedec",
	Short: "Decode firmware trace captures",
	Long: "Joins trace frames with the descriptor table extracted from the image that\n" +
		"produced them and renders one line per record, reporting every gap.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "Config file (default $FIRMTRACE_CONFIG or ~/.firmtrace/tracedec.yaml)")
	pf.StringVarP(&flagImage, "image", "i", "", "Built image to extract descriptors from")
	pf.StringVar(&flagSidecar, "sidecar", "", "JSON descriptor table written by tracegen")
	pf.StringSliceVar(&flagClasses, "class", nil, "Only show these classes (ipc,dma,...)")
	pf.StringSliceVar(&flagLevels, "level", nil, "Only show these levels (critical,verbose)")
	pf.StringVarP(&flagFormat, "format", "f", "", "Output format (text|json)")
	pf.BoolVar(&flagNoColour, "no-colour", false, "Disable ANSI colour")
	pf.BoolVar(&flagHideUnknown, "hide-unknown", false, "Drop records whose descriptor is missing")
	pf.StringVar(&flagDB, "db", "", "SQLite archive to store decoded records in")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress diagnostics")
}

// loadConfig reads the config file, then lets explicitly set flags win.
func loadConfig(cmd *cobra.Command, args []string) error {
	debug.Quiet(flagQuiet)

	var err error
	if cfg, err = config.Load(flagConfig); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("image") {
		cfg.Image = flagImage
	}
	if flags.Changed("sidecar") {
		cfg.Sidecar = flagSidecar
	}
	if flags.Changed("class") {
		cfg.Classes = flagClasses
	}
	if flags.Changed("level") {
		cfg.Levels = flagLevels
	}
	if flags.Changed("format") {
		cfg.Format = flagFormat
	}
	if flagNoColour || os.Getenv("NO_COLOR") != "" {
		cfg.Colour = false
	}
	if flags.Changed("hide-unknown") {
		show := !flagHideUnknown
		cfg.Unknown = &show
	}
	if flags.Changed("db") {
		cfg.Database = flagDB
	}
	return cfg.Validate()
}

// loadRegistry returns the descriptor table named by the config. An image
// wins over a sidecar since its table is exactly what was linked.
func loadRegistry() (*descriptor.Registry, error) {
	switch {
	case cfg.Image != "":
		return image.Load(cfg.Image)
	case cfg.Sidecar != "":
		data, err := os.ReadFile(cfg.Sidecar)
		if err != nil {
			return nil, fmt.Errorf("read sidecar: %w", err)
		}
		return descriptor.ReadJSON(data)
	}
	return nil, errNoTable
}

func newRenderer() *decoder.Renderer {
	return decoder.NewRenderer(os.Stdout, cfg.OutputFormat(), cfg.Colour)
}

// checkBuild warns, or fails when strict, if a sink was stamped by a
// different descriptor table. A sidecar matches any tag set it records.
func checkBuild(reg *descriptor.Registry, sinkID uint32, strict bool) error {
	if sinkID == 0 || reg.MatchesBuild(sinkID) {
		return nil
	}
	msg := fmt.Sprintf("sink build id %08x, descriptor table %08x", sinkID, reg.BuildID())
	if strict {
		return errors.New("build mismatch: " + msg)
	}
	debug.DropMessage("warning", msg)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
