// tracegen assigns trace call-site IDs and writes the descriptor tables.
//
//	tracegen [dir...]          regenerate every annotated package in the module
//	tracegen --check           report stale files without writing (CI)
//	tracegen --sidecar fw.json also write the JSON descriptor table
package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"firmtrace/constants"
	"firmtrace/debug"
	"firmtrace/tracegen"
)

var (
	flagRoot    string
	flagCheck   bool
	flagSidecar string
	flagQuiet   bool
)

var errStale = errors.New("generated trace files are out of date")

var rootCmd = &cobra.Command{
	Use:   "tracegen [dir...]",
	Short: "Generate trace site IDs and descriptor regions",
	Long: "Scans the module for //trace: directives, assigns module-unique site IDs\n" +
		"and writes zz_trace_sites.go plus one zz_region_<family>.go per emission family.\n" +
		"With no directories every package in the module is scanned.",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&flagRoot, "root", ".", "Directory inside the module to generate for")
	rootCmd.Flags().BoolVar(&flagCheck, "check", false, "Fail if any generated file is stale; write nothing")
	rootCmd.Flags().StringVar(&flagSidecar, "sidecar", "", "Also write the JSON descriptor table to this path")
	rootCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "Do not list changed files")
}

func run(cmd *cobra.Command, args []string) error {
	debug.Quiet(flagQuiet)

	root, err := tracegen.FindRoot(flagRoot)
	if err != nil {
		return err
	}
	m, err := tracegen.Scan(root, args...)
	if err != nil {
		return err
	}
	if err := m.Assign(constants.FirstSiteID); err != nil {
		return err
	}
	changes, err := m.Changes()
	if err != nil {
		return err
	}

	for _, c := range changes {
		verb := "write"
		if c.Remove {
			verb = "remove"
		}
		debug.DropMessage(verb, c.Path)
	}
	if flagCheck {
		if len(changes) > 0 {
			return fmt.Errorf("%w: %d files", errStale, len(changes))
		}
		return nil
	}
	if err := tracegen.Apply(changes); err != nil {
		return err
	}

	if flagSidecar != "" {
		reg, err := m.Registry()
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := reg.WriteJSON(&buf); err != nil {
			return err
		}
		if err := os.WriteFile(flagSidecar, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write sidecar: %w", err)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
