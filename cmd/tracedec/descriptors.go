package main

import (
	"bufio"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"firmtrace/decoder"
)

func init() {
	rootCmd.AddCommand(descriptorsCmd)
}

var descriptorsCmd = &cobra.Command{
	Use:   "descriptors",
	Short: "List the descriptor table of an image or sidecar",
	Long: "Prints every call-site descriptor. With --format json the output is a\n" +
		"sidecar file that decode and poll accept through --sidecar.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		if cfg.OutputFormat() == decoder.FormatJSON {
			return reg.WriteJSON(os.Stdout)
		}

		w := bufio.NewWriter(os.Stdout)
		var b []byte
		for _, d := range reg.Descriptors() {
			b = b[:0]
			b = strconv.AppendUint(b, uint64(d.ID), 10)
			b = append(b, '\t')
			b = append(b, d.Component.Class().String()...)
			b = append(b, '/')
			b = append(b, d.Level.String()...)
			b = append(b, " 0x"...)
			b = strconv.AppendUint(b, uint64(d.Component.Code()), 16)
			b = append(b, '\t')
			b = append(b, d.File...)
			b = append(b, ':')
			b = strconv.AppendUint(b, uint64(d.Line), 10)
			b = append(b, '\t')
			b = strconv.AppendQuote(b, d.Format)
			b = append(b, '\n')
			w.Write(b)
		}
		w.WriteString("build id " + strconv.FormatUint(uint64(reg.BuildID()), 16) + "\n")
		return w.Flush()
	},
}
