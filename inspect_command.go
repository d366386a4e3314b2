package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/b0tShaman/hotseats/ml"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show the layer table for the configured architecture",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			arch := cfg.Architecture()
			enc, err := ml.NewEncoder(arch)
			if err != nil {
				return err
			}
			dec, err := ml.NewDecoder(arch)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			base, before, after := arch.DecoderGrid()
			fmt.Fprintf(out, "input %s, latent %d, decoder grid %d (pad %d/%d)\n\n",
				arch.InputShape(), arch.LatentDim, base, before, after)

			fmt.Fprintln(out, "Encoder")
			fmt.Fprintln(out, layerTable(enc.Networks()...))
			fmt.Fprintln(out, "Decoder")
			fmt.Fprintln(out, layerTable(dec.Network()))
			return nil
		},
	}
}

func layerTable(nets ...*ml.Network) string {
	var rows [][]string
	total := 0
	for _, nw := range nets {
		for _, l := range nw.Summary() {
			rows = append(rows, []string{l.Name, l.Kind.String(), l.Activation.String(), l.Out.String(), humanize.Comma(int64(l.Params))})
		}
		total += nw.ParamCount()
	}
	return renderTable(
		[]string{"Layer", "Type", "Activation", "Output", "Params"},
		rows,
		[]string{"total", "", "", "", humanize.Comma(int64(total))},
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}

