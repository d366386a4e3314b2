package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/b0tShaman/hotseats/data"
	"github.com/b0tShaman/hotseats/morph"
)

type encodeOutput struct {
	Image          string    `json:"image"`
	Mean           []float64 `json:"mean"`
	LogVar         []float64 `json:"log_var"`
	Sample         []float64 `json:"sample"`
	Reconstruction string    `json:"reconstruction_png,omitempty"`
}

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var reconstruct bool

	cmd := &cobra.Command{
		Use:   "encode <image>",
		Short: "Print an image's latent mean, log-variance and sample as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			models, err := ctx.loadModels(cmd.Context(), logger)
			if err != nil {
				return err
			}
			pipeline, err := morph.NewPipeline(models, morph.Options{Logger: logger})
			if err != nil {
				return err
			}

			latent, err := pipeline.Encode(raw)
			if err != nil {
				return err
			}
			out := encodeOutput{Image: args[0], Mean: latent.Mean, LogVar: latent.LogVar, Sample: latent.Sample}
			if reconstruct {
				img, err := models.Decoder.Decode(latent.Mean)
				if err != nil {
					return err
				}
				if out.Reconstruction, err = data.Base64PNG(img); err != nil {
					return err
				}
			}
			return writeJSON(cmd, out)
		},
	}
	cmd.Flags().BoolVar(&reconstruct, "reconstruct", false, "Include the decoded mean as a base64 PNG")
	return cmd
}
