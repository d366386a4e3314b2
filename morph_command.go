package main

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/b0tShaman/hotseats/config"
	"github.com/b0tShaman/hotseats/data"
	"github.com/b0tShaman/hotseats/ml"
	"github.com/b0tShaman/hotseats/morph"
)

type morphFlags struct {
	steps   int
	out     string
	format  string
	source  string
	workers int
	prefix  string
}

func newMorphCommand(ctx *commandContext) *cobra.Command {
	var flags morphFlags

	cmd := &cobra.Command{
		Use:   "morph <image-a> <image-b>",
		Short: "Render the latent-space transition from one image to another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applyMorphDefaults(cmd, &flags, cfg)

			rawA, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image A: %w", err)
			}
			rawB, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read image B: %w", err)
			}

			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			models, err := ctx.loadModels(cmd.Context(), logger)
			if err != nil {
				return err
			}
			pipeline, err := morph.NewPipeline(models, morph.Options{
				Workers:      flags.workers,
				LatentSource: morph.LatentSource(flags.source),
				Logger:       logger,
			})
			if err != nil {
				return err
			}

			res, err := pipeline.Morph(cmd.Context(), rawA, rawB, flags.steps)
			if err != nil {
				return err
			}

			paths, err := writeFrames(flags, cfg, res.Frames)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&flags.steps, "steps", "n", 0, "Number of frames (default from [morph].steps)")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Output directory (default from [output].dir)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "Output format: png, gif or sheet")
	cmd.Flags().StringVar(&flags.source, "latent-source", "", "Latent to interpolate: mean or sample")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Concurrent decodes (0 = one per CPU)")
	cmd.Flags().StringVar(&flags.prefix, "prefix", "morph", "File name prefix")
	return cmd
}

func applyMorphDefaults(cmd *cobra.Command, flags *morphFlags, cfg *config.Config) {
	if !cmd.Flags().Changed("steps") {
		flags.steps = cfg.Morph.Steps
	}
	if flags.out == "" {
		flags.out = cfg.Output.Dir
	}
	if flags.format == "" {
		flags.format = cfg.Output.Format
	}
	if flags.source == "" {
		flags.source = cfg.Morph.LatentSource
	}
	if !cmd.Flags().Changed("workers") {
		flags.workers = cfg.Morph.Workers
	}
}

func writeFrames(flags morphFlags, cfg *config.Config, frames []*ml.Tensor) ([]string, error) {
	switch flags.format {
	case config.FormatPNG:
		return data.WriteSequence(flags.out, flags.prefix, frames)
	case config.FormatGIF:
		path := filepath.Join(flags.out, flags.prefix+".gif")
		err := createFile(path, func(f *os.File) error {
			return data.EncodeGIF(f, frames, cfg.Output.GIFDelay, cfg.Output.Bounce)
		})
		return []string{path}, err
	case config.FormatSheet:
		sheet, err := data.ContactSheet(frames, cfg.Output.SheetColumns)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(flags.out, flags.prefix+"_sheet.png")
		err = createFile(path, func(f *os.File) error { return png.Encode(f, sheet) })
		return []string{path}, err
	default:
		return nil, fmt.Errorf("unsupported output format %q (want png, gif or sheet)", flags.format)
	}
}

func createFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
