package main

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/b0tShaman/hotseats/ml"
)

func newWeightsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Manage encoder and decoder weights",
	}
	cmd.AddCommand(newWeightsFetchCommand(ctx))
	cmd.AddCommand(newWeightsInitCommand(ctx))
	return cmd
}

func newWeightsFetchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the configured weights into the local cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			prov := ctx.provisioner(logger)

			for _, artifact := range []struct{ role, url, path string }{
				{"encoder", cfg.Weights.EncoderURL, cfg.EncoderPath()},
				{"decoder", cfg.Weights.DecoderURL, cfg.DecoderPath()},
			} {
				if artifact.url == "" {
					return fmt.Errorf("weights.%s_url is not set", artifact.role)
				}
				path, err := prov.EnsureLocal(cmd.Context(), artifact.url, artifact.path)
				if err != nil {
					return err
				}
				info, err := os.Stat(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", artifact.role, path, humanize.Bytes(uint64(info.Size())))
			}
			return nil
		},
	}
}

func newWeightsInitCommand(ctx *commandContext) *cobra.Command {
	var seed uint64
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write randomly initialised weights for the configured architecture",
		Long: "Writes He-initialised encoder and decoder weights into the cache. " +
			"The output is untrained; it exists for smoke tests and benchmarks.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !overwrite {
				for _, path := range []string{cfg.EncoderPath(), cfg.DecoderPath()} {
					if _, err := os.Stat(path); err == nil {
						return fmt.Errorf("weights already exist at %s (use --overwrite to replace them)", path)
					} else if !errors.Is(err, fs.ErrNotExist) {
						return fmt.Errorf("check weights path: %w", err)
					}
				}
			}
			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}
			if err := os.MkdirAll(cfg.Weights.CacheDir, 0o755); err != nil {
				return fmt.Errorf("create weights directory: %w", err)
			}

			arch := cfg.Architecture()
			rng := rand.New(rand.NewPCG(seed, seed>>1|1))
			enc, err := ml.NewEncoder(arch)
			if err != nil {
				return err
			}
			enc.InitWeights(rng)
			dec, err := ml.NewDecoder(arch)
			if err != nil {
				return err
			}
			dec.InitWeights(rng)

			if err := enc.SaveToFile(cfg.EncoderPath()); err != nil {
				return fmt.Errorf("save encoder: %w", err)
			}
			if err := dec.SaveToFile(cfg.DecoderPath()); err != nil {
				return fmt.Errorf("save decoder: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "encoder: %s\n", cfg.EncoderPath())
			fmt.Fprintf(out, "decoder: %s\n", cfg.DecoderPath())
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for the initial weights")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing weights files")
	return cmd
}
