package config

const (
	defaultEncoderFile     = "encoder_weights.gob"
	defaultDecoderFile     = "decoder_weights.gob"
	defaultDownloadTimeout = 300
	defaultSteps           = 10
	defaultLatentSource    = LatentMean
	defaultOutputDir       = "morph"
	defaultOutputFormat    = FormatPNG
	defaultGIFDelay        = 10
	defaultSheetColumns    = 5
	defaultLogFormat       = "auto"
	defaultLogLevel        = "info"

	// WeightsDirEnv overrides the weight cache directory when weights.cache_dir is unset.
	WeightsDirEnv = "HOTSEATS_WEIGHTS_DIR"
)

// Latent sources for [morph].latent_source.
const (
	LatentMean   = "mean"
	LatentSample = "sample"
)

// Output formats for [output].format.
const (
	FormatPNG   = "png"
	FormatGIF   = "gif"
	FormatSheet = "sheet"
)

// Default returns the configuration of the published 100x100 RGB model.
func Default() Config {
	return Config{
		Model: Model{
			InputSize:  100,
			Channels:   3,
			Stages:     []int{32, 64, 128},
			KernelSize: 3,
			PoolSize:   2,
			LatentDim:  100,
		},
		Weights: Weights{
			EncoderFile:     defaultEncoderFile,
			DecoderFile:     defaultDecoderFile,
			DownloadTimeout: defaultDownloadTimeout,
		},
		Morph: Morph{
			Steps:        defaultSteps,
			LatentSource: defaultLatentSource,
		},
		Output: Output{
			Dir:          defaultOutputDir,
			Format:       defaultOutputFormat,
			GIFDelay:     defaultGIFDelay,
			Bounce:       true,
			SheetColumns: defaultSheetColumns,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
