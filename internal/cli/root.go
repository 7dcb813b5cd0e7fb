package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mammoprep/pkg/config"
	"mammoprep/pkg/logger"
)

var (
	// Version is set at build time
	Version = "0.1.0"

	// Global flags
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "mammoprep",
	Short: "mammoprep - mammography DICOM preprocessing for ML pipelines",
	Long: `mammoprep converts mammography DICOM studies into normalized 8-bit
grayscale PNGs, extracts annotated lesion crops, and partitions lesion
crops into training/test sets.

Commands:
  convert - Convert a directory of DICOM files to PNG
  split   - Move extracted lesion crops into train/test directories

Example:
  mammoprep convert --in ./images --out ./images_png --resize
  mammoprep convert --in ./images --out ./lesions_png --lesions annotations.csv
  mammoprep split --lesions-dir ./lesions_png --annotations annotations.csv`,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "mammoprep.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(splitCmd)
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

// setup loads the configuration file and builds the logger shared by
// the subcommands. Flags override file values in the subcommands.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.Output.Verbose = true
	}

	log, err := logger.New(cfg.Output.Verbose)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
