package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mammoprep/pkg/annotations"
	"mammoprep/pkg/split"
)

var (
	splitLesionsDir  string
	splitAnnotations string
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Move extracted lesion crops into train/test directories",
	Long: `Split assigns previously extracted lesion crops to the training or
test partition directory, according to the split column of the
annotation table. Files with an unknown split are reported and left in
place. Re-running after a partial completion is safe: already-moved
files are never touched again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		records, err := annotations.Load(splitAnnotations)
		if err != nil {
			return err
		}

		rep, err := split.Assign(splitLesionsDir, annotations.BuildSplitMap(records), log)
		if err != nil {
			return err
		}

		fmt.Printf("Moved %d lesion images (%d unknown split, %d unmatched, %d failed)\n",
			rep.Moved, rep.Unknown, rep.Unmatched, rep.Failed)
		return nil
	},
}

func init() {
	splitCmd.Flags().StringVar(&splitLesionsDir, "lesions-dir", "", "Directory containing extracted lesion PNGs")
	splitCmd.Flags().StringVar(&splitAnnotations, "annotations", "", "Annotation CSV path")
	splitCmd.MarkFlagRequired("lesions-dir")
	splitCmd.MarkFlagRequired("annotations")
}
