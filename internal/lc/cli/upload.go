package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/learn.cheap/internal/lc/output"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a lecture video",
	Long: `Upload a video. The API stores the source and queues a transcode into
every quality in the ladder.

Examples:
  lc upload lecture.mp4
  lc upload lecture.mp4 --material 6f1c...   # Attach to a course material
  lc upload lecture.mp4 --watch              # Follow the transcode`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

var (
	uploadMaterial string
	uploadWatch    bool
)

func init() {
	uploadCmd.Flags().StringVarP(&uploadMaterial, "material", "m", "", "Course material ID to attach the video to")
	uploadCmd.Flags().BoolVarP(&uploadWatch, "watch", "w", false, "Watch transcode progress after upload")
}

func runUpload(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), cfg.GetTimeout("upload"))
	defer cancel()

	bar := output.NewByteProgress(info.Size(), "Uploading "+filepath.Base(path), quietMode || jsonOutput)
	result, err := apiClient.Upload(ctx, path, uploadMaterial, bar)
	bar.Finish()
	if err != nil {
		return err
	}

	if !uploadWatch {
		if jsonOutput {
			return printer.JSON(result)
		}
		printer.Success("Uploaded %s (%s)", result.Filename, formatSize(result.Size))
		printer.KeyValue("Video", result.ID)
		printer.KeyValue("Job", result.JobID)
		printer.KeyValue("Status", output.Status(result.Status))
		return nil
	}

	printer.Success("Uploaded %s as %s", result.Filename, result.ID)
	return watchVideo(commandContext(cmd), result.ID)
}
