package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/learn.cheap/internal/lc/client"
	"github.com/abdul-hamid-achik/learn.cheap/internal/lc/output"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <video-id>",
	Short: "Show transcode status for a video",
	Long: `Show the status, progress and per-quality renditions of a video.

Examples:
  lc status 0b6e...
  lc status 0b6e... --json`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

var watchCmd = &cobra.Command{
	Use:   "watch <video-id>",
	Short: "Follow transcode progress until it finishes",
	Long: `Subscribe to the progress event stream and render a progress bar until
the video is COMPLETED or FAILED. Exits non-zero on FAILED.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		return watchVideo(commandContext(cmd), args[0])
	},
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}

	p, err := apiClient.Status(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get video status: %w", err)
	}

	if jsonOutput {
		return printer.JSON(p)
	}
	printProgress(p)
	return nil
}

func printProgress(p *client.Progress) {
	printer.Section("Video")
	printer.KeyValue("ID", p.VideoID)
	printer.KeyValue("Status", output.Status(p.Status))
	printer.KeyValue("Progress", fmt.Sprintf("%d%%", p.Progress))
	if p.Error != "" {
		printer.KeyValue("Error", p.Error)
	}

	if len(p.TargetQualities) == 0 {
		return
	}
	done := make(map[string]bool, len(p.CompletedQualities))
	for _, q := range p.CompletedQualities {
		done[q] = true
	}

	printer.Section("Qualities")
	table := output.NewTable(printer.Out(), []string{"Quality", "Ready"}, quietMode)
	for _, q := range p.TargetQualities {
		ready := "no"
		if done[q] {
			ready = "yes"
		}
		table.Append([]string{q, ready})
	}
	table.Render()
}

func watchVideo(ctx context.Context, videoID string) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.GetTimeout("watch"))
	defer cancel()

	bar := output.NewPercentProgress("Transcoding", quietMode || jsonOutput)
	final, err := apiClient.Watch(ctx, videoID, func(p client.Progress) {
		label := "Transcoding"
		if len(p.CompletedQualities) > 0 {
			label = "Transcoding [" + strings.Join(p.CompletedQualities, " ") + "]"
		}
		bar.Set(p.Progress, label)
	})
	bar.Finish()
	if err != nil {
		return fmt.Errorf("watch %s: %w", videoID, err)
	}

	if jsonOutput {
		if err := printer.JSON(final); err != nil {
			return err
		}
	} else {
		printProgress(final)
	}

	if final.Status == "FAILED" {
		return fmt.Errorf("video %s failed: %s", videoID, final.Error)
	}
	if final.Error != "" {
		printer.Warn("Completed with warnings: %s", final.Error)
	}
	return nil
}
