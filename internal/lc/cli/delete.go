package cli

import (
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <video-id>",
	Short: "Delete a video and its renditions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		if err := apiClient.DeleteVideo(commandContext(cmd), args[0]); err != nil {
			return err
		}
		if jsonOutput {
			return printer.JSON(map[string]any{"id": args[0], "deleted": true})
		}
		printer.Success("Deleted %s", args[0])
		return nil
	},
}
