package cli

import (
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open <video-id>",
	Short: "Open a video stream in the browser",
	Long: `Open the stream URL for a video in the default browser. The URL carries
the token as a query parameter so it plays in a plain <video> element.

Examples:
  lc open 0b6e...
  lc open 0b6e... --quality 480p
  lc open 0b6e... --print     # Print the URL instead`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

var (
	openQuality string
	openPrint   bool
)

// openURL is replaced in tests.
var openURL = browser.OpenURL

func init() {
	openCmd.Flags().StringVarP(&openQuality, "quality", "q", "", "Quality to stream (default: best available)")
	openCmd.Flags().BoolVar(&openPrint, "print", false, "Print the URL without opening a browser")
}

func runOpen(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}

	url := apiClient.StreamURL(args[0], openQuality)
	if jsonOutput {
		return printer.JSON(map[string]string{"url": url})
	}
	if openPrint {
		printer.Println(url)
		return nil
	}

	if err := openURL(url); err != nil {
		printer.Warn("Could not open browser automatically")
		printer.Printf("Open this URL manually: %s\n", url)
		return nil
	}
	printer.Info("Opened %s", url)
	return nil
}
