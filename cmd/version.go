package cmd

import (
	"fmt"
	"runtime"

	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/spf13/cobra"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// versionInfo is the build and model configuration of the binary.
type versionInfo struct {
	Version    string  `json:"version"`
	Commit     string  `json:"commit"`
	Built      string  `json:"built"`
	Go         string  `json:"go"`
	Backend    string  `json:"backend"`
	Detector   string  `json:"detector"`
	Recognizer string  `json:"recognizer"`
	Threshold  float64 `json:"threshold"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the configured face models",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		info := versionInfo{
			Version:    Version,
			Commit:     CommitSHA,
			Built:      BuildDate,
			Go:         runtime.Version(),
			Backend:    cfg.Inference.Backend,
			Detector:   cfg.Detector.Profile,
			Recognizer: cfg.Recognizer.Profile,
			Threshold:  cfg.Matching.Threshold,
		}
		if mustGetBool(cmd, "json") {
			return outputJSON(info)
		}

		fmt.Printf("face-matcher %s\n", info.Version)
		fmt.Printf("  Commit:     %s\n", info.Commit)
		fmt.Printf("  Built:      %s (%s)\n", info.Built, info.Go)
		fmt.Printf("  Backend:    %s\n", info.Backend)
		fmt.Printf("  Detector:   %s\n", info.Detector)
		fmt.Printf("  Recognizer: %s\n", info.Recognizer)
		fmt.Printf("  Threshold:  %.2f\n", info.Threshold)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("json", false, "Output as JSON")
}
