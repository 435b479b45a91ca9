package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-matcher/internal/facematch"
	"github.com/kozaktomas/face-matcher/internal/imageutil"
	"github.com/kozaktomas/face-matcher/internal/pipeline"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize the faces of an image against registered identities",
	Long: `Match every face in an image against the faces registered in the database.
Each face lists all identities scoring under the threshold, best first; a face
without a match shows the closest identity instead.

With --nearest N the database is also asked for the N closest stored faces of
every face, regardless of the threshold.

Examples:
  face-matcher recognize party.jpg
  face-matcher recognize party.jpg --best --json
  face-matcher recognize party.jpg --nearest 5`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)
	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
	recognizeCmd.Flags().Bool("best", false, "Keep only the best match of every face")
	recognizeCmd.Flags().Int("nearest", 0, "Also list the N closest stored faces of every face")
}

// recognizedFace is the CLI view of one recognized face.
type recognizedFace struct {
	pipeline.Recognition
	Neighbors []facematch.Match `json:"neighbors,omitempty"`
}

func runRecognize(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	best := mustGetBool(cmd, "best")
	nearest := mustGetInt(cmd, "nearest")
	ctx := context.Background()

	img, err := imageutil.DecodeFile(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()
	if _, err := a.requireStore(); err != nil {
		return err
	}

	recognize := a.pipeline.Recognize
	if best {
		recognize = a.pipeline.RecognizeBest
	}
	results, err := recognize(ctx, img)
	if err != nil {
		return err
	}

	faces := make([]recognizedFace, len(results))
	for i, r := range results {
		faces[i] = recognizedFace{Recognition: r}
		if nearest > 0 {
			faces[i].Neighbors, err = a.pipeline.Nearest(ctx, r.Embedding, nearest)
			if err != nil {
				return err
			}
		}
	}

	if jsonOutput {
		return outputJSON(map[string]any{"count": len(faces), "faces": faces})
	}

	fmt.Printf("Found %d face(s) in %s\n", len(faces), args[0])
	for i, f := range faces {
		b := f.Detection.Box
		fmt.Printf("\nFace %d at [%.0f, %.0f, %.0f, %.0f]\n", i, b.Left, b.Top, b.Right, b.Bottom)
		switch {
		case len(f.Matches) > 0:
			for _, m := range f.Matches {
				fmt.Printf("  %-30s score %.4f\n", m.Identity, m.Score)
			}
		case f.Nearest != nil:
			fmt.Printf("  unknown (closest %s, score %.4f)\n", f.Nearest.Identity, f.Nearest.Score)
		default:
			fmt.Println("  unknown")
		}
		if len(f.Neighbors) > 0 {
			fmt.Println("  Nearest stored faces:")
			for _, m := range f.Neighbors {
				fmt.Printf("    %-28s score %.4f\n", m.Identity, m.Score)
			}
		}
	}
	return nil
}
