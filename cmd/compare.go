package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-matcher/internal/imageutil"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare <image1> <image2>",
	Short: "Compare the faces of two images",
	Long: `Compare the single face of each image and report whether both show the
same person.

The score is the squared Euclidean distance between the unit embeddings
(0 identical, 4 opposite). Scores at or below the threshold are a match.

Examples:
  face-matcher compare alice1.jpg alice2.jpg
  face-matcher compare a.jpg b.jpg --json`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().Bool("json", false, "Output as JSON")
}

func runCompare(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	ctx := context.Background()

	img1, err := imageutil.DecodeFile(args[0])
	if err != nil {
		return err
	}
	img2, err := imageutil.DecodeFile(args[1])
	if err != nil {
		return err
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.pipeline.Compare(ctx, img1, img2)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(result)
	}

	verdict := "DIFFERENT PEOPLE"
	if result.IsSame {
		verdict = "SAME PERSON"
	}
	fmt.Printf("%s\n", verdict)
	fmt.Printf("  Score:              %.4f (threshold %.2f)\n", result.Score, result.Threshold)
	fmt.Printf("  Euclidean distance: %.4f\n", result.EuclideanDistance)
	fmt.Printf("  Cosine similarity:  %.4f\n", result.CosineSimilarity)
	fmt.Printf("  Face 1 score:       %.2f\n", result.Face1.Detection.Score)
	fmt.Printf("  Face 2 score:       %.2f\n", result.Face2.Detection.Score)
	return nil
}
