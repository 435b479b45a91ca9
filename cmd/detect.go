package cmd

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/kozaktomas/face-matcher/internal/imageutil"
	"github.com/kozaktomas/face-matcher/internal/pipeline"
	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Detect the face of an image and compute its embedding",
	Long: `Detect the single face of an image and print its box, landmarks, score and
embedding size. Images with no face or several faces are rejected; use --all
to list every face instead.

With --aligned-dir each aligned 112x112 face is written as face_<n>.jpg,
which shows exactly what the recognizer sees.

Examples:
  face-matcher detect portrait.jpg
  face-matcher detect group.jpg --all --aligned-dir ./aligned --json`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().Bool("json", false, "Output as JSON (includes embeddings)")
	detectCmd.Flags().Bool("all", false, "List every face instead of requiring exactly one")
	detectCmd.Flags().String("aligned-dir", "", "Directory to write aligned face crops to")
}

func runDetect(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	all := mustGetBool(cmd, "all")
	alignedDir := mustGetString(cmd, "aligned-dir")
	ctx := context.Background()

	img, err := imageutil.DecodeFile(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	var faces []pipeline.Face
	if all {
		faces, err = detectAll(ctx, a.pipeline, img)
	} else {
		var face pipeline.Face
		face, err = a.pipeline.DetectSingle(ctx, img)
		faces = []pipeline.Face{face}
	}
	if err != nil {
		return err
	}

	if alignedDir != "" {
		if err := writeAlignedFaces(a.pipeline, img, faces, alignedDir); err != nil {
			return err
		}
	}

	if jsonOutput {
		if !all {
			return outputJSON(faces[0])
		}
		return outputJSON(map[string]any{"count": len(faces), "faces": faces})
	}

	fmt.Printf("Found %d face(s) in %s\n", len(faces), args[0])
	for i, f := range faces {
		b := f.Detection.Box
		fmt.Printf("\nFace %d (score %.3f)\n", i, f.Detection.Score)
		fmt.Printf("  Box:       [%.1f, %.1f, %.1f, %.1f]\n", b.Left, b.Top, b.Right, b.Bottom)
		names := []string{"left eye", "right eye", "nose", "mouth left", "mouth right"}
		for j, p := range f.Detection.Landmarks {
			fmt.Printf("  %-10s (%.1f, %.1f)\n", names[j]+":", p.X, p.Y)
		}
		fmt.Printf("  Embedding: %d dims\n", len(f.Embedding))
	}
	return nil
}

// detectAll extracts every face of img, best first.
func detectAll(ctx context.Context, p *pipeline.Pipeline, img image.Image) ([]pipeline.Face, error) {
	dets, err := p.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	faces := make([]pipeline.Face, 0, len(dets))
	for _, det := range dets {
		face, err := p.Extract(ctx, img, det)
		if err != nil {
			return nil, err
		}
		faces = append(faces, face)
	}
	return faces, nil
}

// writeAlignedFaces saves the aligned crop of every face as JPEG.
func writeAlignedFaces(p *pipeline.Pipeline, img image.Image, faces []pipeline.Face, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	for i, f := range faces {
		aligned, err := p.AlignFace(img, f.Detection)
		if err != nil {
			return err
		}
		data, err := imageutil.EncodeJPEG(aligned, imageutil.DefaultJPEGQuality)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, fmt.Sprintf("face_%d.jpg", i))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}
