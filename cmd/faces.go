package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/database"
	"github.com/spf13/cobra"
)

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "Manage registered faces in the database",
}

var facesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered identities",
	Args:  cobra.NoArgs,
	RunE:  runFacesList,
}

var facesDeleteCmd = &cobra.Command{
	Use:   "delete <identity>",
	Short: "Delete one registered identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runFacesDelete,
}

var facesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all registered faces",
	Args:  cobra.NoArgs,
	RunE:  runFacesClear,
}

func init() {
	rootCmd.AddCommand(facesCmd)
	facesCmd.AddCommand(facesListCmd, facesDeleteCmd, facesClearCmd)

	facesListCmd.Flags().Bool("json", false, "Output as JSON")
	facesClearCmd.Flags().Bool("yes", false, "Do not ask for confirmation")
}

// withStore runs fn against the configured store without loading any model.
func withStore(fn func(ctx context.Context, store database.FaceWriter) error) error {
	ctx := context.Background()
	store, closeStore, err := openStore(ctx, config.Load())
	if err != nil {
		return err
	}
	if store == nil {
		return database.ErrNotInitialized
	}
	defer closeStore()
	return fn(ctx, store)
}

func runFacesList(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	return withStore(func(ctx context.Context, store database.FaceWriter) error {
		faces, err := store.ListFaces(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			for i := range faces {
				faces[i].Embedding = nil
			}
			return outputJSON(map[string]any{"count": len(faces), "faces": faces})
		}
		fmt.Printf("%d registered face(s)\n", len(faces))
		for _, f := range faces {
			fmt.Printf("  %-30s %s  %s  %s\n", f.Identity, f.ID, f.CreatedAt.Format("2006-01-02 15:04"), f.Source)
		}
		return nil
	})
}

func runFacesDelete(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, store database.FaceWriter) error {
		deleted, err := store.DeleteFace(ctx, args[0])
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("identity %q not found", args[0])
		}
		fmt.Printf("Deleted %q\n", args[0])
		return nil
	})
}

func runFacesClear(cmd *cobra.Command, args []string) error {
	if !mustGetBool(cmd, "yes") {
		fmt.Print("Delete all registered faces? [y/N] ")
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}
	return withStore(func(ctx context.Context, store database.FaceWriter) error {
		n, err := store.Count(ctx)
		if err != nil {
			return err
		}
		if err := store.ClearFaces(ctx); err != nil {
			return err
		}
		fmt.Printf("Deleted %d face(s)\n", n)
		return nil
	})
}
