package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/kozaktomas/face-matcher/internal/imageutil"
	"github.com/kozaktomas/face-matcher/internal/pipeline"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register [identity] [image]",
	Short: "Register a face under an identity",
	Long: `Register the single face of an image under an identity and store it in
the configured database (DATABASE_URL or MARIADB_DSN).

A registration is rejected when the image has no face or several faces, when
the identity is taken, or when the face already matches a registered one.

With --dir every image of a directory is registered under its file name
(without extension). Files are processed in name order.

Examples:
  face-matcher register "Jan Novák" jan.jpg
  face-matcher register --dir ./people
  face-matcher register --dir ./people --json`,
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().String("dir", "", "Register every image in this directory")
	registerCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

func runRegister(cmd *cobra.Command, args []string) error {
	dir := mustGetString(cmd, "dir")
	jsonOutput := mustGetBool(cmd, "json")

	switch {
	case dir != "" && len(args) > 0:
		return errors.New("use either --dir or <identity> <image>, not both")
	case dir == "" && len(args) != 2:
		return errors.New("expected <identity> <image> or --dir <path>")
	}

	ctx := context.Background()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()
	if _, err := a.requireStore(); err != nil {
		return err
	}

	if dir != "" {
		return registerDirectory(ctx, a, dir, jsonOutput)
	}

	img, err := imageutil.DecodeFile(args[1])
	if err != nil {
		return err
	}
	result, err := a.pipeline.Register(ctx, args[0], img, filepath.Base(args[1]))
	if jsonOutput {
		out := map[string]any{"result": result}
		if err != nil {
			out["error"] = err.Error()
		}
		return outputJSON(out)
	}
	if err != nil {
		return fmt.Errorf("registration rejected (%s, code %d): %w", result.Outcome, result.Code, err)
	}
	fmt.Printf("Registered %q (id %s)\n", result.Record.Identity, result.Record.ID)
	return nil
}

func registerDirectory(ctx context.Context, a *app, dir string, jsonOutput bool) error {
	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Registering faces"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("images"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionFullWidth(),
			)
		}
		bar.Set(done)
	}
	var cb pipeline.ProgressFunc
	if !jsonOutput {
		cb = progress
	}

	report, err := a.pipeline.LoadDirectory(ctx, dir, cb)
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}

	if jsonOutput {
		return outputJSON(report)
	}

	for _, e := range report.Entries {
		if e.Error != "" {
			fmt.Printf("  SKIP %-30s %s\n", e.File, e.Error)
		}
	}
	fmt.Printf("Registered %d of %d images from %s\n", report.Registered, report.Total, dir)
	return nil
}
