package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Load recipe documents into the index",
	Long: `Load a JSON array of recipe documents into the configured index. Use "-"
to read from stdin. Documents without an embedding are embedded first.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

var clipCmd = &cobra.Command{
	Use:   "clip <url>",
	Short: "Import a recipe web page into the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runClip,
}

var ingestForce bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Import recipe posts from Ghost",
	Long: `Fetch every post tagged GHOST_TAG from the Ghost blog at GHOST_URL and
import it into the index. Posts already in the index are skipped unless
--force is given.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(seedCmd, clipCmd, ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-import posts already in the index")
}

func runSeed(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		r = f
	}

	n, err := application.Seed(cmd.Context(), r)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %d recipes.\n", n)
	return nil
}

func runClip(cmd *cobra.Command, args []string) error {
	doc, err := application.Clip(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Clipped %q as %s (%d ingredients).\n", doc.Title, doc.ID, len(doc.IngredientsNorm))
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	report, err := application.Ingest(cmd.Context(), ingestForce)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d posts: %d stored, %d skipped, %d failed.\n",
		report.Fetched, report.Stored, report.Skipped, report.Failed)
	return nil
}
