package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyperjump/papersim/internal/indexer"
)

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>...",
		Short: "Import papers from corpus files, paper files or directories",
		Long: `Import papers. Corpus files (.jsonl, .json, .xlsx) hold one record per
paper with title, abstract, url and year. Paper files (.pdf, .docx, .odt,
.rtf) are indexed when both title and abstract can be extracted.
Directories are imported recursively.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.setup(false)
			if err != nil {
				return err
			}
			components, err := initializeComponents(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer components.Close()

			total := &indexer.ImportResult{}
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return err
				}
				var res *indexer.ImportResult
				if info.IsDir() {
					res, err = components.Indexer.ImportDirectory(cmd.Context(), path, cfg.Watch.Extensions)
				} else {
					res, err = components.Indexer.ImportFile(cmd.Context(), path)
				}
				if err != nil {
					return fmt.Errorf("import %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d indexed, %d skipped, %d removed\n", path, res.Indexed, res.Skipped, res.Removed)
				total.Indexed += res.Indexed
				total.Skipped += res.Skipped
				total.Removed += res.Removed
			}
			if len(args) > 1 {
				fmt.Fprintf(cmd.OutOrStdout(), "total: %d indexed, %d skipped, %d removed\n", total.Indexed, total.Skipped, total.Removed)
			}
			return components.Indexer.SaveVectors(cfg.Storage.VectorIndexPath)
		},
	}
}
