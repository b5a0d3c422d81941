package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) rebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the vector and keyword indices from the database",
		Long: `Rebuild the vector and keyword indices from the papers in the database.
Papers without an embedding for the configured model are embedded again.
Use this after changing the embedding model.`,
		Args: cobra.NoArgs,
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
			n, err := components.Indexer.Rebuild(cmd.Context())
			if err != nil {
				return err
			}
			if err := components.Indexer.SaveVectors(cfg.Storage.VectorIndexPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rebuilt indices with %d papers\n", n)
			return nil
		},
	}
}
