package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/papersim/internal/cli"
)

func (a *app) similarCmd() *cobra.Command {
	var (
		limit  int
		output string
	)
	cmd := &cobra.Command{
		Use:   "similar <paper-id>",
		Short: "List the indexed papers nearest to an indexed paper",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			cfg, logger, err := a.setup(false)
			if err != nil {
				return err
			}
			components, err := initializeComponents(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer components.Close()
			response, err := components.Engine.Similar(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return cli.WriteSearchResults(cmd.OutOrStdout(), response, format)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of results (default from config)")
	cmd.Flags().StringVar(&output, "output", "text", "output format: text, compact or json")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var source bool
	cmd := &cobra.Command{
		Use:   "delete <paper-id>...",
		Short: "Delete papers by ID, or by source file with --source",
		Args:  cobra.MinimumNArgs(1),
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
			for _, arg := range args {
				if source {
					n, err := components.Indexer.DeleteBySource(cmd.Context(), arg)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "deleted %d papers from %s\n", n, arg)
					continue
				}
				if err := components.Indexer.DeletePaper(cmd.Context(), arg); err != nil {
					return fmt.Errorf("delete %s: %w", arg, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", arg)
			}
			return components.Indexer.SaveVectors(cfg.Storage.VectorIndexPath)
		},
	}
	cmd.Flags().BoolVar(&source, "source", false, "treat arguments as source file paths")
	return cmd
}
