package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/papersim/internal/cli"
	"github.com/hyperjump/papersim/internal/extract"
)

func (a *app) extractCmd() *cobra.Command {
	var (
		output string
		text   bool
	)
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the title, abstract and DOI found in a paper",
		Long: `Extract the title, abstract and DOI from a paper. PDFs use the page
layout; DOCX, ODT, RTF and plain text files are read as a single page.
Fields that cannot be found are reported as missing rather than guessed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if text {
				s, err := extract.NewExtractor().Extract(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), s)
				return nil
			}
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			result, err := extractFile(args[0])
			if err != nil {
				return err
			}
			return cli.WriteExtraction(cmd.OutOrStdout(), result, format)
		},
	}
	cmd.Flags().StringVar(&output, "output", "text", "output format: text, compact or json")
	cmd.Flags().BoolVar(&text, "text", false, "print the document's plain text instead of its front matter")
	return cmd
}
