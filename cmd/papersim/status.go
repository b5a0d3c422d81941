package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/papersim/internal/cli"
	"github.com/hyperjump/papersim/internal/server"
)

func (a *app) statusCmd() *cobra.Command {
	var output, serverURL string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show corpus counts, disk usage and configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			var st *server.Status
			if serverURL != "" {
				st, err = statusViaHTTP(cmd.Context(), serverURL)
			} else {
				st, err = a.statusLocal(cmd.Context())
			}
			if err != nil {
				return err
			}
			return writeStatus(cmd.OutOrStdout(), st, format)
		},
	}
	cmd.Flags().StringVar(&output, "output", "text", "output format: text or json")
	cmd.Flags().StringVar(&serverURL, "server", "", "query a running server at this URL instead of opening the index")
	return cmd
}

func (a *app) statusLocal(ctx context.Context) (*server.Status, error) {
	cfg, logger, err := a.setup(false)
	if err != nil {
		return nil, err
	}
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	return server.CollectStatus(ctx, components.Storage, components.Engine, cfg, cfg.Watch.Directories)
}

func statusViaHTTP(ctx context.Context, serverURL string) (*server.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(serverURL, "/")+"/api/v1/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var st server.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &st, nil
}

func writeStatus(w io.Writer, st *server.Status, format cli.OutputFormat) error {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	fmt.Fprintf(w, "Papers:        %d\n", st.Papers)
	fmt.Fprintf(w, "Embeddings:    %d (%s, %d dims)\n", st.Embeddings, st.Model, st.Config.Dimensions)
	fmt.Fprintf(w, "Vector index:  %d\n", st.VectorIndexSize)
	fmt.Fprintf(w, "Disk usage:    %s\n", formatBytes(st.DiskUsageBytes))
	fmt.Fprintf(w, "Database:      %s\n", st.Config.DatabasePath)
	fmt.Fprintf(w, "Ranking:       semantic %.2f, keyword %.2f\n", st.Config.SemanticWeight, st.Config.KeywordWeight)
	if len(st.WatchDirectories) > 0 {
		fmt.Fprintf(w, "Watching:      %s\n", strings.Join(st.WatchDirectories, ", "))
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
