package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ReindexRequest represents the reindex API request.
type ReindexRequest struct {
	Async bool `json:"async,omitempty"`
}

// ReindexResponse represents the reindex API response.
type ReindexResponse struct {
	Indexed int    `json:"indexed,omitempty"`
	Status  string `json:"status"`
}

// ReindexCmd creates the reindex command.
func ReindexCmd() *cobra.Command {
	var async bool

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the tenant's index",
		Long:  "Rebuilds all index points for the tenant's records. Use --async to queue the rebuild for the background worker.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runReindex(cmd, async, outputFormat == "json")
		},
	}

	cmd.Flags().BoolVar(&async, "async", false, "Queue the reindex instead of running it synchronously")

	return cmd
}

func runReindex(cmd *cobra.Command, async, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	var body interface{}
	if async {
		body = ReindexRequest{Async: true}
	}

	resp, err := api.Post("/reindex", body)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	var reindexResp ReindexResponse
	if err := json.Unmarshal(resp.Data, &reindexResp); err != nil {
		return fmt.Errorf("failed to parse reindex response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(reindexResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if reindexResp.Status == "queued" {
		fmt.Println("Reindex queued.")
		return nil
	}

	fmt.Printf("Reindex completed: %d points indexed\n", reindexResp.Indexed)
	return nil
}
