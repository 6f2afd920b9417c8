package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// IngestRequest represents the ingest API request.
type IngestRequest struct {
	Topic string `json:"topic"`
}

// IngestResponse represents the ingest API response.
type IngestResponse struct {
	Ingested int    `json:"ingested"`
	Topic    string `json:"topic"`
}

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <topic>",
		Short: "Ingest a topic into the shared knowledge index",
		Long:  "Fetches external medical sources for a topic and indexes the results as shared knowledge.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runIngest(cmd, args[0], outputFormat == "json")
		},
	}

	return cmd
}

func runIngest(cmd *cobra.Command, topic string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/ingest", IngestRequest{Topic: topic})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	var ingestResp IngestResponse
	if err := json.Unmarshal(resp.Data, &ingestResp); err != nil {
		return fmt.Errorf("failed to parse ingest response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(ingestResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Ingested %d knowledge points for topic '%s'\n", ingestResp.Ingested, ingestResp.Topic)
	return nil
}
