package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// QueryRequest represents the query API request.
type QueryRequest struct {
	Query string `json:"query"`
	Lang  string `json:"lang,omitempty"`
}

// QueryKnowledgeItem is one external knowledge item in a query response.
type QueryKnowledgeItem struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	URL     string   `json:"url"`
	Source  string   `json:"source"`
	Date    string   `json:"date,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// QueryResponse represents the query API response.
type QueryResponse struct {
	Agent   string               `json:"agent"`
	Items   []QueryKnowledgeItem `json:"items"`
	Matches []Match              `json:"matches"`
	Context string               `json:"context"`
}

// QueryCmd creates the query command.
func QueryCmd() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Ask the knowledge engine",
		Long:  "Classifies the question, fetches live medical sources, and searches the tenant index in one call.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetString("output")
			return runQuery(cmd, args[0], lang, outputJSON == "json")
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Query language hint (e.g. de, en)")

	return cmd
}

func runQuery(cmd *cobra.Command, query, lang string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/query", QueryRequest{Query: query, Lang: lang})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var queryResp QueryResponse
	if err := json.Unmarshal(resp.Data, &queryResp); err != nil {
		return fmt.Errorf("failed to parse query response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(queryResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Agent: %s\n", queryResp.Agent)

	if len(queryResp.Items) > 0 {
		fmt.Printf("\nExternal sources (%d):\n", len(queryResp.Items))
		for i, item := range queryResp.Items {
			fmt.Printf("%d. %s (%s)\n", i+1, item.Title, item.Source)
			if item.Summary != "" {
				summary := item.Summary
				if len(summary) > 120 {
					summary = summary[:117] + "..."
				}
				fmt.Printf("   %s\n", summary)
			}
			if item.URL != "" {
				fmt.Printf("   %s\n", item.URL)
			}
		}
	}

	if len(queryResp.Matches) > 0 {
		fmt.Printf("\nIndexed records (%d):\n", len(queryResp.Matches))
		for i, match := range queryResp.Matches {
			printMatch(i+1, match)
		}
	}

	if len(queryResp.Items) == 0 && len(queryResp.Matches) == 0 {
		fmt.Println("No results found.")
	}

	return nil
}
