package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// MatchPayload is the stored payload of an index point.
type MatchPayload struct {
	TenantID    string   `json:"tenant_id,omitempty"`
	Type        string   `json:"type"`
	Text        string   `json:"text"`
	SourceRef   string   `json:"source_ref,omitempty"`
	Topic       string   `json:"topic,omitempty"`
	PatientID   string   `json:"patient_id,omitempty"`
	PatientName string   `json:"patient_name,omitempty"`
	Date        string   `json:"date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Match is one scored hit from the vector index.
type Match struct {
	ID      string       `json:"id"`
	Score   float32      `json:"score"`
	Payload MatchPayload `json:"payload"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Count   int     `json:"count"`
	Matches []Match `json:"matches"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		pointType      string
		patientID      string
		patientName    string
		date           string
		limit          int
		offset         int
		scoreThreshold float64
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the tenant index",
		Long:  "Searches the tenant's vector index using semantic similarity.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			opts := searchOptions{
				pointType:      pointType,
				patientID:      patientID,
				patientName:    patientName,
				date:           date,
				limit:          limit,
				offset:         offset,
				scoreThreshold: scoreThreshold,
			}
			return runSearch(cmd, args[0], opts, outputFormat == "json")
		},
	}

	cmd.Flags().StringVarP(&pointType, "type", "t", "", "Filter by point type (patient, report, lab, knowledge)")
	cmd.Flags().StringVar(&patientID, "patient-id", "", "Filter by patient ID")
	cmd.Flags().StringVar(&patientName, "patient-name", "", "Filter by patient name")
	cmd.Flags().StringVar(&date, "date", "", "Filter by date (YYYY-MM-DD)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of results to skip")
	cmd.Flags().Float64Var(&scoreThreshold, "score-threshold", 0, "Minimum similarity score")

	return cmd
}

type searchOptions struct {
	pointType      string
	patientID      string
	patientName    string
	date           string
	limit          int
	offset         int
	scoreThreshold float64
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("q", query)
	if opts.pointType != "" {
		params.Set("type", opts.pointType)
	}
	if opts.patientID != "" {
		params.Set("patientId", opts.patientID)
	}
	if opts.patientName != "" {
		params.Set("patientName", opts.patientName)
	}
	if opts.date != "" {
		params.Set("date", opts.date)
	}
	if opts.limit != 0 {
		params.Set("limit", strconv.Itoa(opts.limit))
	}
	if opts.offset != 0 {
		params.Set("offset", strconv.Itoa(opts.offset))
	}
	if opts.scoreThreshold != 0 {
		params.Set("scoreThreshold", strconv.FormatFloat(opts.scoreThreshold, 'f', -1, 64))
	}

	resp, err := api.Get("/search?" + params.Encode())
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if searchResp.Count == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", searchResp.Count)
	for i, match := range searchResp.Matches {
		printMatch(i+1, match)
	}

	return nil
}

func printMatch(n int, match Match) {
	label := match.Payload.Type
	if match.Payload.PatientName != "" {
		label += ", " + match.Payload.PatientName
	}
	if match.Payload.Date != "" {
		label += ", " + match.Payload.Date
	}
	fmt.Printf("%d. [%s] (%.2f)\n", n, label, match.Score)

	text := match.Payload.Text
	if len(text) > 120 {
		text = text[:117] + "..."
	}
	fmt.Printf("   %s\n", text)

	if match.Payload.SourceRef != "" {
		fmt.Printf("   Source: %s\n", match.Payload.SourceRef)
	}
	fmt.Printf("   ID: %s\n", match.ID)
}
