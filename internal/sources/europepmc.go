package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/docwise/medkb/internal/domain"
)

const europePMCBaseURL = "https://www.ebi.ac.uk/europepmc/webservices/rest/search"

// EuropePMC searches the Europe PMC literature index, which covers PubMed and
// PMC. Highest-priority source: peer-reviewed primary literature.
type EuropePMC struct {
	client  *http.Client
	baseURL string
}

func NewEuropePMC(client *http.Client) *EuropePMC {
	return &EuropePMC{client: client, baseURL: europePMCBaseURL}
}

func (a *EuropePMC) Name() string  { return "EuropePMC" }
func (a *EuropePMC) Priority() int { return 9 }

type europePMCResponse struct {
	ResultList struct {
		Result []struct {
			ID                   string `json:"id"`
			Source               string `json:"source"`
			Title                string `json:"title"`
			AbstractText         string `json:"abstractText"`
			AuthorString         string `json:"authorString"`
			JournalTitle         string `json:"journalTitle"`
			DOI                  string `json:"doi"`
			FirstPublicationDate string `json:"firstPublicationDate"`
			PubType              string `json:"pubType"`
		} `json:"result"`
	} `json:"resultList"`
}

func (a *EuropePMC) Fetch(ctx context.Context, p Params) ([]domain.KnowledgeItem, error) {
	q := url.Values{}
	q.Set("query", p.Query)
	q.Set("format", "json")
	q.Set("resultType", "core")
	q.Set("pageSize", fmt.Sprintf("%d", clampMax(p.Max)))

	var resp europePMCResponse
	ok, err := getJSON(ctx, a.client, a.baseURL+"?"+q.Encode(), &resp)
	if err != nil {
		return nil, fmt.Errorf("europepmc request failed: %w", err)
	}
	if !ok {
		return []domain.KnowledgeItem{}, nil
	}

	items := make([]domain.KnowledgeItem, 0, len(resp.ResultList.Result))
	for _, r := range resp.ResultList.Result {
		if r.ID == "" && r.Title == "" {
			continue
		}
		link := fmt.Sprintf("https://europepmc.org/article/%s/%s", r.Source, r.ID)
		if r.DOI != "" {
			link = "https://doi.org/" + r.DOI
		}
		summary := truncate(r.AbstractText, 500)
		if summary == "" {
			summary = r.JournalTitle
		}
		tags := []string{}
		if r.PubType != "" {
			tags = append(tags, r.PubType)
		}
		items = append(items, domain.KnowledgeItem{
			ID:       fmt.Sprintf("%s:%s", a.Name(), r.ID),
			Title:    r.Title,
			Summary:  summary,
			URL:      link,
			Source:   a.Name(),
			Date:     r.FirstPublicationDate,
			Tags:     tags,
			Priority: a.Priority(),
		})
	}
	return items, nil
}
