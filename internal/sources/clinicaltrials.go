package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/docwise/medkb/internal/domain"
)

const clinicalTrialsBaseURL = "https://clinicaltrials.gov/api/v2/studies"

// ClinicalTrials searches registered studies on ClinicalTrials.gov (API v2).
type ClinicalTrials struct {
	client  *http.Client
	baseURL string
}

func NewClinicalTrials(client *http.Client) *ClinicalTrials {
	return &ClinicalTrials{client: client, baseURL: clinicalTrialsBaseURL}
}

func (a *ClinicalTrials) Name() string  { return "ClinicalTrials" }
func (a *ClinicalTrials) Priority() int { return 7 }

type clinicalTrialsResponse struct {
	Studies []struct {
		ProtocolSection struct {
			IdentificationModule struct {
				NCTID      string `json:"nctId"`
				BriefTitle string `json:"briefTitle"`
			} `json:"identificationModule"`
			StatusModule struct {
				OverallStatus string `json:"overallStatus"`
				StartDate     struct {
					Date string `json:"date"`
				} `json:"startDateStruct"`
			} `json:"statusModule"`
			DescriptionModule struct {
				BriefSummary string `json:"briefSummary"`
			} `json:"descriptionModule"`
			ConditionsModule struct {
				Conditions []string `json:"conditions"`
			} `json:"conditionsModule"`
		} `json:"protocolSection"`
	} `json:"studies"`
}

func (a *ClinicalTrials) Fetch(ctx context.Context, p Params) ([]domain.KnowledgeItem, error) {
	q := url.Values{}
	q.Set("query.term", p.Query)
	q.Set("pageSize", fmt.Sprintf("%d", clampMax(p.Max)))
	q.Set("format", "json")

	var resp clinicalTrialsResponse
	ok, err := getJSON(ctx, a.client, a.baseURL+"?"+q.Encode(), &resp)
	if err != nil {
		return nil, fmt.Errorf("clinicaltrials request failed: %w", err)
	}
	if !ok {
		return []domain.KnowledgeItem{}, nil
	}

	items := make([]domain.KnowledgeItem, 0, len(resp.Studies))
	for _, s := range resp.Studies {
		id := s.ProtocolSection.IdentificationModule.NCTID
		if id == "" {
			continue
		}
		tags := s.ProtocolSection.ConditionsModule.Conditions
		if status := s.ProtocolSection.StatusModule.OverallStatus; status != "" {
			tags = append(tags, strings.ToLower(status))
		}
		items = append(items, domain.KnowledgeItem{
			ID:       fmt.Sprintf("%s:%s", a.Name(), id),
			Title:    s.ProtocolSection.IdentificationModule.BriefTitle,
			Summary:  truncate(s.ProtocolSection.DescriptionModule.BriefSummary, 500),
			URL:      "https://clinicaltrials.gov/study/" + id,
			Source:   a.Name(),
			Date:     s.ProtocolSection.StatusModule.StartDate.Date,
			Tags:     tags,
			Priority: a.Priority(),
		})
	}
	return items, nil
}
