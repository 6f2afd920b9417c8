package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/docwise/medkb/internal/domain"
)

const openFDABaseURL = "https://api.fda.gov/drug/label.json"

// OpenFDA searches FDA drug label data. The API key is optional and only
// raises the rate limit.
type OpenFDA struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewOpenFDA(client *http.Client, apiKey string) *OpenFDA {
	return &OpenFDA{client: client, baseURL: openFDABaseURL, apiKey: apiKey}
}

func (a *OpenFDA) Name() string  { return "openFDA" }
func (a *OpenFDA) Priority() int { return 8 }

type openFDAResponse struct {
	Results []struct {
		ID            string   `json:"id"`
		EffectiveTime string   `json:"effective_time"`
		Indications   []string `json:"indications_and_usage"`
		Warnings      []string `json:"warnings"`
		OpenFDA       struct {
			BrandName   []string `json:"brand_name"`
			GenericName []string `json:"generic_name"`
			Route       []string `json:"route"`
		} `json:"openfda"`
	} `json:"results"`
}

func (a *OpenFDA) Fetch(ctx context.Context, p Params) ([]domain.KnowledgeItem, error) {
	q := url.Values{}
	q.Set("search", fmt.Sprintf("indications_and_usage:%q", p.Query))
	q.Set("limit", fmt.Sprintf("%d", clampMax(p.Max)))
	if a.apiKey != "" {
		q.Set("api_key", a.apiKey)
	}

	var resp openFDAResponse
	ok, err := getJSON(ctx, a.client, a.baseURL+"?"+q.Encode(), &resp)
	if err != nil {
		return nil, fmt.Errorf("openfda request failed: %w", err)
	}
	if !ok {
		return []domain.KnowledgeItem{}, nil
	}

	items := make([]domain.KnowledgeItem, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.ID == "" {
			continue
		}
		title := strings.Join(r.OpenFDA.BrandName, ", ")
		if title == "" {
			title = strings.Join(r.OpenFDA.GenericName, ", ")
		}
		if title == "" {
			title = "Drug label " + r.ID
		}
		summary := ""
		if len(r.Indications) > 0 {
			summary = truncate(r.Indications[0], 500)
		}
		items = append(items, domain.KnowledgeItem{
			ID:       fmt.Sprintf("%s:%s", a.Name(), r.ID),
			Title:    title,
			Summary:  summary,
			URL:      "https://open.fda.gov/apis/drug/label/#" + r.ID,
			Source:   a.Name(),
			Date:     normalizeFDADate(r.EffectiveTime),
			Tags:     r.OpenFDA.Route,
			Priority: a.Priority(),
		})
	}
	return items, nil
}

// normalizeFDADate converts the label's YYYYMMDD form to ISO.
func normalizeFDADate(raw string) string {
	if len(raw) != 8 {
		return ""
	}
	return raw[0:4] + "-" + raw[4:6] + "-" + raw[6:8]
}
