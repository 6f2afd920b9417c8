package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/docwise/medkb/internal/domain"
)

const healthfinderBaseURL = "https://odphp.health.gov/myhealthfinder/api/v4/topicsearch.json"

// Healthfinder searches ODPHP MyHealthfinder prevention topics. Consumer
// guidance rather than primary literature, hence the lowest priority.
type Healthfinder struct {
	client  *http.Client
	baseURL string
}

func NewHealthfinder(client *http.Client) *Healthfinder {
	return &Healthfinder{client: client, baseURL: healthfinderBaseURL}
}

func (a *Healthfinder) Name() string  { return "MyHealthfinder" }
func (a *Healthfinder) Priority() int { return 5 }

type healthfinderResponse struct {
	Result struct {
		Resources struct {
			Resource []struct {
				ID           string `json:"Id"`
				Title        string `json:"Title"`
				Categories   string `json:"Categories"`
				AccessibleTo string `json:"Populations"`
				URL          string `json:"AccessibleVersion"`
				LastUpdate   string `json:"LastUpdate"`
				Sections     struct {
					Section []struct {
						Description string `json:"Description"`
					} `json:"section"`
				} `json:"Sections"`
			} `json:"Resource"`
		} `json:"Resources"`
	} `json:"Result"`
}

func (a *Healthfinder) Fetch(ctx context.Context, p Params) ([]domain.KnowledgeItem, error) {
	q := url.Values{}
	q.Set("keyword", p.Query)

	var resp healthfinderResponse
	ok, err := getJSON(ctx, a.client, a.baseURL+"?"+q.Encode(), &resp)
	if err != nil {
		return nil, fmt.Errorf("healthfinder request failed: %w", err)
	}
	if !ok {
		return []domain.KnowledgeItem{}, nil
	}

	max := clampMax(p.Max)
	items := make([]domain.KnowledgeItem, 0, max)
	for _, r := range resp.Result.Resources.Resource {
		if len(items) >= max {
			break
		}
		if r.ID == "" && r.Title == "" {
			continue
		}
		summary := ""
		if sections := r.Sections.Section; len(sections) > 0 {
			summary = truncate(sections[0].Description, 500)
		}
		var tags []string
		if r.Categories != "" {
			tags = append(tags, r.Categories)
		}
		items = append(items, domain.KnowledgeItem{
			ID:       fmt.Sprintf("%s:%s", a.Name(), r.ID),
			Title:    r.Title,
			Summary:  summary,
			URL:      r.URL,
			Source:   a.Name(),
			Date:     r.LastUpdate,
			Tags:     tags,
			Priority: a.Priority(),
		})
	}
	return items, nil
}
