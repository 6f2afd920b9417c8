package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/docwise/medkb/internal/domain"
)

const semanticScholarBaseURL = "https://api.semanticscholar.org/graph/v1/paper/search"

// SemanticScholar searches the Semantic Scholar academic graph. Broader than
// the biomedical indexes, so it ranks below them.
type SemanticScholar struct {
	client  *http.Client
	baseURL string
}

func NewSemanticScholar(client *http.Client) *SemanticScholar {
	return &SemanticScholar{client: client, baseURL: semanticScholarBaseURL}
}

func (a *SemanticScholar) Name() string  { return "SemanticScholar" }
func (a *SemanticScholar) Priority() int { return 6 }

type semanticScholarResponse struct {
	Data []struct {
		PaperID         string   `json:"paperId"`
		Title           string   `json:"title"`
		Abstract        string   `json:"abstract"`
		URL             string   `json:"url"`
		Year            int      `json:"year"`
		PublicationDate string   `json:"publicationDate"`
		FieldsOfStudy   []string `json:"fieldsOfStudy"`
	} `json:"data"`
}

func (a *SemanticScholar) Fetch(ctx context.Context, p Params) ([]domain.KnowledgeItem, error) {
	q := url.Values{}
	q.Set("query", p.Query)
	q.Set("limit", fmt.Sprintf("%d", clampMax(p.Max)))
	q.Set("fields", "title,abstract,url,year,publicationDate,fieldsOfStudy")

	var resp semanticScholarResponse
	ok, err := getJSON(ctx, a.client, a.baseURL+"?"+q.Encode(), &resp)
	if err != nil {
		return nil, fmt.Errorf("semanticscholar request failed: %w", err)
	}
	if !ok {
		return []domain.KnowledgeItem{}, nil
	}

	items := make([]domain.KnowledgeItem, 0, len(resp.Data))
	for _, r := range resp.Data {
		if r.PaperID == "" {
			continue
		}
		date := r.PublicationDate
		if date == "" && r.Year > 0 {
			date = fmt.Sprintf("%d", r.Year)
		}
		items = append(items, domain.KnowledgeItem{
			ID:       fmt.Sprintf("%s:%s", a.Name(), r.PaperID),
			Title:    r.Title,
			Summary:  truncate(r.Abstract, 500),
			URL:      r.URL,
			Source:   a.Name(),
			Date:     date,
			Tags:     r.FieldsOfStudy,
			Priority: a.Priority(),
		})
	}
	return items, nil
}
