package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/docwise/medkb/internal/domain"
)

const medlinePlusBaseURL = "https://wsearch.nlm.nih.gov/ws/query"

// MedlinePlus searches NIH MedlinePlus health topics. The web service only
// speaks XML.
type MedlinePlus struct {
	client  *http.Client
	baseURL string
}

func NewMedlinePlus(client *http.Client) *MedlinePlus {
	return &MedlinePlus{client: client, baseURL: medlinePlusBaseURL}
}

func (a *MedlinePlus) Name() string  { return "MedlinePlus" }
func (a *MedlinePlus) Priority() int { return 8 }

type medlinePlusResponse struct {
	List struct {
		Documents []struct {
			URL     string `xml:"url,attr"`
			Content []struct {
				Name  string `xml:"name,attr"`
				Value string `xml:",innerxml"`
			} `xml:"content"`
		} `xml:"document"`
	} `xml:"list"`
}

var xmlTagRe = regexp.MustCompile(`<[^>]+>`)

func (a *MedlinePlus) Fetch(ctx context.Context, p Params) ([]domain.KnowledgeItem, error) {
	q := url.Values{}
	q.Set("db", "healthTopics")
	q.Set("term", p.Query)
	q.Set("retmax", fmt.Sprintf("%d", clampMax(p.Max)))
	q.Set("rettype", "brief")

	var resp medlinePlusResponse
	ok, err := getXML(ctx, a.client, a.baseURL+"?"+q.Encode(), &resp)
	if err != nil {
		return nil, fmt.Errorf("medlineplus request failed: %w", err)
	}
	if !ok {
		return []domain.KnowledgeItem{}, nil
	}

	items := make([]domain.KnowledgeItem, 0, len(resp.List.Documents))
	for _, doc := range resp.List.Documents {
		var title, summary string
		for _, c := range doc.Content {
			switch c.Name {
			case "title":
				title = stripHighlight(c.Value)
			case "FullSummary", "snippet":
				if summary == "" {
					summary = truncate(stripHighlight(c.Value), 500)
				}
			}
		}
		if title == "" && doc.URL == "" {
			continue
		}
		items = append(items, domain.KnowledgeItem{
			ID:       fmt.Sprintf("%s:%s", a.Name(), doc.URL),
			Title:    title,
			Summary:  summary,
			URL:      doc.URL,
			Source:   a.Name(),
			Tags:     []string{"health-topic"},
			Priority: a.Priority(),
		})
	}
	return items, nil
}

// stripHighlight removes the <span class="qt0"> match markers and any other
// markup the service embeds in field values.
func stripHighlight(s string) string {
	return strings.TrimSpace(xmlTagRe.ReplaceAllString(s, ""))
}
