// Package sources contains one adapter per external medical knowledge API.
// Every adapter maps its provider's response into []domain.KnowledgeItem and
// never fails on an empty or malformed upstream body; only transport-level
// errors surface to the aggregator. Adapters are independent of each other.
package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docwise/medkb/internal/domain"
)

const userAgent = "medkb/1.0 (+https://github.com/docwise/medkb)"

// Params is the input to a single adapter fetch.
type Params struct {
	Query string
	Max   int
}

// Adapter normalizes one external API into KnowledgeItems.
type Adapter interface {
	Name() string
	Priority() int
	Fetch(ctx context.Context, p Params) ([]domain.KnowledgeItem, error)
}

// DefaultHTTPClient returns the client shared by adapters unless one is
// injected. Per-call deadlines come from the aggregator's context; this
// timeout is a transport-level backstop.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

// getJSON performs a GET and decodes a JSON body into out. A non-200 status
// or an undecodable body returns ok=false with a nil error so the adapter can
// degrade to an empty result. Transport failures return the error.
func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return false, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, nil
	}
	return true, nil
}

// getXML is getJSON for the XML services (MedlinePlus).
func getXML(ctx context.Context, client *http.Client, url string, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return false, nil
	}

	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, nil
	}
	return true, nil
}

func clampMax(max int) int {
	if max <= 0 {
		return 5
	}
	if max > 50 {
		return 50
	}
	return max
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

// All returns the full adapter set in fan-out order.
func All(client *http.Client, openFDAKey string) []Adapter {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return []Adapter{
		NewEuropePMC(client),
		NewOpenFDA(client, openFDAKey),
		NewMedlinePlus(client),
		NewClinicalTrials(client),
		NewSemanticScholar(client),
		NewHealthfinder(client),
	}
}
