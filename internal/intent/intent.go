// Package intent classifies a free-text query into the agent category that
// should handle it. Classification is a pure keyword-count heuristic with no
// I/O; it always returns a value.
package intent

import (
	"strings"

	"github.com/docwise/medkb/internal/domain"
)

var medicalKeywords = map[string][]string{
	"en": {
		"patient", "diagnosis", "symptom", "therapy", "treatment", "medication",
		"drug", "dosage", "disease", "icd", "lab", "blood", "pain", "infection",
		"vaccine", "cancer", "diabetes", "hypertension", "cardiac", "allergy",
		"clinical", "prescription", "anamnesis",
	},
	"de": {
		"patient", "diagnose", "symptom", "therapie", "behandlung", "medikament",
		"dosierung", "krankheit", "icd", "labor", "blut", "schmerz", "infektion",
		"impfung", "krebs", "diabetes", "blutdruck", "herz", "allergie",
		"befund", "rezept", "anamnese",
	},
}

var financialKeywords = map[string][]string{
	"en": {
		"invoice", "billing", "payment", "reimbursement", "insurance claim",
		"fee", "tariff", "tax", "revenue", "accounting", "budget", "cost",
		"copay", "settlement",
	},
	"de": {
		"rechnung", "abrechnung", "zahlung", "erstattung", "versicherung",
		"gebühr", "goä", "steuer", "umsatz", "buchhaltung", "budget", "kosten",
		"honorar", "privatliquidation",
	},
}

// Classify scores the query against per-language keyword sets and returns
// the category with the strictly higher hit count. Ties and zero hits fall
// back to the medical agent, the system's primary domain. Unknown languages
// use the English sets.
func Classify(query, lang string) domain.AgentType {
	q := strings.ToLower(query)

	medical := keywordSet(medicalKeywords, lang)
	financial := keywordSet(financialKeywords, lang)

	if countHits(q, financial) > countHits(q, medical) {
		return domain.AgentFinancial
	}
	return domain.AgentMedical
}

func keywordSet(sets map[string][]string, lang string) []string {
	if kws, ok := sets[strings.ToLower(strings.TrimSpace(lang))]; ok {
		return kws
	}
	return sets["en"]
}

func countHits(query string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(query, kw) {
			hits++
		}
	}
	return hits
}
