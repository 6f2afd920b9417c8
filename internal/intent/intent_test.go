package intent

import (
	"testing"

	"github.com/docwise/medkb/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassify_Medical(t *testing.T) {
	assert.Equal(t, domain.AgentMedical, Classify("What is the recommended treatment for diabetes?", "en"))
	assert.Equal(t, domain.AgentMedical, Classify("patient reports chest pain and infection", "en"))
}

func TestClassify_Financial(t *testing.T) {
	assert.Equal(t, domain.AgentFinancial, Classify("How do I create an invoice for the insurance claim?", "en"))
	assert.Equal(t, domain.AgentFinancial, Classify("Wie erstelle ich eine Abrechnung nach GOÄ?", "de"))
}

func TestClassify_TieDefaultsToMedical(t *testing.T) {
	// One hit each: "billing" vs "patient".
	assert.Equal(t, domain.AgentMedical, Classify("billing question about a patient", "en"))
}

func TestClassify_NoHitsDefaultsToMedical(t *testing.T) {
	assert.Equal(t, domain.AgentMedical, Classify("hello there", "en"))
	assert.Equal(t, domain.AgentMedical, Classify("", "en"))
}

func TestClassify_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, domain.AgentFinancial, Classify("invoice and tax and billing", "fr"))
}

func TestClassify_CaseInsensitive(t *testing.T) {
	assert.Equal(t, domain.AgentFinancial, Classify("INVOICE PAYMENT TAX", "en"))
}
