package llm

import (
	"fmt"
	"strings"

	"github.com/dshills/lexiscan/internal/profile"
	"github.com/dshills/lexiscan/internal/schema"
)

const documentOutputSchema = `Output schema (JSON only):
{
  "status": "Safe" | "Avertissement" | "Critique",
  "message": "Two-sentence overall summary.",
  "clauses": [
    {
      "citation_exacte": "The exact text found in the document, copied verbatim",
      "niveau_risque": "Faible" | "Moyen" | "Critique",
      "categorie": "optional short label",
      "explication": "Why this point is raised.",
      "conseil": "Suggested improvement."
    }
  ]
}
`

const clauseOutputSchema = `Output schema (JSON only):
{
  "risk_level": "ROUGE" | "ORANGE" | "VERT",
  "score": 0.0,
  "legal_reference": "Statute or article name",
  "explanation": "Short explanation of the problem",
  "recommendation": "Advice to fix or refuse the clause"
}
ROUGE means unlawful or abusive, ORANGE ambiguous or risky, VERT valid.
`

// buildDocumentSystemPrompt assembles the whole-document system prompt. The
// vision path uses the same prompt.
func buildDocumentSystemPrompt(prof profile.Profile) string {
	var sb strings.Builder
	sb.WriteString("You are LexiScan, a precise legal analyst. Analyze the submitted document for " +
		"vagueness, inconsistencies, and risks.\n\n")
	sb.WriteString("Output ONLY valid JSON conforming to the schema below. " +
		"No prose, no markdown, no explanation outside the JSON.\n\n")
	sb.WriteString("For every point raised you MUST copy the EXACT problematic text into citation_exacte, " +
		"character for character, without reformatting or fixing typos. It is used to highlight the source.\n\n")
	if prof.SystemPromptAddendum != "" {
		sb.WriteString(prof.SystemPromptAddendum)
		sb.WriteString("\n\n")
	}
	sb.WriteString(documentOutputSchema)
	return sb.String()
}

// buildClauseSystemPrompt assembles the per-clause system prompt.
func buildClauseSystemPrompt(prof profile.Profile) string {
	var sb strings.Builder
	sb.WriteString("You are LexiScan, a legal analyst. Analyze the single contract clause supplied by the user " +
		"for abusiveness, illegality, or risk.\n\n")
	sb.WriteString("Output ONLY valid JSON conforming to the schema below.\n\n")
	if prof.SystemPromptAddendum != "" {
		sb.WriteString(prof.SystemPromptAddendum)
		sb.WriteString("\n\n")
	}
	sb.WriteString(clauseOutputSchema)
	return sb.String()
}

func buildDocumentUserPrompt(text string) string {
	return "ANALYZE THIS DOCUMENT:\n\n" + text
}

func buildClauseUserPrompt(seg schema.Segment) string {
	return fmt.Sprintf("CLAUSE %d TO ANALYZE:\n%s", seg.ID, seg.Text)
}

func buildImageUserPrompt(text string) string {
	if strings.TrimSpace(text) == "" {
		return "ANALYZE THE ATTACHED DOCUMENT IMAGE. Quote citations exactly as they appear in the image."
	}
	return "ANALYZE THE ATTACHED DOCUMENT IMAGE. Extracted text, if useful:\n\n" + text
}

// buildAnswerSystemPrompt embeds the session reference text for follow-up
// questions.
func buildAnswerSystemPrompt(reference string) string {
	var sb strings.Builder
	sb.WriteString("You are LexiScan, a legal assistant answering questions about a document the user " +
		"has just had analyzed. Answer in the user's language, concisely, and only from the document " +
		"below. If the document does not contain the answer, say so.\n\n")
	sb.WriteString("DOCUMENT:\n")
	sb.WriteString(reference)
	return sb.String()
}
