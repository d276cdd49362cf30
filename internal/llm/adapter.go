package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dshills/lexiscan/internal/schema"
)

// Result is the canonical form of one oracle response. Status is the
// oracle-declared document status and may be empty when the response shape
// carries none.
type Result struct {
	Status    schema.Status
	Summary   string
	Findings  []schema.Finding
	Truncated bool
	Err       error
}

// Adapter converts one oracle response shape into a Result. Unknown fields
// in the response are ignored.
type Adapter interface {
	Adapt(raw string) (Result, []ValidationError)
}

// Both shapes tolerate extra properties and nulls in optional text fields.
const documentSchemaJSON = `{
  "type": "object",
  "properties": {
    "status":   {"type": ["string", "null"]},
    "message":  {"type": ["string", "null"]},
    "summary":  {"type": ["string", "null"]},
    "clauses":  {"type": ["array", "null"], "items": {"$ref": "#/definitions/clause"}},
    "findings": {"type": ["array", "null"], "items": {"$ref": "#/definitions/clause"}}
  },
  "anyOf": [
    {"required": ["clauses"]},
    {"required": ["findings"]},
    {"required": ["status"]}
  ],
  "definitions": {
    "clause": {
      "type": "object",
      "properties": {
        "citation_exacte": {"type": ["string", "null"]},
        "citation":        {"type": ["string", "null"]},
        "niveau_risque":   {"type": ["string", "null"]},
        "risk_level":      {"type": ["string", "null"]},
        "risk":            {"type": ["string", "null"]},
        "categorie":       {"type": ["string", "null"]},
        "category":        {"type": ["string", "null"]},
        "explication":     {"type": ["string", "null"]},
        "explanation":     {"type": ["string", "null"]},
        "conseil":         {"type": ["string", "null"]},
        "recommendation":  {"type": ["string", "null"]},
        "legal_reference": {"type": ["string", "null"]}
      }
    }
  }
}`

const clauseSchemaJSON = `{
  "type": "object",
  "properties": {
    "risk_level":      {"type": ["string", "null"]},
    "niveau_risque":   {"type": ["string", "null"]},
    "risk":            {"type": ["string", "null"]},
    "score":           {"type": ["number", "string", "null"]},
    "legal_reference": {"type": ["string", "null"]},
    "category":        {"type": ["string", "null"]},
    "explanation":     {"type": ["string", "null"]},
    "explication":     {"type": ["string", "null"]},
    "recommendation":  {"type": ["string", "null"]},
    "conseil":         {"type": ["string", "null"]}
  }
}`

var (
	documentSchema = jsonschema.MustCompileString("document.json", documentSchemaJSON)
	clauseSchema   = jsonschema.MustCompileString("clause.json", clauseSchemaJSON)
)

// decodeValidated strips fences, repairs stray escapes, validates the payload
// against sch, and unmarshals it into dst.
func decodeValidated(raw string, sch *jsonschema.Schema, dst any) []ValidationError {
	s := stripMarkdownFences(raw)
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		fixed := fixInvalidJSONEscapes(s)
		if err2 := json.Unmarshal([]byte(fixed), &v); err2 != nil {
			return []ValidationError{{Field: "json_parse", Message: err.Error()}}
		}
		s = fixed
	}
	if err := sch.Validate(v); err != nil {
		return []ValidationError{{Field: "schema", Message: err.Error()}}
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		return []ValidationError{{Field: "json_decode", Message: err.Error()}}
	}
	return nil
}

type rawClause struct {
	CitationExacte string `json:"citation_exacte"`
	Citation       string `json:"citation"`
	NiveauRisque   string `json:"niveau_risque"`
	RiskLevel      string `json:"risk_level"`
	Risk           string `json:"risk"`
	Categorie      string `json:"categorie"`
	Category       string `json:"category"`
	Explication    string `json:"explication"`
	Explanation    string `json:"explanation"`
	Conseil        string `json:"conseil"`
	Recommendation string `json:"recommendation"`
	LegalReference string `json:"legal_reference"`
}

func (c rawClause) finding() schema.Finding {
	level, _ := ParseRiskLevel(firstNonEmpty(c.NiveauRisque, c.RiskLevel, c.Risk))
	return schema.Finding{
		Citation:       strings.TrimSpace(firstNonEmpty(c.CitationExacte, c.Citation)),
		Risk:           level,
		Category:       firstNonEmpty(c.Categorie, c.Category),
		LegalReference: c.LegalReference,
		Explanation:    firstNonEmpty(c.Explication, c.Explanation),
		Recommendation: firstNonEmpty(c.Conseil, c.Recommendation),
	}
}

// documentAdapter reads the whole-document shape:
// {status, message, clauses: [{citation_exacte, niveau_risque, explication, conseil}]}.
// The vision path answers in the same shape.
type documentAdapter struct{}

func (documentAdapter) Adapt(raw string) (Result, []ValidationError) {
	var doc struct {
		Status   string      `json:"status"`
		Message  string      `json:"message"`
		Summary  string      `json:"summary"`
		Clauses  []rawClause `json:"clauses"`
		Findings []rawClause `json:"findings"`
	}
	if errs := decodeValidated(raw, documentSchema, &doc); errs != nil {
		return Result{}, errs
	}

	status, _ := ParseStatus(doc.Status)
	res := Result{Status: status, Summary: firstNonEmpty(doc.Message, doc.Summary)}
	var warnings []ValidationError
	for i, c := range append(doc.Clauses, doc.Findings...) {
		f := c.finding()
		if f.Citation == "" && f.Explanation == "" {
			warnings = append(warnings, ValidationError{
				Field:   fmt.Sprintf("clauses[%d]", i),
				Message: "entry has neither citation nor explanation; dropped",
			})
			continue
		}
		res.Findings = append(res.Findings, f)
	}
	return res, warnings
}

// clauseAdapter reads the per-clause shape:
// {risk_level, score, legal_reference, explanation, recommendation}.
// The citation is the clause text itself, supplied by the caller.
type clauseAdapter struct {
	segment schema.Segment
}

func (a clauseAdapter) Adapt(raw string) (Result, []ValidationError) {
	var c rawClause
	if errs := decodeValidated(raw, clauseSchema, &c); errs != nil {
		return Result{}, errs
	}
	if firstNonEmpty(c.RiskLevel, c.NiveauRisque, c.Risk) == "" {
		// No judgment for this clause.
		return Result{}, nil
	}
	f := c.finding()
	f.Citation = a.segment.Text
	f.SegmentID = a.segment.ID
	return Result{Findings: []schema.Finding{f}}, nil
}

// ParseRiskLevel maps the oracle's risk vocabulary (French, English, or
// traffic-light) onto the canonical levels. Unknown values map to MEDIUM and
// report false.
func ParseRiskLevel(s string) (schema.RiskLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "faible", "low", "vert", "green", "safe", "valide", "ok":
		return schema.RiskLow, true
	case "moyen", "medium", "orange", "warning", "avertissement", "modéré", "modere":
		return schema.RiskMedium, true
	case "critique", "critical", "rouge", "red", "high", "élevé", "eleve":
		return schema.RiskCritical, true
	}
	return schema.RiskMedium, false
}

// ParseStatus maps an oracle-declared document status onto the canonical
// statuses. Unknown values return "" and false.
func ParseStatus(s string) (schema.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "safe", "sûr", "sur", "ok":
		return schema.StatusSafe, true
	case "avertissement", "warning", "attention":
		return schema.StatusWarning, true
	case "critique", "critical", "danger":
		return schema.StatusCritical, true
	case "erreur", "error":
		return schema.StatusError, true
	}
	return "", false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
