package extraction

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/contract-auditor/internal/llm"
	"github.com/jonathan/contract-auditor/internal/schemas"
	"github.com/jonathan/contract-auditor/internal/term"
	"github.com/jonathan/contract-auditor/internal/types"
)

// Outcome records which step of the parse chain produced a record.
type Outcome string

// Parse outcomes, strongest first.
const (
	OutcomeStrict   Outcome = "strict"
	OutcomePartial  Outcome = "partial"
	OutcomeLenient  Outcome = "lenient"
	OutcomeFallback Outcome = "fallback"
)

// Confidence values reported for each outcome.
const (
	ConfidenceStrict   = 1.0
	ConfidenceLenient  = 0.5
	ConfidenceFallback = 0.0
)

// Confidence maps an outcome to its confidence signal. Partial extraction reports the lenient value.
func (o Outcome) Confidence() float64 {
	switch o {
	case OutcomeStrict:
		return ConfidenceStrict
	case OutcomePartial, OutcomeLenient:
		return ConfidenceLenient
	default:
		return ConfidenceFallback
	}
}

// Parsed is the outcome of running the parse chain over one model response.
type Parsed struct {
	Data    types.ExtractedData
	Outcome Outcome
	// IsContract is false only when the model explicitly said so.
	IsContract bool
	// Nulled lists fields dropped because they did not conform to the schema.
	Nulled []string
	// DurationFromPhrase is set when months were derived from contract_duration_raw.
	DurationFromPhrase bool
	ExtraDays          bool
}

// wireRecord mirrors the JSON the model is asked for.
type wireRecord struct {
	Parties                []wireParty `json:"parties"`
	EffectiveDate          *string     `json:"effective_date"`
	ContractDurationMonths *int        `json:"contract_duration_months"`
	ContractDurationRaw    *string     `json:"contract_duration_raw"`
	Jurisdiction           *string     `json:"jurisdiction"`
	RiskScore              *int        `json:"risk_score"`
	IsContract             *bool       `json:"is_contract"`
}

type wireParty struct {
	Name string  `json:"name"`
	Role *string `json:"role"`
}

var integerFields = []string{"contract_duration_months", "risk_score"}

// Parse runs the defensive parse chain over a raw model response. It never fails:
// strict parse of the unfenced response, then strict parse of the outermost {...},
// then the default record.
func Parse(raw string) Parsed {
	if p, err := parseStrict(llm.CleanJSONBlock(raw)); err == nil {
		return p
	}

	if obj := llm.OutermostObject(raw); obj != "" {
		if p, err := parseStrict(obj); err == nil {
			p.Outcome = OutcomeLenient
			return p
		}
	}

	return Fallback()
}

// Fallback is the degraded result used when nothing usable came back from the model.
func Fallback() Parsed {
	return Parsed{
		Data:       types.DefaultExtractedData(),
		Outcome:    OutcomeFallback,
		IsContract: true,
	}
}

// parseStrict validates doc against the ExtractedData schema. Fields that do not
// conform are removed and reported; a document that is not a JSON object fails.
func parseStrict(doc string) (Parsed, error) {
	if strings.TrimSpace(doc) == "" {
		return Parsed{}, &ParseError{Message: "empty response"}
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		return Parsed{}, &ParseError{Message: "response is not a JSON object", Cause: err}
	}
	coerceIntegers(m)

	normalized, err := json.Marshal(m)
	if err != nil {
		return Parsed{}, &ParseError{Message: "re-encode failed", Cause: err}
	}

	var nulled []string
	if err := schemas.ValidateExtractedData(string(normalized)); err != nil {
		var ve *schemas.ValidationError
		if !errors.As(err, &ve) {
			return Parsed{}, &ParseError{Message: "schema check failed", Cause: err}
		}
		if ve.HasRootError() {
			return Parsed{}, &ParseError{Message: "response does not match the record shape", Cause: err}
		}
		nulled = dropInvalid(m, ve)
		if normalized, err = json.Marshal(m); err != nil {
			return Parsed{}, &ParseError{Message: "re-encode failed", Cause: err}
		}
	}

	var rec wireRecord
	if err := json.Unmarshal(normalized, &rec); err != nil {
		return Parsed{}, &ParseError{Message: "decode failed", Cause: err}
	}

	p := toParsed(rec)
	p.Nulled = nulled
	p.Outcome = OutcomeStrict
	if len(nulled) > 0 {
		p.Outcome = OutcomePartial
	}
	return p, nil
}

// coerceIntegers turns numeric strings ("24") and integral floats (24.0) into integers.
func coerceIntegers(m map[string]any) {
	for _, key := range integerFields {
		switch v := m[key].(type) {
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				m[key] = n
			}
		case float64:
			if v == math.Trunc(v) && math.Abs(v) <= math.MaxInt32 {
				m[key] = int(v)
			}
		}
	}
}

// dropInvalid removes non-conforming values from m and returns the affected fields.
// A bad party role is nulled and the party kept; a party with a bad or missing
// name is dropped on its own so the rest of the list survives.
func dropInvalid(m map[string]any, ve *schemas.ValidationError) []string {
	badParties := map[int]bool{}
	fields := map[string]bool{}
	list, _ := m["parties"].([]any)

	for _, fe := range ve.Errors {
		top := fe.TopLevel()
		if top == "parties" {
			parts := strings.Split(fe.Field, ".")
			if len(parts) >= 2 {
				if idx, err := strconv.Atoi(parts[1]); err == nil && idx < len(list) {
					if len(parts) == 3 && parts[2] == "role" {
						if party, ok := list[idx].(map[string]any); ok {
							delete(party, "role")
							fields[fe.Field] = true
							continue
						}
					}
					badParties[idx] = true
					fields["parties"] = true
					continue
				}
			}
		}
		fields[top] = true
		delete(m, top)
	}

	if len(badParties) > 0 && m["parties"] != nil {
		kept := make([]any, 0, len(list))
		for i, p := range list {
			if !badParties[i] {
				kept = append(kept, p)
			}
		}
		m["parties"] = kept
	}

	out := make([]string, 0, len(fields))
	for f := range fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func toParsed(rec wireRecord) Parsed {
	data := types.DefaultExtractedData()
	for _, p := range rec.Parties {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		data.Parties = append(data.Parties, types.Party{Name: name, Role: trimmed(p.Role)})
	}
	data.EffectiveDate = trimmed(rec.EffectiveDate)
	data.ContractDurationMonths = rec.ContractDurationMonths
	data.ContractDurationRaw = trimmed(rec.ContractDurationRaw)
	data.Jurisdiction = trimmed(rec.Jurisdiction)
	if rec.RiskScore != nil {
		data.RiskScore = types.ClampRiskScore(*rec.RiskScore)
	}

	p := Parsed{Data: data, IsContract: rec.IsContract == nil || *rec.IsContract}

	if data.ContractDurationMonths == nil && data.ContractDurationRaw != nil {
		if d, ok := term.ParseDuration(*data.ContractDurationRaw); ok {
			months := d.Months
			p.Data.ContractDurationMonths = &months
			p.DurationFromPhrase = true
			p.ExtraDays = d.ExtraDays
		}
	}
	return p
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
