package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/contract-auditor/internal/types"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func cleanData() types.ExtractedData {
	return types.ExtractedData{
		Parties:                []types.Party{{Name: "Acme SpA"}},
		ContractDurationMonths: intPtr(12),
		Jurisdiction:           strPtr("Chile"),
		RiskScore:              30,
	}
}

func TestValidate_CleanContractHasNoIssues(t *testing.T) {
	result := Default().Validate(cleanData())

	assert.Empty(t, result.Issues)
	assert.Empty(t, result.ReviewReasons)
	assert.False(t, result.RequiresHumanReview)
	assert.NotNil(t, result.Issues, "issues serialize as [] not null")
	assert.NotNil(t, result.ReviewReasons)
}

func TestValidate_BaselineRules(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(d *types.ExtractedData)
		wantRules  []string
		wantReason []string
	}{
		{
			name:       "excessive duration",
			mutate:     func(d *types.ExtractedData) { d.ContractDurationMonths = intPtr(36) },
			wantRules:  []string{"excessive_duration"},
			wantReason: []string{"excessive duration"},
		},
		{
			name:   "duration at limit",
			mutate: func(d *types.ExtractedData) { d.ContractDurationMonths = intPtr(24) },
		},
		{
			name: "duration at limit plus extra days",
			mutate: func(d *types.ExtractedData) {
				d.ContractDurationMonths = intPtr(24)
				d.ContractDurationRaw = strPtr("two years and one day")
			},
			wantRules:  []string{"excessive_duration"},
			wantReason: []string{"excessive duration"},
		},
		{
			name: "duration at limit, phrase without extra days",
			mutate: func(d *types.ExtractedData) {
				d.ContractDurationMonths = intPtr(24)
				d.ContractDurationRaw = strPtr("dos años")
			},
		},
		{
			name: "extra days below the limit",
			mutate: func(d *types.ExtractedData) {
				d.ContractDurationMonths = intPtr(12)
				d.ContractDurationRaw = strPtr("un año y un día")
			},
		},
		{
			name:       "foreign jurisdiction",
			mutate:     func(d *types.ExtractedData) { d.Jurisdiction = strPtr("New York, USA") },
			wantRules:  []string{"foreign_jurisdiction"},
			wantReason: []string{"foreign jurisdiction"},
		},
		{
			name:   "jurisdiction alias with accent",
			mutate: func(d *types.ExtractedData) { d.Jurisdiction = strPtr("Tribunales de Valparaíso") },
		},
		{
			name:       "alias inside a foreign place",
			mutate:     func(d *types.ExtractedData) { d.Jurisdiction = strPtr("Santiago de Compostela, Spain") },
			wantRules:  []string{"foreign_jurisdiction"},
			wantReason: []string{"foreign jurisdiction"},
		},
		{
			name:       "reference name as part of another word",
			mutate:     func(d *types.ExtractedData) { d.Jurisdiction = strPtr("Chilecito, Argentina") },
			wantRules:  []string{"foreign_jurisdiction"},
			wantReason: []string{"foreign jurisdiction"},
		},
		{
			name:   "jurisdiction different case",
			mutate: func(d *types.ExtractedData) { d.Jurisdiction = strPtr("REPÚBLICA DE CHILE") },
		},
		{
			name:   "risk 70 does not trigger",
			mutate: func(d *types.ExtractedData) { d.RiskScore = 70 },
		},
		{
			name:       "risk 71 triggers",
			mutate:     func(d *types.ExtractedData) { d.RiskScore = 71 },
			wantRules:  []string{"high_risk"},
			wantReason: []string{"high risk"},
		},
		{
			name: "all rules evaluated without short-circuit",
			mutate: func(d *types.ExtractedData) {
				d.ContractDurationMonths = intPtr(48)
				d.Jurisdiction = strPtr("Buenos Aires, Argentina")
				d.RiskScore = 95
			},
			wantRules:  []string{"excessive_duration", "foreign_jurisdiction", "high_risk"},
			wantReason: []string{"excessive duration", "foreign jurisdiction", "high risk"},
		},
		{
			name: "unset fields never match",
			mutate: func(d *types.ExtractedData) {
				d.ContractDurationMonths = nil
				d.Jurisdiction = nil
			},
		},
		{
			name:   "blank jurisdiction is unset",
			mutate: func(d *types.ExtractedData) { d.Jurisdiction = strPtr("  ") },
		},
	}

	engine := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := cleanData()
			tt.mutate(&data)

			result := engine.Validate(data)

			var gotRules []string
			for _, issue := range result.Issues {
				gotRules = append(gotRules, issue.Rule)
			}
			assert.Equal(t, tt.wantRules, gotRules)
			if tt.wantReason == nil {
				assert.Empty(t, result.ReviewReasons)
			} else {
				assert.Equal(t, tt.wantReason, result.ReviewReasons)
			}
			assert.Equal(t, len(tt.wantRules) > 0, result.RequiresHumanReview)
		})
	}
}

func TestValidate_IssueContent(t *testing.T) {
	data := cleanData()
	data.ContractDurationMonths = intPtr(36)
	data.ContractDurationRaw = strPtr("tres años")
	data.RiskScore = 80

	result := Default().Validate(data)
	require.Len(t, result.Issues, 2)

	duration := result.Issues[0]
	assert.Equal(t, "contract_duration_months", duration.Field)
	assert.Equal(t, types.SeverityWarning, duration.Severity)
	assert.Equal(t, "Contract duration of 36 months exceeds the 24-month limit", duration.Message)
	require.NotNil(t, duration.Reasoning)
	assert.Equal(t, "Original text: 'tres años'", *duration.Reasoning)

	risk := result.Issues[1]
	assert.Equal(t, "risk_score", risk.Field)
	assert.Equal(t, types.SeverityError, risk.Severity)
	assert.Equal(t, "High risk score: 80/100", risk.Message)
}

func TestValidate_ExtraDaysMessage(t *testing.T) {
	data := cleanData()
	data.ContractDurationMonths = intPtr(24)
	data.ContractDurationRaw = strPtr("DOS AÑOS Y UN DÍA")

	result := Default().Validate(data)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "Contract duration of 24+ months exceeds the 24-month limit", result.Issues[0].Message)
	assert.Equal(t, "Original text: 'DOS AÑOS Y UN DÍA'", *result.Issues[0].Reasoning)
}

func TestValidate_NoReasoningWithoutRawPhrase(t *testing.T) {
	data := cleanData()
	data.ContractDurationMonths = intPtr(30)

	result := Default().Validate(data)
	require.Len(t, result.Issues, 1)
	assert.Nil(t, result.Issues[0].Reasoning)
}

func TestValidate_Idempotent(t *testing.T) {
	data := cleanData()
	data.ContractDurationMonths = intPtr(36)
	data.Jurisdiction = strPtr("Lima, Perú")
	data.RiskScore = 90

	engine := Default()
	first := engine.Validate(data)
	second := engine.Validate(data)

	assert.Equal(t, first, second)
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	data := cleanData()
	data.RiskScore = 99
	before := data.Clone()

	Default().Validate(data)

	assert.Equal(t, before, data)
}

func TestEngine_AddingARuleIsATableChange(t *testing.T) {
	noParties := Rule{
		ID:           "no_parties",
		Field:        "parties",
		Severity:     types.SeverityCritical,
		ReviewReason: "no parties identified",
		Predicate:    func(d types.ExtractedData) bool { return len(d.Parties) == 0 },
		Message:      func(types.ExtractedData) string { return "No parties were identified" },
	}
	engine := NewEngine(append(Default().Rules(), noParties))

	data := cleanData()
	data.Parties = nil
	result := engine.Validate(data)

	require.Len(t, result.Issues, 1)
	assert.Equal(t, "no_parties", result.Issues[0].Rule)
	assert.Equal(t, types.SeverityCritical, result.Issues[0].Severity)
	assert.Equal(t, []string{"no parties identified"}, result.ReviewReasons)
}

func TestEngine_RuleWithoutReviewReasonStillRequiresReview(t *testing.T) {
	engine := NewEngine([]Rule{{
		ID:        "always",
		Field:     "risk_score",
		Severity:  types.SeverityWarning,
		Predicate: func(types.ExtractedData) bool { return true },
	}})

	result := engine.Validate(cleanData())
	assert.Len(t, result.Issues, 1)
	assert.Empty(t, result.ReviewReasons)
	assert.True(t, result.RequiresHumanReview)
}
