package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestDefaultExtractedData(t *testing.T) {
	d := DefaultExtractedData()

	assert.Empty(t, d.Parties)
	assert.NotNil(t, d.Parties)
	assert.Nil(t, d.EffectiveDate)
	assert.Nil(t, d.ContractDurationMonths)
	assert.Nil(t, d.ContractDurationRaw)
	assert.Nil(t, d.Jurisdiction)
	assert.Equal(t, NeutralRiskScore, d.RiskScore)
}

func TestClampRiskScore(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: -5, want: 1},
		{in: 0, want: 1},
		{in: 1, want: 1},
		{in: 70, want: 70},
		{in: 100, want: 100},
		{in: 250, want: 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampRiskScore(tt.in), "ClampRiskScore(%d)", tt.in)
	}
}

func TestExtractedData_CloneIsDeep(t *testing.T) {
	orig := ExtractedData{
		Parties:                []Party{{Name: "Acme", Role: strPtr("Seller")}},
		ContractDurationMonths: intPtr(12),
		Jurisdiction:           strPtr("Chile"),
		RiskScore:              30,
	}

	clone := orig.Clone()
	*clone.Parties[0].Role = "Buyer"
	*clone.ContractDurationMonths = 48
	*clone.Jurisdiction = "Peru"

	assert.Equal(t, "Seller", *orig.Parties[0].Role)
	assert.Equal(t, 12, *orig.ContractDurationMonths)
	assert.Equal(t, "Chile", *orig.Jurisdiction)
}

func TestExtractedData_JSONOmitsUnsetOptionals(t *testing.T) {
	data, err := json.Marshal(DefaultExtractedData())
	require.NoError(t, err)

	assert.JSONEq(t, `{"parties":[],"risk_score":50}`, string(data))
}

func TestParseContractStatus(t *testing.T) {
	for _, st := range AllStatuses {
		got, ok := ParseContractStatus(string(st))
		assert.True(t, ok)
		assert.Equal(t, st, got)
	}

	_, ok := ParseContractStatus("archived")
	assert.False(t, ok)
}

func TestContract_ApplyValidationReplaces(t *testing.T) {
	c := &Contract{
		ValidationIssues: []ValidationIssue{{Field: "old", Rule: "old"}},
		ReviewReasons:    []string{"old reason"},
	}

	c.ApplyValidation(ValidationResult{
		Issues:              []ValidationIssue{{Field: "risk_score", Rule: "high_risk", Severity: SeverityError}},
		RequiresHumanReview: true,
		ReviewReasons:       []string{"high risk"},
	})

	require.Len(t, c.ValidationIssues, 1)
	assert.Equal(t, "high_risk", c.ValidationIssues[0].Rule)
	assert.Equal(t, []string{"high risk"}, c.ReviewReasons)
	assert.True(t, c.RequiresHumanReview)
}

func TestUpdateContractRequest_Validate(t *testing.T) {
	valid := UpdateContractRequest{
		ExtractedData: ExtractedData{
			Parties:   []Party{{Name: "Acme"}},
			RiskScore: 30,
		},
	}
	assert.NoError(t, valid.Validate())

	missingName := UpdateContractRequest{
		ExtractedData: ExtractedData{Parties: []Party{{Name: ""}}, RiskScore: 30},
	}
	assert.Error(t, missingName.Validate())

	negativeDuration := UpdateContractRequest{
		ExtractedData: ExtractedData{ContractDurationMonths: intPtr(-1), RiskScore: 30},
	}
	assert.Error(t, negativeDuration.Validate())
}

func TestContractFilter_Matches(t *testing.T) {
	approved := StatusApproved
	yes := true

	c := &Contract{Status: StatusRequiresHumanReview, RequiresHumanReview: true}

	assert.True(t, ContractFilter{}.Matches(c))
	assert.False(t, ContractFilter{Status: &approved}.Matches(c))
	assert.True(t, ContractFilter{RequiresReview: &yes}.Matches(c))
}

func TestSeverity_Valid(t *testing.T) {
	assert.True(t, SeverityWarning.Valid())
	assert.True(t, SeverityCritical.Valid())
	assert.False(t, Severity("info").Valid())
}

func TestContract_CloneIsDeep(t *testing.T) {
	score := 0.5
	data := DefaultExtractedData()
	orig := &Contract{
		ID:               "c1",
		Document:         []byte("%PDF"),
		ExtractedData:    &data,
		ValidationIssues: []ValidationIssue{{Rule: "high_risk", Reasoning: strPtr("why")}},
		ReviewReasons:    []string{"high risk"},
		ConfidenceScore:  &score,
	}

	clone := orig.Clone()
	clone.Document[0] = 'X'
	clone.ExtractedData.RiskScore = 99
	*clone.ValidationIssues[0].Reasoning = "changed"
	clone.ReviewReasons[0] = "changed"
	*clone.ConfidenceScore = 1

	assert.Equal(t, byte('%'), orig.Document[0])
	assert.Equal(t, NeutralRiskScore, orig.ExtractedData.RiskScore)
	assert.Equal(t, "why", *orig.ValidationIssues[0].Reasoning)
	assert.Equal(t, "high risk", orig.ReviewReasons[0])
	assert.Equal(t, 0.5, *orig.ConfidenceScore)
}
