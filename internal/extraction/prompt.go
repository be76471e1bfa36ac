package extraction

import (
	"fmt"
	"strconv"

	"github.com/jonathan/contract-auditor/internal/llm"
	"github.com/jonathan/contract-auditor/internal/prompts"
	"github.com/jonathan/contract-auditor/internal/types"
)

const promptFile = "extraction.json"

// ContractSchema describes the ExtractedData record to the model.
func ContractSchema() llm.ExtractionSchema {
	guidelines, err := prompts.Lines(promptFile, "contract-guidelines")
	if err != nil {
		panic(err)
	}
	bounds := map[string]string{
		"MinRisk": strconv.Itoa(types.MinRiskScore),
		"MaxRisk": strconv.Itoa(types.MaxRiskScore),
	}
	for i, g := range guidelines {
		guidelines[i] = prompts.Format(g, bounds)
	}

	return llm.ExtractionSchema{
		Name:        "ContractFacts",
		Description: prompts.MustGet(promptFile, "contract-description"),
		Guidelines:  guidelines,
		Fields: []llm.SchemaField{
			{Name: "parties", Type: `[{"name": string, "role": string|null}]`, Description: "every party in order of appearance", Required: true},
			{Name: "effective_date", Type: "string", Range: "YYYY-MM-DD", Nullable: true, Description: "contract start date"},
			{Name: "contract_duration_months", Type: "integer", Range: ">= 0", Nullable: true, Description: "complete months, never rounded up"},
			{Name: "contract_duration_raw", Type: "string", Nullable: true, Description: "exact duration phrase from the text"},
			{Name: "jurisdiction", Type: "string", Nullable: true, Description: "governing law location"},
			{Name: "risk_score", Type: "integer", Range: rangeString(types.MinRiskScore, types.MaxRiskScore), Required: true, Description: "legal risk of the contract language"},
			{Name: "is_contract", Type: "boolean", Required: true, Description: "false only if the document is not a contract"},
		},
		InputLabel: "CONTRACT",
		Instructions: []string{
			"Extract information directly from the text, do not invent values.",
			"Use null for any field you cannot find.",
			"RESPOND ONLY WITH THE JSON OBJECT. No markdown, no explanation.",
		},
	}
}

// BuildPrompt renders the extraction prompt around the (already truncated) contract text.
func BuildPrompt(text string) string {
	return llm.BuildExtractionPrompt(ContractSchema(), text)
}

func rangeString(lo, hi int) string {
	return fmt.Sprintf("%d-%d", lo, hi)
}
