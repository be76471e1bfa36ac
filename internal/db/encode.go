package db

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/contract-auditor/internal/types"
)

// jsonColumns is the JSON form of the structured parts of a contract.
type jsonColumns struct {
	extractedData []byte // nil when the contract has no extraction yet
	issues        []byte
	reasons       []byte
}

func encodeColumns(c *types.Contract) (jsonColumns, error) {
	var cols jsonColumns
	var err error

	if c.ExtractedData != nil {
		if cols.extractedData, err = json.Marshal(c.ExtractedData); err != nil {
			return cols, fmt.Errorf("failed to marshal extracted data: %w", err)
		}
	}

	issues := c.ValidationIssues
	if issues == nil {
		issues = []types.ValidationIssue{}
	}
	if cols.issues, err = json.Marshal(issues); err != nil {
		return cols, fmt.Errorf("failed to marshal validation issues: %w", err)
	}

	reasons := c.ReviewReasons
	if reasons == nil {
		reasons = []string{}
	}
	if cols.reasons, err = json.Marshal(reasons); err != nil {
		return cols, fmt.Errorf("failed to marshal review reasons: %w", err)
	}
	return cols, nil
}

func decodeColumns(c *types.Contract, cols jsonColumns) error {
	if len(cols.extractedData) > 0 {
		var data types.ExtractedData
		if err := json.Unmarshal(cols.extractedData, &data); err != nil {
			return fmt.Errorf("failed to unmarshal extracted data: %w", err)
		}
		if data.Parties == nil {
			data.Parties = []types.Party{}
		}
		c.ExtractedData = &data
	}

	c.ValidationIssues = []types.ValidationIssue{}
	if len(cols.issues) > 0 {
		if err := json.Unmarshal(cols.issues, &c.ValidationIssues); err != nil {
			return fmt.Errorf("failed to unmarshal validation issues: %w", err)
		}
	}

	c.ReviewReasons = []string{}
	if len(cols.reasons) > 0 {
		if err := json.Unmarshal(cols.reasons, &c.ReviewReasons); err != nil {
			return fmt.Errorf("failed to unmarshal review reasons: %w", err)
		}
	}
	return nil
}
