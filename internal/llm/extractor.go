// Package llm - extractor.go builds schema-describing prompts for structured extraction.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure the model is asked to return.
type ExtractionSchema struct {
	Name         string        // Schema name (e.g., "ContractFacts")
	Description  string        // System prompt preamble describing the extraction task
	Guidelines   []string      // Numbered, field-specific instructions
	Fields       []SchemaField // Expected output fields
	InputLabel   string        // Label wrapped around the input text
	Instructions []string      // Closing constraints on the response format
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "integer", "[{...}]"
	Description string // Description for the LLM
	Range       string // Allowed range or format, e.g. "1-100" or "YYYY-MM-DD"
	Required    bool   // Whether this field is required
	Nullable    bool   // Whether null is an accepted value
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	if len(schema.Guidelines) > 0 {
		sb.WriteString("GUIDELINES:\n")
		for i, g := range schema.Guidelines {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, g))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		var hints []string
		if field.Required {
			hints = append(hints, "required")
		}
		if field.Nullable {
			hints = append(hints, "null if not found")
		}
		if field.Range != "" {
			hints = append(hints, "allowed: "+field.Range)
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s", field.Name, typeHint))
		if len(hints) > 0 {
			sb.WriteString(fmt.Sprintf(" (%s)", strings.Join(hints, ", ")))
		}
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	instructions := schema.Instructions
	if len(instructions) == 0 {
		instructions = []string{
			"Extract information directly from the text, do not invent values.",
			"Return ONLY the JSON object, no markdown, no explanation, no code blocks.",
		}
	}
	for _, in := range instructions {
		sb.WriteString("- ")
		sb.WriteString(in)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	label := schema.InputLabel
	if label == "" {
		label = "INPUT"
	}
	sb.WriteString(fmt.Sprintf("--- %s START ---\n", label))
	sb.WriteString(inputText)
	sb.WriteString(fmt.Sprintf("\n--- %s END ---\n", label))

	return sb.String()
}
