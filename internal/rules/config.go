package rules

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/contract-auditor/internal/term"
	"github.com/jonathan/contract-auditor/internal/textnorm"
	"github.com/jonathan/contract-auditor/internal/types"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Rule kinds understood by Build.
const (
	KindMaxDurationMonths     = "max_duration_months"
	KindReferenceJurisdiction = "reference_jurisdiction"
	KindMaxRiskScore          = "max_risk_score"
)

// Config is the YAML form of the rule table.
type Config struct {
	ReferenceJurisdiction string   `yaml:"reference_jurisdiction"`
	JurisdictionAliases   []string `yaml:"jurisdiction_aliases"`
	// ForeignPlaces outrank an alias: "Santiago de Compostela, Spain" is not Santiago de Chile.
	ForeignPlaces []string     `yaml:"foreign_places"`
	Rules         []RuleConfig `yaml:"rules"`
}

// RuleConfig describes one rule.
type RuleConfig struct {
	ID           string `yaml:"id"`
	Kind         string `yaml:"kind"`
	Field        string `yaml:"field"`
	Threshold    *int   `yaml:"threshold"`
	Severity     string `yaml:"severity"`
	Message      string `yaml:"message"`
	Reasoning    string `yaml:"reasoning"`
	ReviewReason string `yaml:"review_reason"`
}

// ConfigError reports an invalid rule file.
type ConfigError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	where := "rules"
	if e.Path != "" {
		where = "rules " + e.Path
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", where, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// DefaultConfig returns the built-in rule table.
func DefaultConfig() Config {
	cfg, err := ParseConfig(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rule table is invalid: %v", err))
	}
	return cfg
}

// Default returns an Engine over the built-in rule table.
func Default() *Engine {
	rules, err := DefaultConfig().Build()
	if err != nil {
		panic(fmt.Sprintf("embedded rule table is invalid: %v", err))
	}
	return NewEngine(rules)
}

// LoadConfig reads a YAML rule file.
func LoadConfig(path string) (Config, error) {
	// #nosec G304 -- path comes from operator configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &ConfigError{Path: path, Message: "failed to read rule file", Cause: err}
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return Config{}, err
	}
	return cfg, nil
}

// ParseConfig decodes YAML, rejecting unknown keys.
func ParseConfig(data []byte) (Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, &ConfigError{Message: "invalid YAML", Cause: err}
	}
	return cfg, nil
}

// Load builds an Engine from a rule file, or the built-in table when path is empty.
func Load(path string) (*Engine, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	rules, err := cfg.Build()
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return nil, err
	}
	return NewEngine(rules), nil
}

// Build turns the configuration into an ordered rule table.
func (c Config) Build() ([]Rule, error) {
	seen := map[string]bool{}
	out := make([]Rule, 0, len(c.Rules))

	for i, rc := range c.Rules {
		if rc.ID == "" {
			return nil, &ConfigError{Message: fmt.Sprintf("rule %d has no id", i)}
		}
		if seen[rc.ID] {
			return nil, &ConfigError{Message: fmt.Sprintf("duplicate rule id %q", rc.ID)}
		}
		seen[rc.ID] = true

		severity := types.Severity(rc.Severity)
		if !severity.Valid() {
			return nil, &ConfigError{Message: fmt.Sprintf("rule %q: unknown severity %q", rc.ID, rc.Severity)}
		}

		rule, err := c.buildRule(rc)
		if err != nil {
			return nil, err
		}
		rule.ID = rc.ID
		rule.Severity = severity
		rule.ReviewReason = rc.ReviewReason
		out = append(out, rule)
	}
	return out, nil
}

func (c Config) buildRule(rc RuleConfig) (Rule, error) {
	needThreshold := func() (int, error) {
		if rc.Threshold == nil {
			return 0, &ConfigError{Message: fmt.Sprintf("rule %q: kind %s needs a threshold", rc.ID, rc.Kind)}
		}
		return *rc.Threshold, nil
	}

	switch rc.Kind {
	case KindMaxDurationMonths:
		limit, err := needThreshold()
		if err != nil {
			return Rule{}, err
		}
		value := func(d types.ExtractedData) string {
			months := strconv.Itoa(*d.ContractDurationMonths)
			if beyondMonths(d, limit) {
				return months + "+"
			}
			return months
		}
		return Rule{
			Field: fieldOr(rc.Field, "contract_duration_months"),
			Predicate: func(d types.ExtractedData) bool {
				if d.ContractDurationMonths == nil {
					return false
				}
				return *d.ContractDurationMonths > limit || beyondMonths(d, limit)
			},
			Message:   c.render(rc.Message, value, limit),
			Reasoning: c.render(rc.Reasoning, value, limit),
		}, nil

	case KindReferenceJurisdiction:
		if c.ReferenceJurisdiction == "" {
			return Rule{}, &ConfigError{Message: fmt.Sprintf("rule %q: reference_jurisdiction is not set", rc.ID)}
		}
		accepted := append([]string{c.ReferenceJurisdiction}, c.JurisdictionAliases...)
		foreign := make([]string, 0, len(c.ForeignPlaces))
		for _, f := range c.ForeignPlaces {
			if !MatchesJurisdiction(f, accepted, nil) {
				foreign = append(foreign, f)
			}
		}
		value := func(d types.ExtractedData) string { return *d.Jurisdiction }
		return Rule{
			Field: fieldOr(rc.Field, "jurisdiction"),
			Predicate: func(d types.ExtractedData) bool {
				if d.Jurisdiction == nil || strings.TrimSpace(*d.Jurisdiction) == "" {
					return false
				}
				return !MatchesJurisdiction(*d.Jurisdiction, accepted, foreign)
			},
			Message:   c.render(rc.Message, value, 0),
			Reasoning: c.render(rc.Reasoning, value, 0),
		}, nil

	case KindMaxRiskScore:
		limit, err := needThreshold()
		if err != nil {
			return Rule{}, err
		}
		value := func(d types.ExtractedData) string { return strconv.Itoa(d.RiskScore) }
		return Rule{
			Field: fieldOr(rc.Field, "risk_score"),
			Predicate: func(d types.ExtractedData) bool {
				return d.RiskScore > limit
			},
			Message:   c.render(rc.Message, value, limit),
			Reasoning: c.render(rc.Reasoning, value, limit),
		}, nil

	default:
		return Rule{}, &ConfigError{Message: fmt.Sprintf("rule %q: unknown kind %q", rc.ID, rc.Kind)}
	}
}

// render expands {value}, {threshold}, {reference} and {raw} in a message template.
func (c Config) render(tmpl string, value func(types.ExtractedData) string, threshold int) func(types.ExtractedData) string {
	if tmpl == "" {
		return nil
	}
	return func(d types.ExtractedData) string {
		raw := ""
		if d.ContractDurationRaw != nil {
			raw = *d.ContractDurationRaw
		}
		if raw == "" && strings.Contains(tmpl, "{raw}") {
			return ""
		}
		return strings.NewReplacer(
			"{value}", value(d),
			"{threshold}", strconv.Itoa(threshold),
			"{reference}", c.ReferenceJurisdiction,
			"{raw}", raw,
		).Replace(tmpl)
	}
}

// MatchesJurisdiction reports whether jurisdiction names an accepted place as whole
// words, ignoring case and accents ("Tribunales de Valparaíso" matches "valparaiso",
// "Chilecito" does not match "chile"). Naming any foreign place is never a match.
func MatchesJurisdiction(jurisdiction string, accepted, foreign []string) bool {
	for _, f := range foreign {
		if textnorm.ContainsWords(jurisdiction, f) {
			return false
		}
	}
	for _, a := range accepted {
		if textnorm.ContainsWords(jurisdiction, a) {
			return true
		}
	}
	return false
}

// beyondMonths reports a term of exactly limit months whose source phrase adds
// days or weeks on top ("two years and one day" against 24).
func beyondMonths(d types.ExtractedData, limit int) bool {
	if *d.ContractDurationMonths != limit || d.ContractDurationRaw == nil {
		return false
	}
	t, ok := term.ParseDuration(*d.ContractDurationRaw)
	return ok && t.ExtraDays && t.Months == limit
}

func fieldOr(field, def string) string {
	if field == "" {
		return def
	}
	return field
}
