// Package term reads contract terms out of their source phrases.
package term

import (
	"math"
	"strconv"
	"strings"

	"github.com/jonathan/contract-auditor/internal/textnorm"
)

// Duration is a contract term parsed from its source phrase.
type Duration struct {
	Months int
	// ExtraDays is set when the phrase adds days or weeks beyond complete months.
	// Those never round the month count up.
	ExtraDays bool
}

// maxMonths bounds a parsed term so the month count always fits an int.
const maxMonths = math.MaxInt32

type unit int

const (
	unitNone unit = iota
	unitYear
	unitMonth
	unitSub // days or weeks
)

var unitWords = map[string]unit{
	"year": unitYear, "years": unitYear, "ano": unitYear, "anos": unitYear,
	"month": unitMonth, "months": unitMonth, "mes": unitMonth, "meses": unitMonth,
	"day": unitSub, "days": unitSub, "dia": unitSub, "dias": unitSub,
	"week": unitSub, "weeks": unitSub, "semana": unitSub, "semanas": unitSub,
}

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"thirteen": 13, "fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19,

	"un": 1, "uno": 1, "una": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10, "once": 11, "doce": 12,
	"trece": 13, "catorce": 14, "quince": 15, "dieciseis": 16, "diecisiete": 17,
	"dieciocho": 18, "diecinueve": 19, "veinte": 20, "veintiun": 21, "veintiuno": 21,
	"veintidos": 22, "veintitres": 23, "veinticuatro": 24, "veinticinco": 25,
	"veintiseis": 26, "veintisiete": 27, "veintiocho": 28, "veintinueve": 29,
}

var tensWords = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50, "sixty": 60,
	"treinta": 30, "cuarenta": 40, "cincuenta": 50, "sesenta": 60,
}

var indefiniteWords = []string{"indefinite", "indefinido", "indefinida", "indeterminado", "indeterminada"}

// ParseDuration reads phrases such as "two years and one day", "18 months",
// "un año y medio" or "treinta y seis (36) meses" into complete months.
// It returns false for indefinite terms, phrases it cannot read and counts
// too large to be a real term.
func ParseDuration(phrase string) (Duration, bool) {
	folded := textnorm.Fold(phrase)
	for _, w := range indefiniteWords {
		if strings.Contains(folded, w) {
			return Duration{}, false
		}
	}

	tokens := tokenize(folded)
	var (
		total    float64
		matched  bool
		extra    bool
		lastUnit = unitNone
		lastEnd  = -1
	)

	for i, tok := range tokens {
		u := unitWords[tok]
		if u == unitNone {
			continue
		}
		value, start, ok := numberBefore(tokens, i)
		if !ok && u != unitSub && halfAfter(tokens, i) > 0 {
			// "año y medio", "year and a half"
			value, start, ok = 1, i, true
		}
		if !ok {
			continue
		}
		if matched {
			// Years then months then days; anything else restates the term ("24 months (two years)").
			if u <= lastUnit || !onlyConnectors(tokens[lastEnd+1:start]) {
				break
			}
		}

		switch u {
		case unitYear:
			total += (value + halfAfter(tokens, i)) * 12
			matched = true
		case unitMonth:
			total += value + halfAfter(tokens, i)
			matched = true
		case unitSub:
			if !matched {
				continue
			}
			extra = true
		}
		lastUnit = u
		lastEnd = i
	}

	if !matched || total > maxMonths {
		return Duration{}, false
	}
	return Duration{Months: int(total), ExtraDays: extra}, true
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ' ', ',', ';', ':', '.', '(', ')', '[', ']', '"', '\'', '-', '/':
			return true
		}
		return false
	})
}

// numberBefore reads the number that ends just before index i.
// It returns the value and the index where the number starts.
func numberBefore(tokens []string, i int) (float64, int, bool) {
	j := i - 1
	if j < 0 {
		return 0, 0, false
	}

	// "one and a half years"
	if tokens[j] == "half" && j >= 3 && tokens[j-1] == "a" && tokens[j-2] == "and" {
		if v, start, ok := numberBefore(tokens, j-2); ok {
			return v + 0.5, start, true
		}
	}

	if n, err := strconv.Atoi(tokens[j]); err == nil {
		return float64(n), j, true
	}

	if n, ok := numberWords[tokens[j]]; ok {
		// "twenty four", "treinta y seis"
		if j >= 1 {
			if tens, ok := tensWords[tokens[j-1]]; ok && n < 10 {
				return float64(tens + n), j - 1, true
			}
		}
		if j >= 2 && tokens[j-1] == "y" {
			if tens, ok := tensWords[tokens[j-2]]; ok && n < 10 {
				return float64(tens + n), j - 2, true
			}
		}
		return float64(n), j, true
	}
	if tens, ok := tensWords[tokens[j]]; ok {
		return float64(tens), j, true
	}
	return 0, 0, false
}

// halfAfter recognises "... year and a half" and "... año y medio".
func halfAfter(tokens []string, i int) float64 {
	rest := tokens[i+1:]
	if len(rest) >= 3 && rest[0] == "and" && rest[1] == "a" && rest[2] == "half" {
		return 0.5
	}
	if len(rest) >= 2 && rest[0] == "y" && (rest[1] == "medio" || rest[1] == "media") {
		return 0.5
	}
	return 0
}

func onlyConnectors(tokens []string) bool {
	for _, t := range tokens {
		switch t {
		case "and", "y", "plus", "mas":
		default:
			return false
		}
	}
	return true
}
