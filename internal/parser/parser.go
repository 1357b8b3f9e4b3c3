// Package parser converts legacy inventory export text into structured
// catalog records.
//
// The export format is a line-oriented dump from the legacy point-of-sale
// database: a numeric SKU, a free-text product name, then a run of numeric
// columns. Lines that do not fit the shape are counted and skipped; a bad
// line never aborts a batch.
package parser

import (
	"regexp"
	"strings"
)

// Record is one normalized catalog entry produced from a single export line.
// All fields are kept as strings; the downstream catalog API owns numeric
// interpretation.
type Record struct {
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	StockQuantity string `json:"stock_quantity"`
	Category      string `json:"category"`
}

// Stats summarizes one parse pass.
type Stats struct {
	// TotalLines is the number of lines in the input, blank lines included.
	TotalLines int `json:"total_lines"`
	// Accepted is the number of lines that produced a record.
	Accepted int `json:"accepted"`
	// Rejected is the number of non-blank lines that were skipped.
	Rejected int `json:"rejected"`
}

// Options controls parse behavior.
type Options struct {
	// CleanNames enables product name normalization (asterisk and
	// whitespace cleanup).
	CleanNames bool
	// Validate enables the validation gate on extracted fields.
	Validate bool
}

var (
	leadingSKU   = regexp.MustCompile(`^(\d+)[ \t]+(.*)$`)
	numericToken = regexp.MustCompile(`^\d+(\.\d+)?$`)
	trailingStar = regexp.MustCompile(`\*+$`)
	internalStar = regexp.MustCompile(`\*{3,}`)
	multiSpace   = regexp.MustCompile(`\s+`)
)

// Parse converts raw export text into records. It is a pure function: the
// same input always yields the same records and stats, and it never returns
// an error. Malformed lines degrade to the rejected count.
//
// Field order in the numeric tail is positional: the first token is the
// stock quantity, the second is the price, and the last is the category.
// A tail of exactly two tokens therefore maps the second token to both
// price and category.
func Parse(raw string, opts Options) ([]Record, Stats) {
	var stats Stats
	var records []Record

	for _, line := range strings.Split(raw, "\n") {
		stats.TotalLines++

		if strings.TrimSpace(line) == "" {
			// Blank lines (including the one a trailing newline produces)
			// are neither accepted nor rejected.
			continue
		}

		rec, ok := parseLine(line, opts)
		if !ok {
			stats.Rejected++
			continue
		}

		records = append(records, rec)
		stats.Accepted++
	}

	return records, stats
}

// parseLine extracts one record from a single export line.
func parseLine(line string, opts Options) (Record, bool) {
	m := leadingSKU.FindStringSubmatch(strings.TrimLeft(line, " \t"))
	if m == nil {
		return Record{}, false
	}
	sku, rest := m[1], m[2]

	name, tail := splitName(rest)
	if opts.CleanNames {
		name = cleanName(name)
	} else {
		name = strings.TrimSpace(name)
	}
	// A usable product name has at least two characters regardless of the
	// validation gate; anything shorter is export noise.
	if len(name) < 2 {
		return Record{}, false
	}

	tokens := strings.Fields(tail)
	if len(tokens) < 2 {
		return Record{}, false
	}
	for _, tok := range tokens {
		if !numericToken.MatchString(tok) {
			return Record{}, false
		}
	}

	rec := Record{
		SKU:           sku,
		Name:          name,
		StockQuantity: tokens[0],
		Price:         tokens[1],
		Category:      tokens[len(tokens)-1],
	}

	if opts.Validate && !validate(rec) {
		return Record{}, false
	}
	return rec, true
}

// splitName separates the free-text name from the numeric tail. The name
// segment ends at a tab, at a run of two or more spaces, or at the onset
// of digits.
func splitName(s string) (name, tail string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\t' {
			return s[:i], s[i+1:]
		}
		if c == ' ' && i+1 < len(s) && s[i+1] == ' ' {
			return s[:i], s[i:]
		}
		if c >= '0' && c <= '9' {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

// cleanName normalizes a raw product name: trailing asterisk runs are
// dropped, internal runs of three or more asterisks become a single space,
// and repeated whitespace collapses to one space.
func cleanName(name string) string {
	name = strings.TrimSpace(name)
	name = trailingStar.ReplaceAllString(name, "")
	name = internalStar.ReplaceAllString(name, " ")
	name = multiSpace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// validate applies the validation gate: all-digit SKU and numeric price
// and stock.
func validate(rec Record) bool {
	for _, c := range rec.SKU {
		if c < '0' || c > '9' {
			return false
		}
	}
	return numericToken.MatchString(rec.Price) && numericToken.MatchString(rec.StockQuantity)
}
