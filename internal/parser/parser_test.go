package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultOptions() Options {
	return Options{CleanNames: true, Validate: true}
}

func TestParseSingleLine(t *testing.T) {
	t.Parallel()

	records, stats := Parse("1001  Widget Pro***   5   19.99   7", defaultOptions())

	require.Len(t, records, 1)
	assert.Equal(t, Record{
		SKU:           "1001",
		Name:          "Widget Pro",
		Price:         "19.99",
		StockQuantity: "5",
		Category:      "7",
	}, records[0])
	assert.Equal(t, Stats{TotalLines: 1, Accepted: 1, Rejected: 0}, stats)
}

func TestParseLineShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want *Record
	}{
		{
			name: "tab separated",
			line: "42\tGadget\t10\t4.50\t3",
			want: &Record{SKU: "42", Name: "Gadget", Price: "4.50", StockQuantity: "10", Category: "3"},
		},
		{
			name: "digit onset terminates name",
			line: "7 Anvil 3 99.95 12",
			want: &Record{SKU: "7", Name: "Anvil", Price: "99.95", StockQuantity: "3", Category: "12"},
		},
		{
			name: "two numeric tokens maps last to price and category",
			line: "55  Doohickey  8  2.25",
			want: &Record{SKU: "55", Name: "Doohickey", Price: "2.25", StockQuantity: "8", Category: "2.25"},
		},
		{
			name: "internal asterisk run becomes a space",
			line: "9  Spark***Plug  4  1.10  2",
			want: &Record{SKU: "9", Name: "Spark Plug", Price: "1.10", StockQuantity: "4", Category: "2"},
		},
		{
			name: "short asterisk run survives",
			line: "10  A**B  4  1.10  2",
			want: &Record{SKU: "10", Name: "A**B", Price: "1.10", StockQuantity: "4", Category: "2"},
		},
		{
			name: "leading whitespace tolerated",
			line: "  11  Bracket  1  0.99  5",
			want: &Record{SKU: "11", Name: "Bracket", Price: "0.99", StockQuantity: "1", Category: "5"},
		},
		{
			name: "no leading digits",
			line: "Widget  5  19.99  7",
		},
		{
			name: "only one trailing numeric token",
			line: "1001  Widget  5",
		},
		{
			name: "non numeric token in tail",
			line: "1001  Widget  5  free  7",
		},
		{
			name: "empty name",
			line: "1001   5   19.99   7",
		},
		{
			name: "single character name",
			line: "1001  X  5  19.99  7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			records, stats := Parse(tt.line, defaultOptions())
			if tt.want == nil {
				assert.Empty(t, records)
				assert.Equal(t, 1, stats.Rejected)
				return
			}
			require.Len(t, records, 1)
			assert.Equal(t, *tt.want, records[0])
			assert.Equal(t, 1, stats.Accepted)
		})
	}
}

func TestParseMultiLine(t *testing.T) {
	t.Parallel()

	raw := "1001  Widget Pro***   5   19.99   7\n" +
		"garbage line\n" +
		"\n" +
		"1002  Sprocket   12   3.49   7\n"

	records, stats := Parse(raw, defaultOptions())

	require.Len(t, records, 2)
	assert.Equal(t, "Widget Pro", records[0].Name)
	assert.Equal(t, "Sprocket", records[1].Name)
	// 5 lines total: two good, one garbage, one blank, one empty trailer.
	assert.Equal(t, Stats{TotalLines: 5, Accepted: 2, Rejected: 1}, stats)
}

func TestParseIdempotent(t *testing.T) {
	t.Parallel()

	raw := "1001  Widget Pro***   5   19.99   7\nbad\n2002  Gizmo   1   2.00   3"

	first, firstStats := Parse(raw, defaultOptions())
	second, secondStats := Parse(raw, defaultOptions())

	assert.Equal(t, first, second)
	assert.Equal(t, firstStats, secondStats)
}

func TestParseWithoutCleanNames(t *testing.T) {
	t.Parallel()

	records, _ := Parse("1001  Widget Pro***   5   19.99   7", Options{CleanNames: false, Validate: true})

	require.Len(t, records, 1)
	assert.Equal(t, "Widget Pro***", records[0].Name)
}

func TestParseWithoutValidation(t *testing.T) {
	t.Parallel()

	opts := Options{CleanNames: true, Validate: false}

	// The minimum name length is a base skip rule, not part of the
	// validation gate, so a one-character name is rejected either way.
	records, stats := Parse("1001  X  5  19.99  7", opts)
	assert.Empty(t, records)
	assert.Equal(t, 1, stats.Rejected)

	records, _ = Parse("1001  Widget  5  19.99  7", opts)
	require.Len(t, records, 1)
	assert.Equal(t, "Widget", records[0].Name)
}

func TestParseEmptyInput(t *testing.T) {
	t.Parallel()

	records, stats := Parse("", defaultOptions())
	assert.Empty(t, records)
	assert.Equal(t, Stats{TotalLines: 1}, stats)
}
