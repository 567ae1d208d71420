package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "nil", input: nil, want: []string{}},
		{name: "blanks only", input: []string{"", "  ", "\t"}, want: []string{}},
		{name: "keeps first occurrence order", input: []string{" Lekki ", "Yaba", "Lekki", "yaba"}, want: []string{"Lekki", "Yaba", "yaba"}},
		{name: "broker list", input: []string{"broker-1:9092", " broker-2:9092", ""}, want: []string{"broker-1:9092", "broker-2:9092"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimDoesNotAlias(t *testing.T) {
	in := []string{"a", "b"}
	out := DedupeAndTrim(in)
	out[0] = "z"
	assert.Equal(t, "a", in[0])
}
