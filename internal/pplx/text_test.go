package pplx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeSegmentsReconstructsInput(t *testing.T) {
	cases := []string{
		"single line",
		"Explain quantum computing\nIn two sentences",
		"a\nb\nc",
		"trailing newline\n",
		"\nleading newline",
		"blank\n\nline between",
		"",
	}

	for _, input := range cases {
		var typed []string
		newlines := 0
		err := typeSegments(input,
			func(s string) error { typed = append(typed, s); return nil },
			func() error { newlines++; return nil },
		)
		require.NoError(t, err)

		assert.Equal(t, input, strings.Join(typed, "\n"), "input %q", input)
		assert.Equal(t, strings.Count(input, "\n"), newlines, "input %q", input)
	}
}

func TestTypeSegmentsNeverSubmitsPerLine(t *testing.T) {
	// Each embedded newline must become exactly one soft newline; a hard
	// Enter here would submit the prompt mid-typing.
	input := "line one\nline two\nline three"

	softNewlines := 0
	err := typeSegments(input,
		func(string) error { return nil },
		func() error { softNewlines++; return nil },
	)
	require.NoError(t, err)
	assert.Equal(t, 2, softNewlines)
}

func TestTypeSegmentsPropagatesTypeError(t *testing.T) {
	err := typeSegments("a\nb",
		func(string) error { return assert.AnError },
		func() error { return nil },
	)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestStripCitations(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Answer text [1][2] more", "Answer text "},
		{"no citations here", "no citations here"},
		{"[1] starts with one", ""},
		{"", ""},
		{"ends with marker[1]", "ends with marker"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, StripCitations(tc.in), "input %q", tc.in)
	}
}
