package pplx

import "strings"

// citationMarker is where Perplexity's copied text switches from the answer
// to the citation list. Matching the literal substring is how the site has
// always been scraped; a stricter marker parse would change behavior for
// answers that legitimately contain "[1]".
const citationMarker = "[1]"

// StripCitations truncates text at the first citation marker. Text without
// a marker passes through unchanged.
func StripCitations(text string) string {
	if i := strings.Index(text, citationMarker); i >= 0 {
		return text[:i]
	}
	return text
}

// typeSegments types text split on newlines, emitting a soft newline
// between segments so the composer receives line breaks without
// submitting. Joining the typed segments with "\n" reconstructs the
// original text byte for byte.
func typeSegments(text string, typeFn func(string) error, softNewline func() error) error {
	parts := strings.Split(text, "\n")
	for i, part := range parts {
		if err := typeFn(part); err != nil {
			return err
		}
		if i < len(parts)-1 {
			if err := softNewline(); err != nil {
				return err
			}
		}
	}
	return nil
}
