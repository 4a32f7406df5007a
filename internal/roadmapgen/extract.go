// Package roadmapgen turns free-text model responses into validated roadmap
// drafts. The pipeline is two explicit stages, extract then validate, each
// returning a tagged outcome rather than throwing; transport retries live in
// the Client and never apply to extraction or validation failures.
package roadmapgen

import (
	"errors"
	"strings"
)

// ErrNoJSONFound indicates the response text contains no balanced JSON payload.
var ErrNoJSONFound = errors.New("no json payload found in response")

// ExtractJSON pulls the first syntactically balanced {...} or [...] substring
// out of raw text. The input may contain prose, markdown fences, or several
// JSON-like fragments; the widest match of the outermost pair wins. When
// wantObject is set, an object candidate is preferred over an earlier array.
func ExtractJSON(raw string, wantObject bool) (string, error) {
	if wantObject {
		if payload, ok := firstBalanced(raw, '{', '}'); ok {
			return payload, nil
		}
		if payload, ok := firstBalanced(raw, '[', ']'); ok {
			return payload, nil
		}
		return "", ErrNoJSONFound
	}

	objStart := strings.IndexByte(raw, '{')
	arrStart := strings.IndexByte(raw, '[')

	// Take whichever opener appears first, falling back to the other when
	// the earlier one never balances.
	if arrStart >= 0 && (objStart < 0 || arrStart < objStart) {
		if payload, ok := firstBalanced(raw, '[', ']'); ok {
			return payload, nil
		}
		if payload, ok := firstBalanced(raw, '{', '}'); ok {
			return payload, nil
		}
		return "", ErrNoJSONFound
	}

	if payload, ok := firstBalanced(raw, '{', '}'); ok {
		return payload, nil
	}
	if payload, ok := firstBalanced(raw, '[', ']'); ok {
		return payload, nil
	}
	return "", ErrNoJSONFound
}

// firstBalanced scans for the first opener whose matching closer balances,
// tracking JSON string literals so braces inside strings do not count.
func firstBalanced(raw string, open, close byte) (string, bool) {
	for start := 0; start < len(raw); start++ {
		if raw[start] != open {
			continue
		}
		if end, ok := matchBalanced(raw, start, open, close); ok {
			return raw[start : end+1], true
		}
	}
	return "", false
}

func matchBalanced(raw string, start int, open, close byte) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}

	return 0, false
}
