package generator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedBlockRegex   = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n(.*?)\\n?\\s*```")
	trailingCommaRegex = regexp.MustCompile(`,\s*([}\]])`)
	// A value ending a line followed by a new key or element without a comma.
	missingCommaRegex = regexp.MustCompile(`(["}\]\d]|true|false|null)(\s*\n\s*)(["{\[])`)
)

var errNoJSON = errors.New("no JSON object found in response")

// decodeStrict parses the whole response as one JSON value of type T.
// Anything but surrounding whitespace is rejected.
func decodeStrict[T any](response string) (*T, error) {
	var out T
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(response)))
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if dec.More() {
		return nil, errors.New("decode: trailing data after JSON value")
	}
	return &out, nil
}

// decodeLenient pulls the first JSON object out of a chatty response:
// it prefers a fenced code block, skips leading prose, ignores trailing
// text and, when decoding still fails, repairs common syntax slips.
func decodeLenient[T any](response string) (*T, error) {
	candidate := extractJSON(response)
	if candidate == "" {
		return nil, errNoJSON
	}

	var out T
	err := json.NewDecoder(strings.NewReader(candidate)).Decode(&out)
	if err == nil {
		return &out, nil
	}

	repaired := repairJSON(candidate)
	if repaired != candidate {
		var retry T
		if err2 := json.NewDecoder(strings.NewReader(repaired)).Decode(&retry); err2 == nil {
			return &retry, nil
		}
	}
	return nil, fmt.Errorf("lenient decode: %w", err)
}

func extractJSON(response string) string {
	text := strings.TrimSpace(response)
	if m := fencedBlockRegex.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	// A response may be a JSON string wrapping the document.
	if strings.HasPrefix(text, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(text), &inner); err == nil {
			text = strings.TrimSpace(inner)
		}
	}

	idx := strings.IndexByte(text, '{')
	if idx < 0 {
		return ""
	}
	return text[idx:]
}

// repairJSON fixes raw control characters inside strings, missing commas
// between lines, trailing commas and truncated output.
func repairJSON(input string) string {
	out := escapeControlChars(input)
	out = missingCommaRegex.ReplaceAllString(out, `$1,$2$3`)
	out = trailingCommaRegex.ReplaceAllString(out, `$1`)
	return closeTruncated(out)
}

func escapeControlChars(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	inString, escaped := false, false
	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString && c < 0x20:
			switch c {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				fmt.Fprintf(&b, `\u%04x`, c)
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// closeTruncated terminates an unfinished string and closes every
// container left open, innermost first.
func closeTruncated(input string) string {
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(input); i++ {
		c := input[i]
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
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if !inString && len(stack) == 0 {
		return input
	}

	var b bytes.Buffer
	b.WriteString(input)
	if inString {
		b.WriteByte('"')
	}
	trimmed := bytes.TrimRight(b.Bytes(), " \t\r\n")
	trimmed = bytes.TrimSuffix(trimmed, []byte(","))
	b.Truncate(len(trimmed))
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
