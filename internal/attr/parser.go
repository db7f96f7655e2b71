// Package attr parses the info-string attribute block of a fenced code
// region into a model.ChunkAttributes record. The grammar is a flat list of
// space-separated tokens: `.classname`, `key`, or `key=value` where value is
// an unquoted word, a quoted string, or a bracketed JSON array.
//
// Parsing never fails: malformed input leaves the affected field at its
// type-correct default and continues with the rest of the string.
package attr

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/calegray/codedown/internal/model"
)

// Parse tokenizes an info-string attribute block and returns a populated
// ChunkAttributes with defaults applied for every absent key. The input may
// be wrapped in braces; a single outer pair is stripped.
func Parse(s string) model.ChunkAttributes {
	attrs := model.DefaultAttributes()

	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		s = s[1 : len(s)-1]
	}

	i := 0
	for i < len(s) {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			break
		}

		if s[i] == '.' {
			i++
			start := i
			for i < len(s) && isClassChar(s[i]) {
				i++
			}
			appendClass(&attrs, s[start:i])
			continue
		}

		start := i
		for i < len(s) && isIdentChar(s[i]) {
			i++
		}
		key := s[start:i]
		if key == "" {
			// Not an identifier start; skip the stray byte.
			i++
			continue
		}

		if i < len(s) && s[i] == '=' {
			i++
			var value string
			value, i = parseValue(s, i)
			apply(&attrs, key, value)
			continue
		}

		// Bare key is a boolean flag.
		apply(&attrs, key, "true")
	}

	return attrs
}

// parseValue consumes one attribute value starting at i and returns it with
// the position after the value. Bracketed values keep their brackets so that
// apply can hand them to the array decoder.
func parseValue(s string, i int) (string, int) {
	if i >= len(s) {
		return "", i
	}
	switch s[i] {
	case '[':
		depth := 0
		start := i
		for i < len(s) {
			switch s[i] {
			case '[':
				depth++
			case ']':
				depth--
				if depth == 0 {
					return s[start : i+1], i + 1
				}
			}
			i++
		}
		// Unbalanced bracket: take the rest of the string as-is.
		return s[start:], i
	case '"', '\'':
		quote := s[i]
		i++
		start := i
		for i < len(s) && s[i] != quote {
			i++
		}
		if i >= len(s) {
			// Unterminated quote: value is the rest of the string.
			return s[start:], i
		}
		return s[start:i], i + 1
	default:
		start := i
		for i < len(s) && !isSpace(s[i]) {
			i++
		}
		return s[start:i], i
	}
}

// apply writes a recognized key into the matching attribute field with type
// coercion. Unknown keys are ignored.
func apply(attrs *model.ChunkAttributes, key, value string) {
	switch key {
	case "cmd":
		attrs.Cmd = model.ParseCommandSpec(value)
	case "output":
		if model.ValidOutputFormat(value) {
			attrs.Output = value
		}
	case "args":
		attrs.Args = parseArray(value)
	case "stdin":
		attrs.Stdin = value == "true"
	case "hide":
		attrs.Hide = value == "true"
	case "continue":
		attrs.Continue = model.ParseContinueSpec(value)
	case "id":
		attrs.ID = value
	case "class":
		appendClass(attrs, value)
	case "element":
		attrs.Element = value
	case "run_on_save":
		attrs.RunOnSave = value == "true"
	case "modify_source":
		attrs.ModifySource = value == "true"
	case "matplotlib":
		attrs.PlotCapture = value == "true"
	case "latex_zoom":
		if z, err := strconv.ParseFloat(value, 64); err == nil {
			attrs.LaTeXZoom = z
		} else {
			attrs.LaTeXZoom = model.DefaultLaTeXZoom
		}
	case "latex_width":
		attrs.LaTeXWidth = value
	case "latex_height":
		attrs.LaTeXHeight = value
	case "latex_engine":
		attrs.LaTeXEngine = value
	}
}

// parseArray decodes a [...] value as a JSON array, coercing elements to
// strings. On decode failure it falls back to a single-element array holding
// the raw text between the brackets.
func parseArray(v string) []string {
	inner := v
	if strings.HasPrefix(inner, "[") && strings.HasSuffix(inner, "]") {
		inner = inner[1 : len(inner)-1]
	}

	var raw []any
	if err := json.Unmarshal([]byte(v), &raw); err != nil {
		return []string{inner}
	}

	out := make([]string, len(raw))
	for i, el := range raw {
		switch e := el.(type) {
		case string:
			out[i] = e
		case float64:
			out[i] = strconv.FormatFloat(e, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(e)
		}
	}
	return out
}

func appendClass(attrs *model.ChunkAttributes, class string) {
	if class == "" {
		return
	}
	if attrs.CSSClass == "" {
		attrs.CSSClass = class
		return
	}
	attrs.CSSClass += " " + class
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

func isIdentChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}

func isClassChar(b byte) bool {
	return isIdentChar(b) || b == '-'
}
