package assist

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/querystorm/internal/engine/patch"
)

// ParseModification extracts a modification from model output.
//
// The expected form is a JSON object
//
//	{"type": "insert", "content": "...", "position": {"line": 2, "column": 1}}
//
// possibly wrapped in a Markdown code fence or surrounded by prose. "kind"
// is accepted in place of "type", and "line"/"column" may appear at the top
// level. Output that contains no JSON object is treated as a full
// replacement of the console content.
func ParseModification(text string) (patch.Modification, error) {
	body := stripFence(strings.TrimSpace(text))
	if body == "" {
		return patch.Modification{}, ErrEmptyResponse
	}

	obj, ok := extractObject(body)
	if !ok {
		return patch.Replace(body), nil
	}

	res := gjson.Parse(obj)
	kindField := res.Get("type")
	if !kindField.Exists() {
		kindField = res.Get("kind")
	}
	if !kindField.Exists() {
		// A JSON object without a kind is SQL-adjacent text, not an envelope.
		return patch.Replace(body), nil
	}

	kind := patch.ParseKind(strings.TrimSpace(kindField.String()))
	mod := patch.Modification{Kind: kind, Content: res.Get("content").String()}
	if kind == patch.KindInsert {
		line, column := res.Get("position.line"), res.Get("position.column")
		if !line.Exists() {
			line, column = res.Get("line"), res.Get("column")
		}
		if line.Exists() {
			col := int(column.Int())
			if !column.Exists() {
				col = 1
			}
			mod.Position = &patch.Position{Line: int(line.Int()), Column: col}
		}
	}

	if err := mod.Validate(); err != nil {
		return patch.Modification{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return mod, nil
}

// stripFence removes a surrounding ``` fence, with or without a language tag.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimRight(s, " \t\n"), "```")
	return strings.TrimSpace(s)
}

// extractObject returns the outermost {...} span when it is valid JSON.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	obj := s[start : end+1]
	if !gjson.Valid(obj) {
		return "", false
	}
	return obj, true
}
