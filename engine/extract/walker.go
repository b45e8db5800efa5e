package extract

import (
	"bytes"
	"encoding/json"
	"strings"
)

// maxWalkDepth bounds recursion into untrusted JSON trees.
const maxWalkDepth = 12

// textKeys marks JSON keys whose string values may carry article prose.
var textKeys = []string{"body", "content", "description", "summary", "text"}

func textKey(key string) bool {
	k := strings.ToLower(key)
	for _, want := range textKeys {
		if strings.Contains(k, want) {
			return true
		}
	}
	return false
}

// walkJSON collects every string found under a prose-bearing key,
// depth-limited. It walks the token stream so candidates come out in
// document order, which fixes the paragraph order of anything built
// from them. Returns nil for undecodable input.
func walkJSON(raw []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var out []string
	if err := walkValue(dec, false, 0, &out); err != nil {
		return nil
	}
	return out
}

// walkValue consumes exactly one JSON value from dec. Values nested
// past maxWalkDepth are still consumed but never collected.
func walkValue(dec *json.Decoder, underTextKey bool, depth int, out *[]string) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				key, _ := keyTok.(string)
				if err := walkValue(dec, textKey(key), depth+1, out); err != nil {
					return err
				}
			}
			_, err = dec.Token()
			return err
		case '[':
			for dec.More() {
				if err := walkValue(dec, underTextKey, depth+1, out); err != nil {
					return err
				}
			}
			_, err = dec.Token()
			return err
		}
	case string:
		if underTextKey && depth <= maxWalkDepth && strings.TrimSpace(t) != "" {
			*out = append(*out, t)
		}
	}
	return nil
}
