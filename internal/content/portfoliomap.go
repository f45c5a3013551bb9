package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// BuildPortfolioMap derives the code → display name index from the raw
// allWorkData.json document: tableName, then fullName, then the code, with
// newlines collapsed to spaces and surrounding space trimmed. Only the two
// name fields are read; other fields and non-string names are ignored.
func BuildPortfolioMap(workData []byte) (map[string]string, error) {
	var details map[string]json.RawMessage
	if err := json.Unmarshal(workData, &details); err != nil {
		return nil, fmt.Errorf("portfolio map: decode work data: %w", err)
	}
	out := make(map[string]string, len(details))
	for code, raw := range details {
		var names struct {
			TableName json.RawMessage `json:"tableName"`
			FullName  json.RawMessage `json:"fullName"`
		}
		// Entries that are not objects fall back to the code.
		_ = json.Unmarshal(raw, &names)
		name := rawString(names.TableName)
		if name == "" {
			name = rawString(names.FullName)
		}
		if name == "" {
			name = code
		}
		out[code] = collapseNewlines(name)
	}
	return out, nil
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// EncodePortfolioMap renders the map as two-space indented JSON with sorted
// keys and a trailing newline.
func EncodePortfolioMap(m map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			buf.WriteString(",")
		}
		key, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		val, err := marshalNoEscape(m[k])
		if err != nil {
			return nil, err
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
	}
	if len(keys) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func marshalNoEscape(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
