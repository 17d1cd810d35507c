package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/hashdev89/smart-summary-insight-service/pkg/models"
)

// Fingerprint computes the SHA-256 hex digest of the canonical JSON form
// of a request: structured_data with sorted keys at every nesting depth,
// notes sorted lexicographically (order-insensitive dedup).
func Fingerprint(req models.Request) string {
	data := req.StructuredData
	if data == nil {
		data = map[string]any{}
	}

	notes := append([]string(nil), req.Notes...)
	sort.Strings(notes)

	canonical := canonicalValue(map[string]any{
		"structured_data": data,
		"notes":           toAnySlice(notes),
	})

	payload, _ := json.Marshal(canonical)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// canonicalValue recursively converts maps into orderedMap wrappers so
// that json.Marshal emits keys in a stable, sorted order at every depth.
// encoding/json already sorts map[string]any keys when marshalling; this
// makes the ordering explicit instead of relying on that behaviour.
func canonicalValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(orderedMap, 0, len(t))
		for _, k := range keys {
			out = append(out, kv{k, canonicalValue(t[k])})
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonicalValue(e)
		}
		return out
	default:
		return t
	}
}

type kv struct {
	Key   string
	Value any
}

// orderedMap marshals as a JSON object preserving insertion order, which
// canonicalValue has already sorted by key.
type orderedMap []kv

func (m orderedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, pair := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyJSON, _ := json.Marshal(pair.Key)
		buf = append(buf, keyJSON...)
		buf = append(buf, ':')
		valJSON, err := json.Marshal(pair.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, valJSON...)
	}
	buf = append(buf, '}')
	return buf, nil
}
