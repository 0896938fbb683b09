package corridor

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"strings"
)

// ConfigHash implements spec.md §3's stable config hash: structural JSON of
// the effective config with float leaves rounded to 5 decimals, keys sorted
// at every nesting level, and top-level keys beginning with "save" stripped
// before hashing. Permuting key order or mutating a save*-prefixed key must
// not change the result (spec.md §8 property 4).
func ConfigHash(effective map[string]interface{}) string {
	stripped := make(map[string]interface{}, len(effective))
	for k, v := range effective {
		if strings.HasPrefix(k, "save") {
			continue
		}
		stripped[k] = v
	}

	canon := canonicalize(stripped)
	sum := md5.Sum([]byte(canon))
	return hex.EncodeToString(sum[:])
}

// canonicalize renders v as JSON with float64 leaves rounded to 5 decimals
// and every object's keys emitted in sorted order.
func canonicalize(v interface{}) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

func writeCanonical(b *strings.Builder, v interface{}) {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, k)
			b.WriteByte(':')
			writeCanonical(b, val[k])
		}
		b.WriteByte('}')
	case []interface{}:
		b.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, e)
		}
		b.WriteByte(']')
	case float64:
		rounded := math.Round(val*1e5) / 1e5
		enc, _ := json.Marshal(rounded)
		b.Write(enc)
	default:
		enc, _ := json.Marshal(val)
		b.Write(enc)
	}
}
