// Package dedupe collapses result records surfaced by several overlapping
// search strings into one record per card.
package dedupe

import (
	"bytes"
	"encoding/json"
	"sort"

	xxhash "github.com/cespare/xxhash/v2"
)

// Record is a result keyed by the card it describes.
type Record interface {
	Key() string
}

// Dedupe returns one record per Key. Records are first collapsed by their
// canonical JSON form, which drops exact duplicates, and then reduced by key;
// when distinct records share a key the one encountered first wins. The
// output is sorted by key. Dedupe never fails: a record that cannot be
// serialized takes part in the key reduction only.
func Dedupe[T Record](in []T) []T {
	if len(in) == 0 {
		return nil
	}

	distinct := make([]T, 0, len(in))
	seen := make(map[uint64][][]byte, len(in))
	for _, r := range in {
		b, err := json.Marshal(r)
		if err != nil {
			distinct = append(distinct, r)
			continue
		}
		h := xxhash.Sum64(b)
		if containsBytes(seen[h], b) {
			continue
		}
		seen[h] = append(seen[h], b)
		distinct = append(distinct, r)
	}

	byKey := make(map[string]T, len(distinct))
	for i := len(distinct) - 1; i >= 0; i-- {
		byKey[distinct[i].Key()] = distinct[i]
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]T, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out
}

func containsBytes(bucket [][]byte, b []byte) bool {
	for _, x := range bucket {
		if bytes.Equal(x, b) {
			return true
		}
	}
	return false
}
