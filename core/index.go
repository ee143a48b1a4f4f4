package core

import "strings"

// compositeKeySep joins index key parts. It is reserved: entity field
// values are never expected to contain it.
const compositeKeySep = "|"

// CompositeKey derives the index key for the given field values, in order.
// Build and lookup must use the same ordered field list for keys to match.
func CompositeKey(values ...string) string {
	return strings.Join(values, compositeKeySep)
}

// BuildIndex maps each record to its composite key over keyFields, for
// O(1) existence checks during reconciliation (one lookup per edited row
// instead of a scan per row). Later records win on key collision; the
// index is a derived, rebuildable projection and never authoritative.
func BuildIndex(records []Record, keyFields ...string) map[string]Record {
	idx := make(map[string]Record, len(records))
	for _, rec := range records {
		idx[IndexKey(rec, keyFields...)] = rec
	}
	return idx
}

// IndexKey derives the composite key of a single record over keyFields.
// Missing or non-string fields contribute an empty segment.
func IndexKey(rec Record, keyFields ...string) string {
	parts := make([]string, 0, len(keyFields))
	for _, field := range keyFields {
		val, _ := rec.FieldAt(field)
		s, _ := val.(string)
		parts = append(parts, s)
	}
	return CompositeKey(parts...)
}
