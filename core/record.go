package core

import "strings"

// Record is the neutral representation of one entity row: field name to
// typed value (string, float64, bool, time.Time or a nested Record).
// The sync engine (cache, diff, index, batch) only ever sees Records;
// typed models are converted at the storage boundary.
type Record map[string]interface{}

// IDField is the identifying field every entity type carries.
const IDField = "id"

func (r Record) ID() string {
	id, _ := r[IDField].(string)
	return id
}

func (r Record) Clone() Record {
	cp := make(Record, len(r))
	for k, v := range r {
		if nested, ok := v.(Record); ok {
			cp[k] = nested.Clone()
			continue
		}
		cp[k] = v
	}
	return cp
}

// Merge returns a copy of r with all fields of patch written over it.
func (r Record) Merge(patch Record) Record {
	merged := r.Clone()
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// FieldAt resolves a possibly dot-separated field path, walking nested
// Records segment by segment. The second return reports whether the full
// path resolved to a value.
func (r Record) FieldAt(path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	var cur interface{} = r
	for _, seg := range segments {
		rec, ok := asRecord(cur)
		if !ok {
			return nil, false
		}
		cur, ok = rec[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asRecord(v interface{}) (Record, bool) {
	switch rec := v.(type) {
	case Record:
		return rec, true
	case map[string]interface{}:
		return rec, true
	}
	return nil, false
}
