package core

import (
	"reflect"
	"time"
)

// ChangeSet partitions an edited record set against its baseline snapshot.
// Every record of the current set lands in exactly one group.
type ChangeSet struct {
	Added     []Record
	Modified  []Record
	Unchanged []Record
}

// Diff classifies each record in current against baseline, matching by
// idField. A record absent from baseline is always Added. Present records
// are compared field by field over compareFields; a field path containing
// dots is walked into nested records, and a path missing on both sides
// counts as "no difference", as does a missing path against an empty
// value. Values are compared by deep equality.
//
// This is what turns "save the whole edited roster" into "write only what
// changed": the remote write quota is far smaller than the number of rows
// one save can touch.
func Diff(baseline, current []Record, idField string, compareFields []string) ChangeSet {
	base := make(map[string]Record, len(baseline))
	for _, rec := range baseline {
		if id, ok := rec[idField].(string); ok && id != "" {
			base[id] = rec
		}
	}

	var cs ChangeSet
	for _, rec := range current {
		id, _ := rec[idField].(string)
		orig, ok := base[id]
		if !ok || id == "" {
			cs.Added = append(cs.Added, rec)
			continue
		}
		if changed(orig, rec, compareFields) {
			cs.Modified = append(cs.Modified, rec)
		} else {
			cs.Unchanged = append(cs.Unchanged, rec)
		}
	}
	return cs
}

func changed(orig, edited Record, compareFields []string) bool {
	for _, path := range compareFields {
		before, okBefore := orig.FieldAt(path)
		after, okAfter := edited.FieldAt(path)
		if !okBefore && !okAfter {
			continue
		}
		if okBefore != okAfter {
			// a blank cell reads back as an absent field; an empty value on
			// the present side is the same "nothing there"
			present := before
			if !okBefore {
				present = after
			}
			if emptyValue(present) {
				continue
			}
			return true
		}
		if !reflect.DeepEqual(before, after) {
			return true
		}
	}
	return false
}

func emptyValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case time.Time:
		return t.IsZero()
	case float64:
		return t == 0
	case int:
		return t == 0
	case bool:
		return !t
	}
	return false
}
