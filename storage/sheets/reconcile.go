package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/kymaza/darasa/core"
)

// reconcileResult is the generic outcome the typed repositories map into
// their domain result structs.
type reconcileResult struct {
	Inserted int
	Updated  int
	Saved    []core.Record // records actually written (inserted or updated)
}

// reconcile turns one edited record set into the minimal remote writes:
// rows whose composite key matches an existing record adopt its ID, new
// rows get generated IDs, the diff engine partitions the set, updates go
// through the batch scheduler at their snapshot positions and inserts are
// appended in one call. Positional targets are re-checked against the
// remote ID column right before the batch flush, so a row shift under the
// snapshot fails with ErrStaleSnapshot instead of overwriting the wrong
// rows. The entity cache (snapshot and indices) is invalidated after any
// write.
func (r *repository) reconcile(
	ctx context.Context,
	filterField, filterValue string,
	edited []core.Record,
	keyFields, compareFields []string,
) (reconcileResult, error) {
	var res reconcileResult

	snap, err := r.snapshot(ctx)
	if err != nil {
		return res, err
	}

	posByID := make(map[string]int, len(snap))
	live := make([]core.Record, 0, len(snap))
	baseline := make([]core.Record, 0, len(snap))
	baseByID := make(map[string]core.Record, len(snap))
	for pos, rec := range snap {
		id := rec.ID()
		if id == "" {
			continue
		}
		posByID[id] = pos
		live = append(live, rec)
		if val, _ := rec.FieldAt(filterField); val == filterValue {
			baseline = append(baseline, rec)
			baseByID[id] = rec
		}
	}

	// existence lookups are O(1) against the derived index rather than a
	// snapshot scan per edited row
	idx := r.index(live, keyFields)

	current := make([]core.Record, 0, len(edited))
	for _, rec := range edited {
		rec = rec.Clone()
		if rec.ID() == "" {
			if existing, ok := idx[core.IndexKey(rec, keyFields...)]; ok {
				rec[core.IDField] = existing.ID()
			} else {
				id := r.eng.idgen.Next(r.idPrefix)
				if _, taken := posByID[id]; taken {
					return res, core.NewShutdownError(fmt.Sprintf("generated %s ID %s already exists", r.schema.Sheet, id))
				}
				rec[core.IDField] = id
			}
		}
		current = append(current, rec)
	}

	cs := core.Diff(baseline, current, core.IDField, compareFields)

	ops := make([]BatchOp, 0, len(cs.Modified))
	targets := make(map[int]string, len(cs.Modified))
	for _, rec := range cs.Modified {
		id := rec.ID()
		pos, ok := posByID[id]
		if !ok {
			return res, errors.Wrapf(ErrStaleSnapshot, "no position for %s %s", r.schema.Sheet, id)
		}
		merged := baseByID[id].Merge(rec)
		ops = append(ops, BatchOp{Range: r.schema.rowRange(pos), Rows: [][]interface{}{r.schema.toRow(merged)}})
		targets[pos] = id
		res.Saved = append(res.Saved, merged)
	}

	if len(ops) > 0 {
		if err = r.verifyPositions(ctx, targets); err != nil {
			return res, err
		}
		if err = r.eng.batch.execute(ctx, ops); err != nil {
			// earlier groups may have committed; drop the stale snapshot
			r.invalidate()
			return res, err
		}
		res.Updated = len(ops)
	}

	if len(cs.Added) > 0 {
		rows := make([][]interface{}, 0, len(cs.Added))
		for _, rec := range cs.Added {
			rows = append(rows, r.schema.toRow(rec))
		}
		err = r.eng.retry.run(ctx, r.schema.Sheet+".append", func() error {
			_, err := r.eng.client.AppendRows(ctx, r.schema.DataRange(), rows)
			return err
		})
		if err != nil {
			r.invalidate()
			r.eng.log.Error("appending reconciled rows",
				map[string]interface{}{"entity": r.schema.Sheet, "op": "reconcile", "rows": len(rows)}, err)
			return res, errors.Wrapf(err, "appending %s rows", r.schema.Sheet)
		}
		res.Inserted = len(cs.Added)
		res.Saved = append(res.Saved, cs.Added...)
	}

	if res.Updated > 0 || res.Inserted > 0 {
		r.invalidate()
	}
	return res, nil
}

// index returns the cached composite-key index for keyFields, building it
// from the given records on a miss. Indices live in the entity's cache
// namespace and are invalidated together with the snapshot; they are
// derived projections, always safe to discard and rebuild.
func (r *repository) index(records []core.Record, keyFields []string) map[string]core.Record {
	key := core.CacheKey(r.schema.Sheet, "index", strings.Join(keyFields, "+"))
	if cached, ok := r.eng.cache.Get(key); ok {
		return cached.(map[string]core.Record)
	}
	idx := core.BuildIndex(records, keyFields...)
	r.eng.cache.Set(key, idx, r.eng.ttl)
	return idx
}
