package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/kymaza/darasa/core"
)

// Engine bundles the sync plumbing every entity repository composes: the
// remote client, the retry executor, the batch scheduler, the TTL cache
// and the ID generator. One Engine is built at startup and shared.
type Engine struct {
	client RemoteClient
	retry  *retrier
	batch  *batchScheduler
	cache  *core.Cache
	idgen  *core.IDGenerator
	ttl    time.Duration
	log    core.Logger

	repos []*repository
}

func NewEngine(client RemoteClient, cache *core.Cache, idgen *core.IDGenerator, conf core.SheetsConfig, log core.Logger) *Engine {
	retry := newRetrier(RetryConfig{
		MaxRetries:   conf.MaxRetries,
		InitialDelay: conf.InitialRetryDelay,
		MaxDelay:     conf.MaxRetryDelay,
		JitterFactor: conf.RetryJitterFactor,
	}, log)
	return &Engine{
		client: client,
		retry:  retry,
		batch:  newBatchScheduler(client, retry, conf.BatchSize, conf.BatchInterval, log),
		cache:  cache,
		idgen:  idgen,
		ttl:    conf.CacheTTL,
		log:    log,
	}
}

func (e *Engine) newRepository(schema Schema, idPrefix string) *repository {
	repo := &repository{eng: e, schema: schema, idPrefix: idPrefix}
	e.repos = append(e.repos, repo)
	return repo
}

// SeedIDGenerator scans every registered entity type once and seeds the
// per-prefix counters from the highest numeric suffix observed. Call at
// boot, before serving requests.
func (e *Engine) SeedIDGenerator(ctx context.Context) error {
	for _, repo := range e.repos {
		snap, err := repo.snapshot(ctx)
		if err != nil {
			return errors.Wrapf(err, "seeding IDs from %s", repo.schema.Sheet)
		}
		for _, rec := range snap {
			e.idgen.Observe(rec.ID())
		}
	}
	return nil
}

// repository is the generic cached CRUD core each typed repository wraps.
type repository struct {
	eng      *Engine
	schema   Schema
	idPrefix string
}

func (r *repository) cacheKey() string {
	return core.CacheKey(r.schema.Sheet, "all")
}

// snapshot returns the raw record snapshot, position-aligned with the
// remote data rows: logically deleted (blanked) rows stay in place as
// empty records so positions never shift.
func (r *repository) snapshot(ctx context.Context) ([]core.Record, error) {
	if cached, ok := r.eng.cache.Get(r.cacheKey()); ok {
		return cached.([]core.Record), nil
	}

	var rows [][]interface{}
	err := r.eng.retry.run(ctx, r.schema.Sheet+".read", func() error {
		var err error
		rows, err = r.eng.client.ReadRange(ctx, r.schema.DataRange())
		return err
	})
	if err != nil {
		r.eng.log.Error("reading entity range",
			map[string]interface{}{"entity": r.schema.Sheet, "op": "read"}, err)
		return nil, errors.Wrapf(err, "reading %s", r.schema.Sheet)
	}

	records := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, r.schema.toRecord(row))
	}
	r.eng.cache.Set(r.cacheKey(), records, r.eng.ttl)
	return records, nil
}

// getAll returns the live records (deleted rows filtered out).
func (r *repository) getAll(ctx context.Context) ([]core.Record, error) {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]core.Record, 0, len(snap))
	for _, rec := range snap {
		if rec.ID() != "" {
			records = append(records, rec)
		}
	}
	return records, nil
}

// getByID scans the cached snapshot; the remote fetch dominates the cost
// and the scan stays consistent with the snapshot the position refers to.
func (r *repository) getByID(ctx context.Context, id string) (core.Record, int, error) {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}
	for pos, rec := range snap {
		if rec.ID() == id {
			return rec, pos, nil
		}
	}
	return nil, 0, errNoSuchRow
}

func (r *repository) create(ctx context.Context, rec core.Record) (core.Record, error) {
	if rec.ID() == "" {
		rec = rec.Clone()
		rec[core.IDField] = r.eng.idgen.Next(r.idPrefix)
		if err := r.ensureFreshID(ctx, rec.ID()); err != nil {
			return nil, err
		}
	}
	err := r.eng.retry.run(ctx, r.schema.Sheet+".append", func() error {
		_, err := r.eng.client.AppendRows(ctx, r.schema.DataRange(), [][]interface{}{r.schema.toRow(rec)})
		return err
	})
	if err != nil {
		r.eng.log.Error("appending entity row",
			map[string]interface{}{"entity": r.schema.Sheet, "op": "create", "id": rec.ID()}, err)
		return nil, errors.Wrapf(err, "creating %s row", r.schema.Sheet)
	}
	r.invalidate()
	return rec, nil
}

func (r *repository) update(ctx context.Context, id string, patch core.Record) (core.Record, error) {
	rec, pos, err := r.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := rec.Merge(patch)

	if err = r.verifyPosition(ctx, pos, id); err != nil {
		return nil, err
	}
	err = r.eng.retry.run(ctx, r.schema.Sheet+".update", func() error {
		_, err := r.eng.client.UpdateRange(ctx, r.schema.rowRange(pos), [][]interface{}{r.schema.toRow(merged)})
		return err
	})
	if err != nil {
		r.eng.log.Error("updating entity row",
			map[string]interface{}{"entity": r.schema.Sheet, "op": "update", "id": id}, err)
		return nil, errors.Wrapf(err, "updating %s row", r.schema.Sheet)
	}
	r.invalidate()
	return merged, nil
}

// delete blanks the row in place. Removing rows would shift positions
// under every other snapshot.
func (r *repository) delete(ctx context.Context, id string) error {
	_, pos, err := r.getByID(ctx, id)
	if err != nil {
		return err
	}
	if err = r.verifyPosition(ctx, pos, id); err != nil {
		return err
	}
	err = r.eng.retry.run(ctx, r.schema.Sheet+".delete", func() error {
		_, err := r.eng.client.UpdateRange(ctx, r.schema.rowRange(pos), [][]interface{}{r.schema.blankRow()})
		return err
	})
	if err != nil {
		r.eng.log.Error("blanking entity row",
			map[string]interface{}{"entity": r.schema.Sheet, "op": "delete", "id": id}, err)
		return errors.Wrapf(err, "deleting %s row", r.schema.Sheet)
	}
	r.invalidate()
	return nil
}

// ensureFreshID guards the single-writer assumption behind generated IDs:
// a freshly generated ID already present on the sheet means another writer
// advanced it past our counters, and every positional write from here on
// could land on the wrong row. That state is not recoverable in-process.
func (r *repository) ensureFreshID(ctx context.Context, id string) error {
	_, _, err := r.getByID(ctx, id)
	if err == nil {
		return core.NewShutdownError(fmt.Sprintf("generated %s ID %s already exists", r.schema.Sheet, id))
	}
	if err != errNoSuchRow {
		return err
	}
	return nil
}

// verifyPosition re-reads the ID cell at the target position right before
// a positional write. Positional addressing into a live external table is
// only safe while the row order matches the snapshot; a concurrent
// external edit that shifted rows turns a silent overwrite into
// ErrStaleSnapshot instead.
func (r *repository) verifyPosition(ctx context.Context, pos int, id string) error {
	var rows [][]interface{}
	err := r.eng.retry.run(ctx, r.schema.Sheet+".verify", func() error {
		var err error
		rows, err = r.eng.client.ReadRange(ctx, r.schema.idCellRange(pos))
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "verifying %s row position", r.schema.Sheet)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return ErrStaleSnapshot
	}
	if current, ok := rows[0][0].(string); !ok || current != id {
		return ErrStaleSnapshot
	}
	return nil
}

// verifyPositions is the batched counterpart of verifyPosition: one read
// of the ID column checks every target position of a reconciliation's
// update set before the batch flush.
func (r *repository) verifyPositions(ctx context.Context, targets map[int]string) error {
	var rows [][]interface{}
	err := r.eng.retry.run(ctx, r.schema.Sheet+".verify", func() error {
		var err error
		rows, err = r.eng.client.ReadRange(ctx, r.schema.idColumnRange())
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "verifying %s row positions", r.schema.Sheet)
	}
	for pos, id := range targets {
		if pos >= len(rows) || len(rows[pos]) == 0 {
			return errors.Wrapf(ErrStaleSnapshot, "no row for %s %s", r.schema.Sheet, id)
		}
		if current, ok := rows[pos][0].(string); !ok || current != id {
			return errors.Wrapf(ErrStaleSnapshot, "%s %s moved", r.schema.Sheet, id)
		}
	}
	return nil
}

// invalidate drops the snapshot and every derived index of this entity
// type; the next read repopulates from the remote store.
func (r *repository) invalidate() {
	r.eng.cache.Clear(r.schema.Sheet)
}
