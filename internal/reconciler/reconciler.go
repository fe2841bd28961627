// Package reconciler drains the Record Store's dirty set into the spreadsheet
// mirror. One pass: read dirty records, read the mirror's identifier column,
// classify each record as append or update, execute chunked writes, then clear
// the dirty flags. No intermediate state is persisted, so a crashed run is
// simply replayed by the next one.
package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"expo-registration/internal/models"
	"expo-registration/internal/sheets"
)

// RecordStore is the slice of the Record Store the reconciler consumes.
type RecordStore interface {
	ListDirty(ctx context.Context) ([]models.Registration, error)
	ClearDirty(ctx context.Context, regIDs []string, asOf time.Time) error
	ListAll(ctx context.Context) ([]models.Registration, error)
}

// Mirror is the tabular store being synchronized. *sheets.Client satisfies it.
type Mirror interface {
	ReadColumn(ctx context.Context, a1 string) ([]string, error)
	AppendRows(ctx context.Context, rows [][]interface{}) error
	BatchUpdateRows(ctx context.Context, updates []sheets.RowUpdate) error
	ClearRange(ctx context.Context, a1 string) error
}

type Reconciler struct {
	store     RecordStore
	mirror    Mirror
	chunkSize int
	log       zerolog.Logger

	// Serializes Run and Rebuild. Two overlapping runs would read the same
	// dirty set and double-append; the ticker loop and the manual admin
	// trigger both go through this lock.
	mu sync.Mutex
}

type Result struct {
	Appended int `json:"appended"`
	Updated  int `json:"updated"`
}

func New(store RecordStore, mirror Mirror, chunkSize int, log zerolog.Logger) *Reconciler {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	return &Reconciler{
		store:     store,
		mirror:    mirror,
		chunkSize: chunkSize,
		log:       log.With().Str("component", "reconciler").Logger(),
	}
}

// Run performs one incremental sync pass. On any write failure the run aborts
// with every dirty flag still set, so the next run retries the same set
// (at-least-once). A crash between a successful append and the flag clear can
// duplicate that append on the next run; accepted trade-off, the full Rebuild
// is the recovery path.
func (r *Reconciler) Run(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	asOf := time.Now()

	dirty, err := r.store.ListDirty(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list dirty: %w", err)
	}
	if len(dirty) == 0 {
		// Nothing to do; don't spend mirror quota.
		return Result{}, nil
	}

	index, err := r.readJoinMap(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read mirror index: %w", err)
	}

	var appends [][]interface{}
	var updates []sheets.RowUpdate
	ids := make([]string, 0, len(dirty))
	for _, reg := range dirty {
		ids = append(ids, reg.RegistrationID)
		row := sheets.FormatRow(reg)
		if pos, ok := index[reg.RegistrationID]; ok {
			updates = append(updates, sheets.RowUpdate{Row: pos, Values: row})
		} else {
			appends = append(appends, row)
		}
	}

	// Updates before appends, per convention: the two batches target
	// disjoint identifiers, but appends growing the sheet mid-run must not
	// precede positional writes computed from the pre-run index.
	for i, c := range chunk(updates, r.chunkSize) {
		if err := r.mirror.BatchUpdateRows(ctx, c); err != nil {
			r.log.Error().Err(err).Int("chunk", i).Int("rows", len(c)).
				Str("first_id", fmt.Sprint(c[0].Values[0])).
				Msg("update chunk failed, dirty flags untouched")
			return Result{}, fmt.Errorf("update chunk %d (%d rows): %w", i, len(c), err)
		}
	}
	for i, c := range chunk(appends, r.chunkSize) {
		if err := r.mirror.AppendRows(ctx, c); err != nil {
			r.log.Error().Err(err).Int("chunk", i).Int("rows", len(c)).
				Str("first_id", fmt.Sprint(c[0][0])).
				Msg("append chunk failed, dirty flags untouched")
			return Result{}, fmt.Errorf("append chunk %d (%d rows): %w", i, len(c), err)
		}
	}

	// Every chunk landed; clear the whole originally-fetched set. Records
	// mutated after asOf keep their flag (store-side guard).
	if err := r.store.ClearDirty(ctx, ids, asOf); err != nil {
		return Result{}, fmt.Errorf("clear dirty flags: %w", err)
	}

	res := Result{Appended: len(appends), Updated: len(updates)}
	r.log.Info().Int("appended", res.Appended).Int("updated", res.Updated).Msg("sync complete")
	return res, nil
}

// Rebuild wipes the mirror content region and rewrites the header plus every
// record from a fresh full read. Used by the explicit export / force-resync
// trigger; also the recovery path for duplicated appends.
func (r *Reconciler) Rebuild(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	asOf := time.Now()

	regs, err := r.store.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list all: %w", err)
	}

	if err := r.mirror.ClearRange(ctx, sheets.ContentRange()); err != nil {
		return 0, fmt.Errorf("clear mirror: %w", err)
	}

	rows := make([][]interface{}, 0, len(regs)+1)
	rows = append(rows, sheets.HeaderRow())
	ids := make([]string, 0, len(regs))
	for _, reg := range regs {
		rows = append(rows, sheets.FormatRow(reg))
		ids = append(ids, reg.RegistrationID)
	}
	for i, c := range chunk(rows, r.chunkSize) {
		if err := r.mirror.AppendRows(ctx, c); err != nil {
			return 0, fmt.Errorf("rebuild chunk %d (%d rows): %w", i, len(c), err)
		}
	}

	if err := r.store.ClearDirty(ctx, ids, asOf); err != nil {
		return 0, fmt.Errorf("clear dirty flags: %w", err)
	}

	r.log.Info().Int("rows", len(regs)).Msg("full rebuild complete")
	return len(regs), nil
}

// readJoinMap maps registration id to sheet row position. Duplicate ids
// should not occur, but if the mirror carries them the later row wins and the
// run proceeds.
func (r *Reconciler) readJoinMap(ctx context.Context) (map[string]int, error) {
	col, err := r.mirror.ReadColumn(ctx, sheets.IDColumnRange())
	if err != nil {
		return nil, err
	}
	m := make(map[string]int, len(col))
	for i, id := range col {
		if id == "" {
			continue
		}
		m[id] = sheets.DataStartRow + i
	}
	return m, nil
}

func chunk[T any](in []T, size int) [][]T {
	var out [][]T
	for len(in) > size {
		out = append(out, in[:size])
		in = in[size:]
	}
	if len(in) > 0 {
		out = append(out, in)
	}
	return out
}
