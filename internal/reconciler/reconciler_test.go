package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expo-registration/internal/models"
	"expo-registration/internal/sheets"
)

// fakeStore keeps records in memory with real dirty-flag semantics.
type fakeStore struct {
	records []models.Registration
}

func (s *fakeStore) ListDirty(ctx context.Context) ([]models.Registration, error) {
	var out []models.Registration
	for _, r := range s.records {
		if r.NeedsSync {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeStore) ClearDirty(ctx context.Context, regIDs []string, asOf time.Time) error {
	for _, id := range regIDs {
		for i := range s.records {
			if s.records[i].RegistrationID == id && !s.records[i].UpdatedAt.After(asOf) {
				s.records[i].NeedsSync = false
			}
		}
	}
	return nil
}

func (s *fakeStore) ListAll(ctx context.Context) ([]models.Registration, error) {
	out := make([]models.Registration, len(s.records))
	copy(out, s.records)
	return out, nil
}

// fakeMirror is an in-memory sheet: rows[0] is sheet row 2.
type fakeMirror struct {
	rows [][]interface{}

	readCalls   int
	appendSizes []int
	updateSizes []int
	ops         []string // interleaving of "update"/"append" calls

	failAppendOnCall int // 1-based; 0 disables
	failUpdateOnCall int
}

func (m *fakeMirror) ReadColumn(ctx context.Context, a1 string) ([]string, error) {
	m.readCalls++
	out := make([]string, len(m.rows))
	for i, row := range m.rows {
		if len(row) > 0 {
			out[i] = fmt.Sprint(row[0])
		}
	}
	return out, nil
}

func (m *fakeMirror) AppendRows(ctx context.Context, rows [][]interface{}) error {
	m.appendSizes = append(m.appendSizes, len(rows))
	m.ops = append(m.ops, "append")
	if m.failAppendOnCall > 0 && len(m.appendSizes) == m.failAppendOnCall {
		return errors.New("append quota exceeded")
	}
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *fakeMirror) BatchUpdateRows(ctx context.Context, updates []sheets.RowUpdate) error {
	m.updateSizes = append(m.updateSizes, len(updates))
	m.ops = append(m.ops, "update")
	if m.failUpdateOnCall > 0 && len(m.updateSizes) == m.failUpdateOnCall {
		return errors.New("update quota exceeded")
	}
	for _, u := range updates {
		idx := u.Row - sheets.DataStartRow
		if idx < 0 || idx >= len(m.rows) {
			return fmt.Errorf("row %d out of range", u.Row)
		}
		m.rows[idx] = u.Values
	}
	return nil
}

func (m *fakeMirror) ClearRange(ctx context.Context, a1 string) error {
	m.rows = nil
	return nil
}

func (m *fakeMirror) mirrorCalls() int {
	return m.readCalls + len(m.appendSizes) + len(m.updateSizes)
}

func dirtyReg(regID, phone string, created time.Time) models.Registration {
	return models.Registration{
		RegistrationID: regID,
		Phone:          phone,
		Name:           "Person " + regID,
		NeedsSync:      true,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func newReconciler(s *fakeStore, m *fakeMirror, chunkSize int) *Reconciler {
	return New(s, m, chunkSize, zerolog.Nop())
}

func TestRunEmptyDirtySetTouchesNothing(t *testing.T) {
	m := &fakeMirror{}
	rec := newReconciler(&fakeStore{}, m, 500)

	res, err := rec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Zero(t, m.mirrorCalls(), "empty dirty set must not consume mirror quota")
}

func TestRunAppendsNewRecordThenIdempotent(t *testing.T) {
	base := time.Now()
	s := &fakeStore{records: []models.Registration{dirtyReg("R1", "9000000001", base)}}
	m := &fakeMirror{}
	rec := newReconciler(s, m, 500)

	res, err := rec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Appended: 1}, res)
	require.Len(t, m.rows, 1)
	assert.Equal(t, "R1", m.rows[0][0])

	dirty, _ := s.ListDirty(context.Background())
	assert.Empty(t, dirty)

	// Immediate re-run: all flags cleared, zero mirror calls.
	m2calls := m.mirrorCalls()
	res, err = rec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Equal(t, m2calls, m.mirrorCalls())
}

func TestRunPartitionsAppendVsUpdate(t *testing.T) {
	base := time.Now()
	s := &fakeStore{records: []models.Registration{
		dirtyReg("R1", "9000000001", base),
		dirtyReg("R2", "9000000002", base.Add(time.Second)),
	}}
	// R1 already mirrored at sheet row 2.
	m := &fakeMirror{rows: [][]interface{}{{"R1", "stale name"}}}
	rec := newReconciler(s, m, 500)

	res, err := rec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Appended: 1, Updated: 1}, res)

	require.Len(t, m.rows, 2, "existing record must be updated in place, never appended again")
	assert.Equal(t, "R1", m.rows[0][0])
	assert.Equal(t, "Person R1", m.rows[0][1], "stale row rewritten")
	assert.Equal(t, "R2", m.rows[1][0])
}

func TestRunExecutesUpdatesBeforeAppends(t *testing.T) {
	base := time.Now()
	s := &fakeStore{records: []models.Registration{
		dirtyReg("NEW", "9000000001", base),
		dirtyReg("OLD", "9000000002", base.Add(time.Second)),
	}}
	m := &fakeMirror{rows: [][]interface{}{{"OLD"}}}
	rec := newReconciler(s, m, 500)

	_, err := rec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"update", "append"}, m.ops)
}

func TestRunChunkBoundary(t *testing.T) {
	base := time.Now()
	s := &fakeStore{}
	for i := 0; i < 1001; i++ {
		s.records = append(s.records,
			dirtyReg(fmt.Sprintf("R%04d", i), fmt.Sprintf("9%09d", i), base.Add(time.Duration(i)*time.Millisecond)))
	}
	m := &fakeMirror{}
	rec := newReconciler(s, m, 500)

	res, err := rec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1001, res.Appended)
	assert.Equal(t, []int{500, 500, 1}, m.appendSizes)

	dirty, _ := s.ListDirty(context.Background())
	assert.Empty(t, dirty)
}

func TestRunFailureLeavesAllFlagsSet(t *testing.T) {
	base := time.Now()
	s := &fakeStore{}
	for i := 0; i < 1001; i++ {
		s.records = append(s.records,
			dirtyReg(fmt.Sprintf("R%04d", i), fmt.Sprintf("9%09d", i), base.Add(time.Duration(i)*time.Millisecond)))
	}
	m := &fakeMirror{failAppendOnCall: 2}
	rec := newReconciler(s, m, 500)

	_, err := rec.Run(context.Background())
	require.Error(t, err)

	// Flag clear never ran: the next run re-reads the full original set.
	dirty, _ := s.ListDirty(context.Background())
	assert.Len(t, dirty, 1001)
}

func TestRunUpdateFailureAbortsBeforeAppends(t *testing.T) {
	base := time.Now()
	s := &fakeStore{records: []models.Registration{
		dirtyReg("NEW", "9000000001", base),
		dirtyReg("OLD", "9000000002", base.Add(time.Second)),
	}}
	m := &fakeMirror{rows: [][]interface{}{{"OLD"}}, failUpdateOnCall: 1}
	rec := newReconciler(s, m, 500)

	_, err := rec.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, m.appendSizes, "append phase must not start after an update failure")

	dirty, _ := s.ListDirty(context.Background())
	assert.Len(t, dirty, 2)
}

func TestRunDuplicateMirrorIDsLastSeenWins(t *testing.T) {
	base := time.Now()
	s := &fakeStore{records: []models.Registration{dirtyReg("R1", "9000000001", base)}}
	m := &fakeMirror{rows: [][]interface{}{{"R1", "first copy"}, {"R1", "second copy"}}}
	rec := newReconciler(s, m, 500)

	res, err := rec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Updated: 1}, res)
	assert.Equal(t, "first copy", m.rows[0][1], "earlier duplicate untouched")
	assert.Equal(t, "Person R1", m.rows[1][1], "last-seen row updated")
}

func TestRebuildRewritesEverything(t *testing.T) {
	base := time.Now()
	s := &fakeStore{records: []models.Registration{
		dirtyReg("R1", "9000000001", base),
		dirtyReg("R2", "9000000002", base.Add(time.Second)),
	}}
	s.records[0].NeedsSync = false // already synced, still exported
	m := &fakeMirror{rows: [][]interface{}{{"R1", "stale"}, {"GHOST", "deleted elsewhere"}}}
	rec := newReconciler(s, m, 500)

	n, err := rec.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Header plus both records, ghost row gone.
	require.Len(t, m.rows, 3)
	assert.Equal(t, "registration_id", m.rows[0][0])
	assert.Equal(t, "R1", m.rows[1][0])
	assert.Equal(t, "R2", m.rows[2][0])

	dirty, _ := s.ListDirty(context.Background())
	assert.Empty(t, dirty)
}

func TestChunk(t *testing.T) {
	assert.Nil(t, chunk([]int{}, 3))
	assert.Equal(t, [][]int{{1, 2}}, chunk([]int{1, 2}, 3))
	assert.Equal(t, [][]int{{1, 2, 3}}, chunk([]int{1, 2, 3}, 3))
	assert.Equal(t, [][]int{{1, 2, 3}, {4}}, chunk([]int{1, 2, 3, 4}, 3))
}
