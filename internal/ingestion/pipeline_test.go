package ingestion

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	computedomain "github.com/smallbiznis/overflight/internal/compute/domain"
	flightdomain "github.com/smallbiznis/overflight/internal/flight/domain"
	invoicedomain "github.com/smallbiznis/overflight/internal/invoice/domain"
	queuedomain "github.com/smallbiznis/overflight/internal/queue/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeQueue is an in-memory backlog that honors the oldest-first contract.
type fakeQueue struct {
	mu      sync.Mutex
	entries []queuedomain.FlightQueueEntry
	nextID  int64
}

func newFakeQueue(flightIDs ...int64) *fakeQueue {
	q := &fakeQueue{}
	base := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range flightIDs {
		q.nextID++
		q.entries = append(q.entries, queuedomain.FlightQueueEntry{
			ID:         q.nextID,
			FlightID:   id,
			EnqueuedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	return q
}

func (q *fakeQueue) FetchBatch(ctx context.Context, limit int) ([]queuedomain.FlightQueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := limit
	if n > len(q.entries) {
		n = len(q.entries)
	}
	batch := make([]queuedomain.FlightQueueEntry, n)
	copy(batch, q.entries[:n])
	return batch, nil
}

func (q *fakeQueue) DeleteByIDs(ctx context.Context, ids []int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := q.entries[:0]
	for _, e := range q.entries {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	q.entries = kept
	return nil
}

func (q *fakeQueue) Enqueue(ctx context.Context, flightID int64, enqueuedAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	q.entries = append(q.entries, queuedomain.FlightQueueEntry{ID: q.nextID, FlightID: flightID, EnqueuedAt: enqueuedAt})
	return nil
}

func (q *fakeQueue) Count(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.entries)), nil
}

func (q *fakeQueue) remainingFlightIDs() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]int64, 0, len(q.entries))
	for _, e := range q.entries {
		ids = append(ids, e.FlightID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// fakeSource serves canned records and fails for listed flight ids.
type fakeSource struct {
	mu      sync.Mutex
	failIDs map[int64]bool
	fetched []int64
}

func (s *fakeSource) Fetch(ctx context.Context, flightID int64) (*flightdomain.FlightRecord, error) {
	s.mu.Lock()
	s.fetched = append(s.fetched, flightID)
	s.mu.Unlock()
	if s.failIDs[flightID] {
		return nil, flightdomain.ErrSourceFailure
	}
	return &flightdomain.FlightRecord{FlightID: flightID, OperatorName: "Test Air"}, nil
}

// fakeEngine maps flight ids to canned results.
type fakeEngine struct {
	mu      sync.Mutex
	results map[int64]*computedomain.Result
	errIDs  map[int64]bool
	calls   int
}

func (e *fakeEngine) Process(ctx context.Context, record *flightdomain.FlightRecord) (*computedomain.Result, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.errIDs[record.FlightID] {
		return nil, computedomain.ErrEngineFailure
	}
	if res, ok := e.results[record.FlightID]; ok {
		return res, nil
	}
	return &computedomain.Result{
		Success: true,
		OutputEntries: []computedomain.CrossingEntry{
			{FIRName: "TEST FIR", Country: "Testland", OperatorName: record.OperatorName},
		},
	}, nil
}

// fakeWriter counts persisted entries and fails for listed flight ids.
type fakeWriter struct {
	mu           sync.Mutex
	failIDs      map[int64]bool
	persisted    map[int64]int
	errorEntries map[int64]int
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{persisted: make(map[int64]int), errorEntries: make(map[int64]int)}
}

func (w *fakeWriter) Persist(ctx context.Context, flightID int64, entries []computedomain.CrossingEntry, computeErrors []computedomain.ErrorEntry) (invoicedomain.PersistReport, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failIDs[flightID] {
		return invoicedomain.PersistReport{}, errors.New("database unavailable")
	}
	w.persisted[flightID] += len(entries)
	w.errorEntries[flightID] += len(computeErrors)
	return invoicedomain.PersistReport{InvoicesCreated: len(entries), ErrorInvoicesCreated: len(computeErrors)}, nil
}

func (w *fakeWriter) UpdateStatus(ctx context.Context, invoiceID snowflake.ID, to invoicedomain.InvoiceStatus) error {
	return nil
}

func newTestPipeline(cfg Config, queue queuedomain.Repository, source flightdomain.Source, engine computedomain.Engine, writer invoicedomain.Writer) *Pipeline {
	return NewPipeline(cfg, zap.NewNop(), queue, source, engine, writer)
}

func TestDrainOnce_BatchBounded(t *testing.T) {
	// 12 entries, batch size 10: the first cycle takes exactly 10.
	queue := newFakeQueue(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
	writer := newFakeWriter()
	p := newTestPipeline(Config{BatchSize: 10, Workers: 5}, queue, &fakeSource{}, &fakeEngine{}, writer)

	report, err := p.DrainOnce(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 10, report.Attempted)
	assert.Equal(t, 10, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, []int64{11, 12}, queue.remainingFlightIDs())

	// Second cycle drains the remainder.
	report, err = p.DrainOnce(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	assert.Empty(t, queue.remainingFlightIDs())
}

func TestDrainOnce_EmptyQueue(t *testing.T) {
	p := newTestPipeline(Config{}, newFakeQueue(), &fakeSource{}, &fakeEngine{}, newFakeWriter())
	report, err := p.DrainOnce(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, report.Attempted)
}

func TestDrainOnce_FailedEntriesStayQueued(t *testing.T) {
	queue := newFakeQueue(1, 2, 3, 4)
	source := &fakeSource{failIDs: map[int64]bool{2: true}}
	engine := &fakeEngine{errIDs: map[int64]bool{3: true}}
	writer := newFakeWriter()
	writer.failIDs = map[int64]bool{4: true}
	p := newTestPipeline(Config{BatchSize: 10, Workers: 2}, queue, source, engine, writer)

	report, err := p.DrainOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 4, report.Attempted)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 3, report.Failed)
	assert.Equal(t, 1, report.Outcomes[OutcomeSuccess])
	assert.Equal(t, 1, report.Outcomes[OutcomeFetchError])
	assert.Equal(t, 1, report.Outcomes[OutcomeComputeError])
	assert.Equal(t, 1, report.Outcomes[OutcomeWriteError])

	// Only the successful entry was acknowledged.
	assert.Equal(t, []int64{2, 3, 4}, queue.remainingFlightIDs())
}

func TestDrainOnce_NoCrossingsIsSuccess(t *testing.T) {
	queue := newFakeQueue(7)
	engine := &fakeEngine{results: map[int64]*computedomain.Result{
		7: {Success: false, ErrorMessage: "No output entries generated"},
	}}
	writer := newFakeWriter()
	p := newTestPipeline(Config{}, queue, &fakeSource{}, engine, writer)

	report, err := p.DrainOnce(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Outcomes[OutcomeNoCrossings])
	assert.Empty(t, queue.remainingFlightIDs())
	assert.Zero(t, writer.persisted[7])
}

func TestDrainOnce_HardComputeFailurePersistsErrorsAndRetries(t *testing.T) {
	queue := newFakeQueue(9)
	engine := &fakeEngine{results: map[int64]*computedomain.Result{
		9: {
			Success:      false,
			ErrorMessage: "geometry validation failed",
			Errors: []computedomain.ErrorEntry{
				{FIRName: "TEST FIR", ErrorType: "DATA_QUALITY", Message: "track leaves coverage"},
			},
		},
	}}
	writer := newFakeWriter()
	p := newTestPipeline(Config{}, queue, &fakeSource{}, engine, writer)

	report, err := p.DrainOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, report.Outcomes[OutcomeComputeError])

	// The structured errors were persisted for triage, but the entry is
	// still queued for retry.
	assert.Equal(t, 1, writer.errorEntries[9])
	assert.Equal(t, []int64{9}, queue.remainingFlightIDs())
}

func TestRunForever_StopsAtMaxRecords(t *testing.T) {
	queue := newFakeQueue(1, 2, 3, 4, 5, 6)
	p := newTestPipeline(Config{BatchSize: 2, Workers: 2, PollInterval: time.Millisecond, MaxRecords: 4}, queue, &fakeSource{}, &fakeEngine{}, newFakeWriter())

	err := p.RunForever(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []int64{5, 6}, queue.remainingFlightIDs())
}

func TestRunForever_StopsOnCancel(t *testing.T) {
	queue := newFakeQueue()
	p := newTestPipeline(Config{PollInterval: 10 * time.Millisecond}, queue, &fakeSource{}, &fakeEngine{}, newFakeWriter())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.RunForever(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("RunForever did not stop after cancellation")
	}
}
