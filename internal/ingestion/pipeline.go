package ingestion

import (
	"context"
	"errors"
	"time"

	computedomain "github.com/smallbiznis/overflight/internal/compute/domain"
	flightdomain "github.com/smallbiznis/overflight/internal/flight/domain"
	invoicedomain "github.com/smallbiznis/overflight/internal/invoice/domain"
	"github.com/smallbiznis/overflight/internal/observability/metrics"
	queuedomain "github.com/smallbiznis/overflight/internal/queue/domain"
	"go.uber.org/zap"
)

// Per-entry outcomes. Only the first two acknowledge the queue entry; the
// error outcomes leave it in place for the next drain cycle.
const (
	OutcomeSuccess      = "success"
	OutcomeNoCrossings  = "no_crossings"
	OutcomeFetchError   = "fetch_error"
	OutcomeComputeError = "compute_error"
	OutcomeWriteError   = "write_error"
)

// Config bounds one pipeline instance.
type Config struct {
	BatchSize    int
	Workers      int
	PollInterval time.Duration
	// MaxRecords stops RunForever after roughly this many entries have been
	// attempted. Zero means run until the context is cancelled.
	MaxRecords  int64
	ServiceName string
}

// BatchReport summarizes one drain cycle.
type BatchReport struct {
	Attempted int
	Succeeded int
	Failed    int
	Outcomes  map[string]int
}

type entryResult struct {
	envelope TaskEnvelope
	outcome  string
	err      error
}

// Pipeline is the queue-drain loop: fetch a batch, fan it out to a fixed
// worker pool, collect results, and acknowledge only the entries that
// finished. A crash between compute and acknowledge redelivers the entry,
// so downstream writes must tolerate replays.
type Pipeline struct {
	cfg    Config
	log    *zap.Logger
	queue  queuedomain.Repository
	source flightdomain.Source
	engine computedomain.Engine
	writer invoicedomain.Writer
}

func NewPipeline(cfg Config, log *zap.Logger, queue queuedomain.Repository, source flightdomain.Source, engine computedomain.Engine, writer invoicedomain.Writer) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "overflight"
	}
	return &Pipeline{
		cfg:    cfg,
		log:    log.Named("ingestion"),
		queue:  queue,
		source: source,
		engine: engine,
		writer: writer,
	}
}

// DrainOnce runs a single fetch/process/acknowledge cycle and reports what
// happened. An empty queue returns a zero report and no error.
func (p *Pipeline) DrainOnce(ctx context.Context) (BatchReport, error) {
	report := BatchReport{Outcomes: make(map[string]int)}

	if depth, err := p.queue.Count(ctx); err == nil {
		metrics.IngestionMetrics().SetQueueDepth(depth)
	}

	entries, err := p.queue.FetchBatch(ctx, p.cfg.BatchSize)
	if err != nil {
		return report, err
	}
	if len(entries) == 0 {
		return report, nil
	}

	started := time.Now()
	report.Attempted = len(entries)

	tasks := make(chan TaskEnvelope)
	results := make(chan entryResult, len(entries))

	workers := p.cfg.Workers
	if workers > len(entries) {
		workers = len(entries)
	}
	for w := 0; w < workers; w++ {
		go func() {
			for envelope := range tasks {
				outcome, err := p.processOne(ctx, envelope)
				results <- entryResult{envelope: envelope, outcome: outcome, err: err}
			}
		}()
	}

	for _, entry := range entries {
		tasks <- envelopeFrom(entry, p.cfg.ServiceName)
	}
	close(tasks)

	var done []int64
	var failures []error
	for range entries {
		res := <-results
		report.Outcomes[res.outcome]++
		metrics.IngestionMetrics().IncEntry(res.outcome)

		switch res.outcome {
		case OutcomeSuccess, OutcomeNoCrossings:
			report.Succeeded++
			done = append(done, res.envelope.ReceiptHandle)
		default:
			report.Failed++
			if res.err != nil {
				failures = append(failures, res.err)
			}
			p.log.Warn("entry left for retry",
				zap.String("message_id", res.envelope.MessageID),
				zap.Int64("flight_id", res.envelope.Body.FlightID),
				zap.String("outcome", res.outcome),
				zap.Error(res.err),
			)
		}
	}

	if len(done) > 0 {
		if err := p.queue.DeleteByIDs(ctx, done); err != nil {
			// The entries will be redelivered and replayed; the writer's
			// persistence is idempotent enough to tolerate that.
			failures = append(failures, err)
		}
	}

	metrics.IngestionMetrics().IncBatch()
	metrics.IngestionMetrics().ObserveBatchDuration(time.Since(started))
	p.log.Info("drain cycle finished",
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", time.Since(started)),
	)

	return report, errors.Join(failures...)
}

// RunForever drains until ctx is cancelled or MaxRecords entries have been
// attempted. Cycle errors are logged and the loop keeps going; only
// cancellation stops it.
func (p *Pipeline) RunForever(ctx context.Context) error {
	var attempted int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		report, err := p.DrainOnce(ctx)
		if err != nil {
			p.log.Error("drain cycle failed", zap.Error(err))
		}
		attempted += int64(report.Attempted)

		if p.cfg.MaxRecords > 0 && attempted >= p.cfg.MaxRecords {
			p.log.Info("record budget reached, stopping",
				zap.Int64("attempted", attempted),
				zap.Int64("max_records", p.cfg.MaxRecords),
			)
			return nil
		}

		if report.Attempted == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.PollInterval):
			}
		}
	}
}

// processOne walks one envelope through fetch, compute, and persist. The
// returned outcome decides whether the queue entry is acknowledged.
func (p *Pipeline) processOne(ctx context.Context, envelope TaskEnvelope) (string, error) {
	record := envelope.Body.FlightData
	if record == nil {
		fetched, err := p.source.Fetch(ctx, envelope.Body.FlightID)
		if err != nil {
			return OutcomeFetchError, err
		}
		record = fetched
	}

	result, err := p.engine.Process(ctx, record)
	if err != nil {
		return OutcomeComputeError, err
	}

	if !result.Success {
		if computedomain.IsEmptyOutputFailure(result) {
			return OutcomeNoCrossings, nil
		}
		// Hard compute failure. Persist whatever structured errors the
		// engine reported so operators can triage, but keep the entry
		// queued for retry.
		if len(result.Errors) > 0 {
			if _, perr := p.writer.Persist(ctx, envelope.Body.FlightID, nil, result.Errors); perr != nil {
				p.log.Warn("compute error records not persisted",
					zap.Int64("flight_id", envelope.Body.FlightID),
					zap.Error(perr),
				)
			}
		}
		return OutcomeComputeError, errors.Join(computedomain.ErrEngineFailure, errors.New(result.ErrorMessage))
	}

	if _, err := p.writer.Persist(ctx, envelope.Body.FlightID, result.OutputEntries, result.Errors); err != nil {
		return OutcomeWriteError, err
	}
	return OutcomeSuccess, nil
}
