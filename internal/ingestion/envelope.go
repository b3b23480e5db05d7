// Package ingestion drains the flight backlog through the compute engine
// and the invoice writer with bounded concurrency.
package ingestion

import (
	"time"

	"github.com/google/uuid"
	flightdomain "github.com/smallbiznis/overflight/internal/flight/domain"
	queuedomain "github.com/smallbiznis/overflight/internal/queue/domain"
)

// TaskBody is the message payload handed to a worker. FlightData is an
// optional inline record; when present the worker skips the source fetch.
type TaskBody struct {
	FlightID   int64                      `json:"flight_id"`
	Service    string                     `json:"service"`
	Timestamp  time.Time                  `json:"timestamp"`
	FlightData *flightdomain.FlightRecord `json:"flight_data,omitempty"`
}

// TaskEnvelope wraps one queue entry for the worker pool. ReceiptHandle is
// the backlog row id; deleting by it acknowledges the entry.
type TaskEnvelope struct {
	MessageID     string
	Body          TaskBody
	ReceiptHandle int64
}

func envelopeFrom(entry queuedomain.FlightQueueEntry, service string) TaskEnvelope {
	return TaskEnvelope{
		MessageID: uuid.NewString(),
		Body: TaskBody{
			FlightID:  entry.FlightID,
			Service:   service,
			Timestamp: entry.EnqueuedAt,
		},
		ReceiptHandle: entry.ID,
	}
}
