// Package domain describes flight records fetched from the upstream
// telemetry source.
package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
)

// FlightRecord carries the fields the pipeline consumes plus a passthrough
// map for everything else the upstream source reports. The source owns the
// schema of Extra; nothing in this module depends on its contents.
type FlightRecord struct {
	FlightID      int64             `json:"flight_id"`
	Callsign      string            `json:"callsign"`
	Registration  string            `json:"registration"`
	OperatorName  string            `json:"operator_name"`
	DepartureICAO string            `json:"departure_icao"`
	ArrivalICAO   string            `json:"arrival_icao"`
	DepartureTime time.Time         `json:"departure_time"`
	ArrivalTime   time.Time         `json:"arrival_time"`
	Extra         datatypes.JSONMap `json:"extra,omitempty"`
}

// Source resolves a flight id to its structured record.
type Source interface {
	Fetch(ctx context.Context, flightID int64) (*FlightRecord, error)
}

var (
	ErrFlightNotFound = errors.New("flight_not_found")
	ErrSourceFailure  = errors.New("flight_source_failure")
)
