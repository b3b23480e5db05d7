// Package domain describes the external geometry/fee computation contract.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	flightdomain "github.com/smallbiznis/overflight/internal/flight/domain"
	"gorm.io/datatypes"
)

// FeeBreakdown is the per-crossing fee detail computed by the engine.
type FeeBreakdown struct {
	Fee                    float64 `json:"fee"`
	OtherFees              float64 `json:"other_fees"`
	Currency               string  `json:"currency"`
	FxRate                 float64 `json:"fx_rate"`
	TotalAmountUSD         float64 `json:"total_amount_usd"`
	CalculationDescription string  `json:"calculation_description"`
}

// CrossingEntry is one billable FIR crossing for a flight.
type CrossingEntry struct {
	FIRName          string            `json:"fir_name"`
	Country          string            `json:"country"`
	EntryTime        time.Time         `json:"entry_time"`
	ExitTime         time.Time         `json:"exit_time"`
	OperatorName     string            `json:"operator_name"`
	IBAOperatorID    string            `json:"iba_operator_id,omitempty"`
	JetNetOperatorID string            `json:"jetnet_operator_id,omitempty"`
	Fees             FeeBreakdown      `json:"fee_breakdown"`
	Extra            datatypes.JSONMap `json:"extra,omitempty"`
}

// ErrorEntry is a structured data-quality problem the engine reports
// alongside or instead of crossings.
type ErrorEntry struct {
	FIRName   string `json:"fir_name,omitempty"`
	Country   string `json:"country,omitempty"`
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

// Result is the engine's verdict for one flight.
type Result struct {
	Success       bool            `json:"success"`
	OutputEntries []CrossingEntry `json:"output_entries"`
	Errors        []ErrorEntry    `json:"errors"`
	ErrorMessage  string          `json:"error_message,omitempty"`
}

// Engine computes FIR crossings and fees for a flight record.
type Engine interface {
	Process(ctx context.Context, record *flightdomain.FlightRecord) (*Result, error)
}

var ErrEngineFailure = errors.New("compute_engine_failure")

// IsEmptyOutputFailure reports whether a failed result actually means the
// flight crossed no billable region. The engine reports an empty crossing
// set as a failure with this message, which the pipeline treats as success
// with zero invoices.
func IsEmptyOutputFailure(res *Result) bool {
	if res == nil || res.Success {
		return false
	}
	return strings.Contains(strings.ToLower(res.ErrorMessage), "no output entries")
}
