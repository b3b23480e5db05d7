// Package source implements the upstream flight telemetry client.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/smallbiznis/overflight/internal/flight/domain"
)

type httpSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource builds a Source talking to the upstream telemetry service.
func NewHTTPSource(baseURL string) domain.Source {
	return &httpSource{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *httpSource) Fetch(ctx context.Context, flightID int64) (*domain.FlightRecord, error) {
	url := fmt.Sprintf("%s/flights/%d", s.baseURL, flightID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceFailure, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrFlightNotFound
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d", domain.ErrSourceFailure, resp.StatusCode)
	}

	var record domain.FlightRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrSourceFailure, err)
	}
	if record.FlightID == 0 {
		record.FlightID = flightID
	}
	return &record, nil
}
