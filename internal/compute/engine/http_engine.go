// Package engine implements the compute engine HTTP client.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/smallbiznis/overflight/internal/compute/domain"
	flightdomain "github.com/smallbiznis/overflight/internal/flight/domain"
)

type httpEngine struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEngine builds an Engine talking to the external compute service.
func NewHTTPEngine(baseURL string) domain.Engine {
	return &httpEngine{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

func (e *httpEngine) Process(ctx context.Context, record *flightdomain.FlightRecord) (*domain.Result, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", domain.ErrEngineFailure, err)
	}

	url := fmt.Sprintf("%s/process", e.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEngineFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEngineFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrEngineFailure, resp.StatusCode)
	}

	var result domain.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrEngineFailure, err)
	}
	return &result, nil
}
