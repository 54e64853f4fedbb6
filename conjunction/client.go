package conjunction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// GroundCriteria selects ground instruments on the search service.
type GroundCriteria struct {
	Programs        []string `json:"programs,omitempty"`
	Platforms       []string `json:"platforms,omitempty"`
	InstrumentTypes []string `json:"instrument_types,omitempty"`
}

// SpaceCriteria selects satellite ephemeris sources on the search service.
type SpaceCriteria struct {
	Programs   []string `json:"programs,omitempty"`
	Hemisphere []string `json:"hemisphere,omitempty"`
}

// SearchRequest is one conjunction query: a time window, a maximum
// separation, and the ground and space sources to pair up.
type SearchRequest struct {
	Start    time.Time        `json:"start"`
	End      time.Time        `json:"end"`
	Distance float64          `json:"distance"` // km
	Ground   []GroundCriteria `json:"ground"`
	Space    []SpaceCriteria  `json:"space"`
}

// Validate checks the request before it goes on the wire.
func (r SearchRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Start, validation.Required),
		validation.Field(&r.End, validation.Required),
		validation.Field(&r.Distance, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&r.Ground, validation.Required),
		validation.Field(&r.Space, validation.Required),
	)
	if err != nil {
		return err
	}
	if !r.End.After(r.Start) {
		return fmt.Errorf("search end %s must be after start %s",
			r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	}
	return nil
}

// DataSource identifies one instrument or ephemeris source in a search
// result.
type DataSource struct {
	Program        string `json:"program"`
	Platform       string `json:"platform"`
	InstrumentType string `json:"instrument_type"`
}

// Event is one conjunction the search service found.
type Event struct {
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	MinDistanceKm float64    `json:"min_distance"`
	ClosestEpoch  time.Time  `json:"closest_epoch"`
	Ground        DataSource `json:"ground"`
	Space         DataSource `json:"space"`
}

type searchResponse struct {
	Events []Event `json:"events"`
}

// Client queries a hosted conjunction search service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a search client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "conjunction_client"),
	}
}

// Search submits the query and returns the matched events.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Event, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid conjunction search: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding conjunction search: %w", err)
	}

	url := c.baseURL + "/api/v1/conjunctions/search"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building conjunction search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("searching conjunctions",
		"start", req.Start.Format(time.RFC3339),
		"end", req.End.Format(time.RFC3339),
		"distance_km", req.Distance,
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("conjunction search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("conjunction search returned %s: %s", resp.Status, snippet)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding conjunction search response: %w", err)
	}

	c.logger.Info("conjunction search complete", "events", len(out.Events))
	return out.Events, nil
}
