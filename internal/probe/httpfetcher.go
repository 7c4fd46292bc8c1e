package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/slotwatch/internal/domain"
)

// TimestampLayout is the format of startTimestamp in API responses.
const TimestampLayout = "2006-01-02T15:04"

const maxBody = 1 << 20

// apiSlot mirrors one element of the scheduler response. Only
// StartTimestamp is required.
type apiSlot struct {
	LocationID     int    `json:"locationId"`
	StartTimestamp string `json:"startTimestamp"`
	EndTimestamp   string `json:"endTimestamp"`
	Active         bool   `json:"active"`
	Duration       int    `json:"duration"`
	RemoteInd      bool   `json:"remoteInd"`
}

type HTTPFetcher struct {
	Client    *http.Client
	Endpoint  string
	UserAgent string
	// Location is used to interpret the zone-less timestamps.
	Location *time.Location
	Logger   *zap.Logger
}

func NewHTTPFetcher(endpoint string, timeout time.Duration, loc *time.Location) *HTTPFetcher {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if loc == nil {
		loc = time.Local
	}
	return &HTTPFetcher{
		Client:    &http.Client{Timeout: timeout},
		Endpoint:  endpoint,
		UserAgent: "slotwatch/1.0",
		Location:  loc,
		Logger:    zap.NewNop(),
	}
}

// URL expands the endpoint template for loc.
func (h *HTTPFetcher) URL(loc domain.LocationID) string {
	id := strconv.Itoa(int(loc))
	if strings.Contains(h.Endpoint, LocationPlaceholder) {
		return strings.ReplaceAll(h.Endpoint, LocationPlaceholder, id)
	}
	return h.Endpoint + id
}

func (h *HTTPFetcher) Fetch(ctx context.Context, loc domain.LocationID) ([]domain.Slot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL(loc), nil)
	if err != nil {
		return nil, &FetchError{Location: loc, Op: "request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, &FetchError{Location: loc, Op: "request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, &FetchError{Location: loc, Op: "status", Err: errors.New(resp.Status)}
	}

	var raw []apiSlot
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&raw); err != nil {
		return nil, &FetchError{Location: loc, Op: "decode", Err: err}
	}
	if len(raw) == 0 {
		return nil, nil
	}

	// elements with a bad timestamp are dropped; the rest still count
	out := make([]domain.Slot, 0, len(raw))
	var bad error
	for _, s := range raw {
		at, err := time.ParseInLocation(TimestampLayout, s.StartTimestamp, h.Location)
		if err != nil {
			bad = fmt.Errorf("startTimestamp %q: %w", s.StartTimestamp, err)
			h.logger().Warn("slot_timestamp_invalid", zap.Int("location_id", int(loc)), zap.Error(bad))
			continue
		}
		out = append(out, domain.Slot{Location: loc, Start: at})
	}
	if len(out) == 0 {
		return nil, &FetchError{Location: loc, Op: "timestamp", Err: bad}
	}
	slices.SortStableFunc(out, func(a, b domain.Slot) int { return a.Start.Compare(b.Start) })
	return out, nil
}

func (h *HTTPFetcher) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
