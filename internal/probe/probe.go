package probe

import (
	"context"
	"fmt"

	"github.com/hamed0406/slotwatch/internal/domain"
)

// DefaultEndpoint is the Trusted Traveler Programs scheduler, asking for the
// two soonest open slots at a location.
const DefaultEndpoint = "https://ttp.cbp.dhs.gov/schedulerapi/slots?orderBy=soonest&limit=2&locationId={location}&minimum=1"

// LocationPlaceholder is replaced by the location id in endpoint templates.
const LocationPlaceholder = "{location}"

// Fetcher returns the open slots for one location, soonest first.
// An empty result is not an error.
type Fetcher interface {
	Fetch(ctx context.Context, loc domain.LocationID) ([]domain.Slot, error)
}

// FetchError reports a failed query for a single location.
//
// Op is one of "request", "status", "decode" or "timestamp".
type FetchError struct {
	Location domain.LocationID
	Op       string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch location %d: %s: %v", e.Location, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
