package asilib

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultAltKm is the auroral emission altitude used for geographic mapping
// when a request does not name one.
const DefaultAltKm = 110

// LoadRequest selects image data for one site. Exactly one of Time and
// TimeRange must be set: Time loads the single frame nearest that instant,
// TimeRange loads the ordered sequence inside the interval.
type LoadRequest struct {
	Network  Network
	Location string // four-letter site code, case-insensitive

	Time      time.Time
	TimeRange TimeRange

	AltKm      float64 // mapping altitude; DefaultAltKm when zero
	Redownload bool    // fetch files even when they exist locally
}

// Validate checks the request. Setting both Time and TimeRange, or neither,
// fails with ErrUsage.
func (r LoadRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Network, validation.Required, validation.By(validNetwork)),
		validation.Field(&r.Location, validation.Required, validation.Length(4, 4)),
	); err != nil {
		return err
	}

	hasTime := !r.Time.IsZero()
	hasRange := !r.TimeRange.IsZero()
	if hasTime == hasRange {
		return ErrUsage
	}
	if hasRange {
		return r.TimeRange.Validate()
	}
	return nil
}

// Site returns the upper-case site code.
func (r LoadRequest) Site() string {
	return strings.ToUpper(r.Location)
}

// Altitude returns the mapping altitude, applying the default.
func (r LoadRequest) Altitude() float64 {
	if r.AltKm == 0 {
		return DefaultAltKm
	}
	return r.AltKm
}

func validNetwork(value interface{}) error {
	n, _ := value.(Network)
	if !n.Valid() {
		return fmt.Errorf("unknown network %q (have %v)", string(n), Networks())
	}
	return nil
}
