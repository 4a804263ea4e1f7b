// Package location implements the acquisition flow that resolves a single
// location for the memory-creation flow: a small state machine over
// geolocation permission, tiered attempts, and manual fallback.
package location

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"memorymap/application/ports"
	"memorymap/domain"
	pkgerrors "memorymap/pkg/errors"
)

// Status is the acquisition state: idle -> requesting -> granted | error |
// denied, with error -> manual -> granted and denied as the terminal
// "use map click instead" fallback.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRequesting Status = "requesting"
	StatusGranted    Status = "granted"
	StatusDenied     Status = "denied"
	StatusError      Status = "error"
	StatusManual     Status = "manual"
)

// Failure messages, selected synchronously for precondition failures and by
// error subtype after both attempts fail
const (
	msgNotSupported      = "geolocation is not supported in this environment"
	msgInsecure          = "location access requires a secure (HTTPS) connection"
	msgPermissionBlocked = "location access is blocked in the environment settings"
	msgPermissionDenied  = "location access was denied; check the device location settings or enter a location manually"
	msgUnavailable       = "location information is unavailable; check GPS settings or enter a location manually"
	msgTimeout           = "location request timed out; try again or enter a location manually"
	msgUnknown           = "an unknown error occurred while getting the location"
)

// Environment describes the capabilities of the host environment, checked
// synchronously before any acquisition attempt
type Environment struct {
	GeolocationSupported bool
	SecureTransport      bool
	Localhost            bool
	PermissionBlocked    bool
}

// Flow is the location acquisition state machine. A resolved location is
// only handed to the caller through Confirm or SubmitManual; acquisition
// success alone does not advance the creation flow.
type Flow struct {
	geolocator ports.Geolocator
	geocoder   ports.ReverseGeocoder
	env        Environment
	policy     Policy
	logger     *zap.Logger

	mu         sync.Mutex
	status     Status
	errMessage string
	resolved   *domain.Location
}

// NewFlow creates an idle acquisition flow
func NewFlow(
	geolocator ports.Geolocator,
	geocoder ports.ReverseGeocoder,
	env Environment,
	policy Policy,
	logger *zap.Logger,
) *Flow {
	return &Flow{
		geolocator: geolocator,
		geocoder:   geocoder,
		env:        env,
		policy:     policy,
		logger:     logger,
		status:     StatusIdle,
	}
}

// Status returns the current state
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// ErrorMessage returns the diagnostic for the error state
func (f *Flow) ErrorMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMessage
}

// Location returns the resolved location, if any
func (f *Flow) Location() (domain.Location, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolved == nil {
		return domain.Location{}, false
	}
	return *f.resolved, true
}

// Reset returns the flow to idle
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = StatusIdle
	f.errMessage = ""
	f.resolved = nil
}

// Request runs the acquisition: synchronous precondition checks, then the
// policy's attempts in order, then best-effort reverse-geocode enrichment.
// A request while one is already in flight is a no-op.
func (f *Flow) Request(ctx context.Context) Status {
	f.mu.Lock()
	if f.status == StatusRequesting {
		f.mu.Unlock()
		return StatusRequesting
	}
	f.status = StatusRequesting
	f.errMessage = ""
	f.resolved = nil
	f.mu.Unlock()

	// Preconditions fail straight to error, no acquisition attempted
	if !f.env.GeolocationSupported {
		return f.fail(msgNotSupported)
	}
	if !f.env.SecureTransport && !f.env.Localhost {
		return f.fail(msgInsecure)
	}
	if f.env.PermissionBlocked {
		return f.fail(msgPermissionBlocked)
	}

	var lat, lng float64
	var lastErr error
	acquired := false
	for _, attempt := range f.policy.Attempts {
		var err error
		lat, lng, err = f.locate(ctx, attempt)
		if err == nil {
			acquired = true
			break
		}
		lastErr = err
		f.logger.Debug("Geolocation attempt failed",
			zap.Bool("highAccuracy", attempt.HighAccuracy),
			zap.Error(err),
		)
	}
	if !acquired {
		return f.fail(messageFor(lastErr))
	}

	loc := domain.Location{Latitude: lat, Longitude: lng}

	// Best-effort enrichment; a failed lookup degrades to a coordinate
	// string, it never fails the acquisition
	place, err := f.geocoder.Lookup(ctx, lat, lng)
	if err != nil {
		f.logger.Warn("Reverse geocode failed, using coordinate labels", zap.Error(err))
		place = domain.Place{
			Address: loc.CoordinateString(),
			City:    "Unknown City",
			Country: "Unknown Country",
		}
	}
	loc.Address = place.Address
	loc.City = place.City
	loc.Country = place.Country

	f.mu.Lock()
	f.status = StatusGranted
	f.resolved = &loc
	f.mu.Unlock()
	return StatusGranted
}

// Confirm hands the resolved location to the caller. Only valid from
// granted: the user must explicitly choose "use this location".
func (f *Flow) Confirm() (domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != StatusGranted || f.resolved == nil {
		return domain.Location{}, pkgerrors.NewValidationError("no resolved location to confirm")
	}
	return *f.resolved, nil
}

// Deny moves to the terminal fallback: the caller lets the user pick a
// location by clicking the map instead
func (f *Flow) Deny() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = StatusDenied
	f.resolved = nil
}

// EnterManual switches from the error state to manual entry
func (f *Flow) EnterManual() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != StatusError {
		return pkgerrors.NewValidationError("manual entry is only available after a failed acquisition")
	}
	f.status = StatusManual
	return nil
}

// SubmitManual accepts a free-text label and synthesizes a placeholder
// coordinate; the caller is responsible for letting the user refine it on
// the map afterward
func (f *Flow) SubmitManual(label string) (domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != StatusManual {
		return domain.Location{}, pkgerrors.NewValidationError("flow is not in manual entry")
	}
	if label == "" {
		return domain.Location{}, pkgerrors.NewValidationError("location label cannot be empty")
	}

	loc := domain.Location{
		Latitude:  0,
		Longitude: 0,
		Address:   label,
		City:      "Unknown",
		Country:   "Unknown",
	}
	f.status = StatusGranted
	f.resolved = &loc
	return loc, nil
}

// locate runs one acquisition attempt under its watchdog. The watchdog only
// abandons a slow attempt; the capability call itself is not force-cancelled.
func (f *Flow) locate(ctx context.Context, attempt Attempt) (float64, float64, error) {
	wctx, cancel := context.WithTimeout(ctx, attempt.Watchdog)
	defer cancel()

	type result struct {
		lat, lng float64
		err      error
	}
	ch := make(chan result, 1)
	go func() {
		lat, lng, err := f.geolocator.CurrentPosition(wctx, ports.GeolocateOptions{
			HighAccuracy: attempt.HighAccuracy,
			Timeout:      attempt.Timeout,
			MaximumAge:   attempt.MaximumAge,
		})
		ch <- result{lat, lng, err}
	}()

	select {
	case res := <-ch:
		return res.lat, res.lng, res.err
	case <-wctx.Done():
		return 0, 0, &ports.GeolocateError{
			Code:    ports.GeolocateTimeout,
			Message: "location request timed out",
		}
	}
}

func (f *Flow) fail(message string) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = StatusError
	f.errMessage = message
	return StatusError
}

// messageFor selects the user-facing diagnostic by error subtype
func messageFor(err error) string {
	var geoErr *ports.GeolocateError
	if !errors.As(err, &geoErr) {
		return msgUnknown
	}
	switch geoErr.Code {
	case ports.GeolocatePermissionDenied:
		return msgPermissionDenied
	case ports.GeolocatePositionUnavailable:
		return msgUnavailable
	case ports.GeolocateTimeout:
		return msgTimeout
	default:
		return msgUnknown
	}
}
