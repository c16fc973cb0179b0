package services

import (
	"context"
	"storefront/metrics"
	"storefront/models"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Geocoder turns a coordinate into free-form address fields.
type Geocoder interface {
	Reverse(ctx context.Context, coord models.Coordinate) (models.AddressInput, error)
}

// Fallback chains for each StructuredAddress field; the first non-empty
// geocoder key wins.
var (
	LocalAreaKeys  = []string{"suburb", "neighbourhood"}
	CityKeys       = []string{"city", "town", "village", "municipality", "city_district", "county"}
	ProvinceKeys   = []string{"state", "province"}
	PostalCodeKeys = []string{"postcode"}
	CountryKeys    = []string{"country"}
)

type AddressDefaults struct {
	Province    string
	Country     string
	CountryCode string
}

var DefaultAddressDefaults = AddressDefaults{
	Province:    "Gauteng",
	Country:     "South Africa",
	CountryCode: "za",
}

func firstNonEmpty(input models.AddressInput, keys []string, fallback string) string {
	for _, key := range keys {
		if value := input[key]; value != "" {
			return value
		}
	}
	return fallback
}

// NormalizeAddress maps geocoder fields onto the checkout schema. The
// coordinate is taken from the caller, never from the geocoder.
func NormalizeAddress(input models.AddressInput, coord models.Coordinate, defaults AddressDefaults) models.StructuredAddress {
	street := ""
	if road := input["road"]; road != "" {
		street = strings.TrimSpace(input["house_number"] + " " + road)
	}

	return models.StructuredAddress{
		StreetAddress: street,
		LocalArea:     firstNonEmpty(input, LocalAreaKeys, ""),
		City:          firstNonEmpty(input, CityKeys, ""),
		Province:      firstNonEmpty(input, ProvinceKeys, defaults.Province),
		PostalCode:    firstNonEmpty(input, PostalCodeKeys, ""),
		Country:       firstNonEmpty(input, CountryKeys, defaults.Country),
		Lat:           coord.Lat,
		Lng:           coord.Lng,
	}
}

type AddressResolver struct {
	geocoder Geocoder
	defaults AddressDefaults
	logger   *zap.Logger
}

func NewAddressResolver(geocoder Geocoder, defaults AddressDefaults, logger *zap.Logger) *AddressResolver {
	return &AddressResolver{geocoder: geocoder, defaults: defaults, logger: logger}
}

// Resolve looks up coord once. Lookup failures are logged and reported as
// ok == false; a country outside the expected one only logs a warning.
func (r *AddressResolver) Resolve(ctx context.Context, coord models.Coordinate) (models.StructuredAddress, bool) {
	input, err := r.geocoder.Reverse(ctx, coord)
	if err != nil {
		r.logger.Error("geocoding error",
			zap.Float64("lat", coord.Lat),
			zap.Float64("lng", coord.Lng),
			zap.Error(err),
		)
		metrics.RecordAddressLookup("error")
		return models.StructuredAddress{}, false
	}

	outcome := "ok"
	if code, ok := input["country_code"]; ok && r.defaults.CountryCode != "" && !strings.EqualFold(code, r.defaults.CountryCode) {
		r.logger.Warn("location selected outside of the expected country",
			zap.String("country_code", code),
			zap.String("expected", r.defaults.CountryCode),
			zap.Float64("lat", coord.Lat),
			zap.Float64("lng", coord.Lng),
		)
		outcome = "foreign"
	}
	metrics.RecordAddressLookup(outcome)

	return NormalizeAddress(input, coord, r.defaults), true
}

// AddressLookup is what AddressAutofill needs from a resolver.
type AddressLookup interface {
	Resolve(ctx context.Context, coord models.Coordinate) (models.StructuredAddress, bool)
}

type LookupOutcome string

const (
	LookupApplied LookupOutcome = "applied"
	LookupFailed  LookupOutcome = "failed"
	LookupStale   LookupOutcome = "stale"
)

// AddressAutofill holds a session's checkout address draft. Each lookup
// takes a sequence token; a result is applied only if no lookup or manual
// edit started after it.
type AddressAutofill struct {
	resolver AddressLookup
	logger   *zap.Logger

	mu       sync.Mutex
	seq      uint64
	draft    models.StructuredAddress
	hasDraft bool
}

func NewAddressAutofill(resolver AddressLookup, logger *zap.Logger) *AddressAutofill {
	return &AddressAutofill{resolver: resolver, logger: logger}
}

func (a *AddressAutofill) next() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.seq++
	return a.seq
}

// Lookup resolves coord and, unless superseded, replaces the draft. It
// returns the draft as it stands afterwards.
func (a *AddressAutofill) Lookup(ctx context.Context, coord models.Coordinate) (models.StructuredAddress, LookupOutcome) {
	token := a.next()
	addr, ok := a.resolver.Resolve(ctx, coord)

	a.mu.Lock()
	defer a.mu.Unlock()

	if !ok {
		return a.draft, LookupFailed
	}
	if token != a.seq {
		a.logger.Debug("discarding stale address lookup",
			zap.Uint64("token", token),
			zap.Uint64("latest", a.seq),
		)
		metrics.RecordStaleAddress()
		return a.draft, LookupStale
	}

	a.draft = addr
	a.hasDraft = true
	return a.draft, LookupApplied
}

// Set replaces the draft with a manually entered address and supersedes any
// lookup still in flight.
func (a *AddressAutofill) Set(addr models.StructuredAddress) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.seq++
	a.draft = addr
	a.hasDraft = true
}

func (a *AddressAutofill) Current() (models.StructuredAddress, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.draft, a.hasDraft
}

func (a *AddressAutofill) Sequence() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.seq
}

func (a *AddressAutofill) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.seq++
	a.draft = models.StructuredAddress{}
	a.hasDraft = false
}
