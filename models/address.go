package models

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AddressInput holds the free-form address fields returned by a reverse
// geocoder. Any key may be missing.
type AddressInput map[string]string

// StructuredAddress is the checkout address schema. Every field is always
// populated, possibly with an empty string.
type StructuredAddress struct {
	StreetAddress string  `json:"street_address"`
	LocalArea     string  `json:"local_area"`
	City          string  `json:"city"`
	Province      string  `json:"province"`
	PostalCode    string  `json:"postal_code"`
	Country       string  `json:"country"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
}

type ResolveAddressRequest struct {
	Lat *float64 `json:"lat" binding:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" binding:"required,gte=-180,lte=180"`
}

type AddressDraftResponse struct {
	Address  *StructuredAddress `json:"address"`
	Outcome  string             `json:"outcome,omitempty"`
	Sequence uint64             `json:"sequence"`
}
