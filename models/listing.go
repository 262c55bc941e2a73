package models

// TagCategory identifies one of the optional tag badges shown on a listing card.
type TagCategory int

const (
	TagDecoration TagCategory = iota
	TagTransportation
	TagPayType
	TagFirstRent
)

// RawListingText holds the unparsed strings scraped from one listing element.
// It only lives for the duration of a single page parse.
type RawListingText struct {
	Title        string
	HouseInfo    string
	Tags         map[TagCategory]string // present keys only
	Brand        string
	PriceDisplay string
	Link         string
}

// LeaseKind selects the house-info parsing strategy.
type LeaseKind int

const (
	LeaseWholeOrShared LeaseKind = iota
	LeaseDetached
)

// DetachedLeaseType is the lease type label of detached (single building) rentals.
const DetachedLeaseType = "独栋"

// LeaseKindOf maps a lease type label to its parsing strategy.
func LeaseKindOf(leaseType string) LeaseKind {
	if leaseType == DetachedLeaseType {
		return LeaseDetached
	}
	return LeaseWholeOrShared
}

// ListingFields is the structured decomposition of a listing's title and house info.
// Nil means the value was not shown on the page.
type ListingFields struct {
	LeaseType   *string
	Location    *string
	Name        *string
	Area        *string
	Orientation *string
	Style       *string
	Floor       *string
}

// ListingRecord is one persisted row of the rentals table. Area, price and floor
// keep their units and ranges exactly as scraped.
type ListingRecord struct {
	ID             int64   `db:"id"`
	Title          string  `db:"title"`
	LeaseType      *string `db:"lease_type"`
	Location       *string `db:"location"`
	Name           *string `db:"name"`
	Area           *string `db:"area"`
	Price          *string `db:"price"`
	Style          *string `db:"style"`
	Orientation    *string `db:"orientation"`
	Floor          *string `db:"floor"`
	Decoration     *string `db:"decoration"`
	Transportation *string `db:"transportation"`
	PayType        *string `db:"pay_type"`
	FirstRent      *string `db:"first_rent"`
	Brand          *string `db:"brand"`
	Link           string  `db:"link"`
}

// NormalizedListing is a ListingRecord with typed numeric fields, built per report run.
type NormalizedListing struct {
	ListingRecord
	PriceValue *float64
	AreaValue  *float64
	FloorValue *int
	Region     *string
}

// PricePerArea returns price divided by area. ok is false when either is
// missing or the area is not positive.
func (n *NormalizedListing) PricePerArea() (ppa float64, ok bool) {
	if n.PriceValue == nil || n.AreaValue == nil || *n.AreaValue <= 0 {
		return 0, false
	}
	return *n.PriceValue / *n.AreaValue, true
}

// Str returns a pointer to s. Handy for literals in records and tests.
func Str(s string) *string {
	return &s
}

// Deref returns the pointed-to string, or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
