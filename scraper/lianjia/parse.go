package lianjia

import (
	"errors"
	"fmt"
	"strings"

	"lianjia-rentals/models"
)

// ErrMalformedListing marks a listing whose markup or house info does not have
// the expected structure. The caller skips that listing and keeps going.
var ErrMalformedListing = errors.New("malformed listing")

const (
	titleSeparator    = "·"
	houseInfoSep      = "/"
	locationSep       = "-"
	featuredPrefix    = "精选/"
	southFacingMarker = "朝南"
	northFacingMarker = "朝北"
	southOrientation  = "南"
	northOrientation  = "北"
)

// ParseListingFields decomposes a listing title and its house info line into
// structured fields.
//
// A title without the middle-dot separator yields empty fields and no error.
// Whole and shared rentals must carry at least five "/" segments with a
// three-part "district-area-compound" head, otherwise ErrMalformedListing is
// returned.
func ParseListingFields(title, houseInfo string) (models.ListingFields, error) {
	var f models.ListingFields

	titleParts := strings.Split(title, titleSeparator)
	if len(titleParts) < 2 {
		return f, nil
	}

	leaseType := strings.TrimSpace(titleParts[0])
	remaining := strings.TrimSpace(strings.Join(titleParts[1:], titleSeparator))
	f.LeaseType = &leaseType

	switch models.LeaseKindOf(leaseType) {
	case models.LeaseDetached:
		parseDetached(&f, remaining, houseInfo)
		return f, nil
	default:
		if err := parseWholeOrShared(&f, houseInfo); err != nil {
			return f, err
		}
		return f, nil
	}
}

// parseDetached handles detached buildings, whose house info only reliably
// carries area and style and whose title carries name and location.
func parseDetached(f *models.ListingFields, remaining, houseInfo string) {
	parts := strings.Split(houseInfo, houseInfoSep)
	if len(parts) >= 3 {
		f.Style = trimmed(parts[len(parts)-1])
		f.Area = trimmed(parts[len(parts)-3])
	}

	tokens := strings.Fields(remaining)
	if len(tokens) >= 1 {
		f.Name = models.Str(tokens[0])
	}
	if len(tokens) >= 2 {
		f.Location = models.Str(tokens[1])
	}
	for i := len(tokens) - 1; i >= 0; i-- {
		if strings.Contains(tokens[i], southFacingMarker) {
			f.Orientation = models.Str(southOrientation)
			break
		}
		if strings.Contains(tokens[i], northFacingMarker) {
			f.Orientation = models.Str(northOrientation)
			break
		}
	}
}

// parseWholeOrShared handles house info shaped like
// "精选/浦东-张江-阳光花园/75㎡/南/两室一厅/低楼层 6层".
func parseWholeOrShared(f *models.ListingFields, houseInfo string) error {
	parts := strings.Split(strings.TrimPrefix(houseInfo, featuredPrefix), houseInfoSep)
	if len(parts) < 5 {
		return fmt.Errorf("%w: house info has %d segments, want at least 5: %q",
			ErrMalformedListing, len(parts), houseInfo)
	}

	head := strings.Split(strings.TrimSpace(parts[0]), locationSep)
	if len(head) < 3 {
		return fmt.Errorf("%w: location %q has %d parts, want at least 3",
			ErrMalformedListing, parts[0], len(head))
	}

	floorTokens := strings.Fields(parts[4])
	if len(floorTokens) < 2 {
		return fmt.Errorf("%w: floor segment %q has %d tokens, want 2",
			ErrMalformedListing, parts[4], len(floorTokens))
	}

	f.Location = models.Str(head[0] + locationSep + head[1])
	f.Name = models.Str(head[2])
	f.Area = trimmed(parts[1])
	f.Orientation = trimmed(parts[2])
	f.Style = trimmed(parts[3])
	f.Floor = models.Str(floorTokens[0] + floorTokens[1])
	return nil
}

// TagValue returns the trimmed text of a tag badge, or nil when the listing
// does not show that badge.
func TagValue(tags map[models.TagCategory]string, category models.TagCategory) *string {
	v, ok := tags[category]
	if !ok {
		return nil
	}
	return trimmed(v)
}

// BuildRecord turns the raw strings of one listing into a storable record.
func BuildRecord(raw models.RawListingText) (models.ListingRecord, error) {
	fields, err := ParseListingFields(raw.Title, raw.HouseInfo)
	if err != nil {
		return models.ListingRecord{}, err
	}

	return models.ListingRecord{
		Title:          raw.Title,
		LeaseType:      fields.LeaseType,
		Location:       fields.Location,
		Name:           fields.Name,
		Area:           fields.Area,
		Price:          models.Str(raw.PriceDisplay),
		Style:          fields.Style,
		Orientation:    fields.Orientation,
		Floor:          fields.Floor,
		Decoration:     TagValue(raw.Tags, models.TagDecoration),
		Transportation: TagValue(raw.Tags, models.TagTransportation),
		PayType:        TagValue(raw.Tags, models.TagPayType),
		FirstRent:      TagValue(raw.Tags, models.TagFirstRent),
		Brand:          models.Str(raw.Brand),
		Link:           raw.Link,
	}, nil
}

func trimmed(s string) *string {
	return models.Str(strings.TrimSpace(s))
}
