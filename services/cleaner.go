package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"lianjia-rentals/models"
	"lianjia-rentals/utils"
)

const (
	priceUnit = "元/月"
	areaUnit  = "㎡"
	rangeSep  = "-"
)

// floorRegexp captures the first run of digits, e.g. the 6 in "高楼层（6层）"
var floorRegexp = regexp.MustCompile(`\d+`)

// Cleaner turns stored listing records into NormalizedListings with numeric
// price, area and floor values.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Normalize cleans every record and drops the ones whose price or area
// cannot be parsed. Records with an unparseable floor or no region are kept.
func (c *Cleaner) Normalize(records []models.ListingRecord) []models.NormalizedListing {
	result := make([]models.NormalizedListing, 0, len(records))
	droppedPrice, droppedArea := 0, 0

	for _, r := range records {
		n := models.NormalizedListing{
			ListingRecord: r,
			PriceValue:    CleanPrice(r.Price),
			AreaValue:     CleanArea(r.Area),
			FloorValue:    CleanFloor(r.Floor),
			Region:        DeriveRegion(r.Location),
		}

		if n.PriceValue == nil {
			c.logger.Debug("[cleaner] Dropping %s: unparseable price %q", r.Link, models.Deref(r.Price))
			droppedPrice++
			continue
		}
		if n.AreaValue == nil {
			c.logger.Debug("[cleaner] Dropping %s: unparseable area %q", r.Link, models.Deref(r.Area))
			droppedArea++
			continue
		}

		result = append(result, n)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d without price, %d without area)",
		len(records), len(result), droppedPrice, droppedArea)
	return result
}

// CleanPrice parses a monthly rent such as "5500元/月" or "2800-3500元/月".
// A range yields the mean of its bounds. Anything unparseable yields nil.
func CleanPrice(s *string) *float64 {
	if s == nil {
		return nil
	}
	return parseRangeValue(strings.ReplaceAll(*s, priceUnit, ""))
}

// CleanArea parses a floor area such as "75㎡" or "71.69-72.07㎡" the same way
// CleanPrice parses rents.
func CleanArea(s *string) *float64 {
	if s == nil {
		return nil
	}
	return parseRangeValue(strings.ReplaceAll(*s, areaUnit, ""))
}

func parseRangeValue(s string) *float64 {
	s = strings.TrimSpace(s)

	if !strings.Contains(s, rangeSep) {
		return parseFloat(s)
	}

	parts := strings.Split(s, rangeSep)
	if len(parts) != 2 {
		return nil
	}
	low, high := parseFloat(parts[0]), parseFloat(parts[1])
	if low == nil || high == nil {
		return nil
	}
	mean := (*low + *high) / 2
	return &mean
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// CleanFloor extracts the first number in a floor description.
func CleanFloor(s *string) *int {
	if s == nil {
		return nil
	}
	m := floorRegexp.FindString(*s)
	if m == "" {
		return nil
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &v
}

// DeriveRegion returns the district part of a "district-area" location, or nil
// when the location has no dash.
func DeriveRegion(location *string) *string {
	if location == nil || !strings.Contains(*location, rangeSep) {
		return nil
	}
	region := strings.SplitN(*location, rangeSep, 2)[0]
	return &region
}
