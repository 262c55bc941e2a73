package lianjia

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"lianjia-rentals/models"
)

// CSS selectors of the rental list page.
const (
	selListingItem = "div.content__list--item"
	selAside       = "a.content__list--item--aside"
	selDescription = "p.content__list--item--des"
	selBottom      = "p.content__list--item--bottom"
	selBrand       = "span.brand"
	selPrice       = "span.content__list--item-price"
)

var tagSelectors = map[models.TagCategory]string{
	models.TagDecoration:     "i.content__item__tag--decoration",
	models.TagTransportation: "i.content__item__tag--is_subway_house",
	models.TagPayType:        "i.content__item__tag--deposit_1_pay_1",
	models.TagFirstRent:      "i.content__item__tag--first_rent",
}

// ExtractListings pulls the raw text of every listing card out of a list page.
// Cards missing a required element are reported in skipped and left out of
// the result. A document that cannot be parsed at all returns an error.
func ExtractListings(r io.Reader, host string) (listings []models.RawListingText, skipped []error, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parse page html: %w", err)
	}

	doc.Find(selListingItem).Each(func(i int, item *goquery.Selection) {
		raw, err := extractListing(item, host)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("listing %d: %w", i, err))
			return
		}
		listings = append(listings, raw)
	})

	return listings, skipped, nil
}

func extractListing(item *goquery.Selection, host string) (models.RawListingText, error) {
	var raw models.RawListingText

	aside := item.Find(selAside).First()
	if aside.Length() == 0 {
		return raw, missing(selAside)
	}
	desc := item.Find(selDescription).First()
	if desc.Length() == 0 {
		return raw, missing(selDescription)
	}
	if item.Find(selBottom).Length() == 0 {
		return raw, missing(selBottom)
	}
	brand := item.Find(selBrand).First()
	if brand.Length() == 0 {
		return raw, missing(selBrand)
	}
	price := item.Find(selPrice).First()
	if price.Length() == 0 {
		return raw, missing(selPrice)
	}

	title, _ := aside.Attr("title")
	href, _ := aside.Attr("href")

	raw.Title = strings.TrimSpace(title)
	raw.HouseInfo = strippedText(desc)
	raw.Brand = strippedText(brand)
	raw.PriceDisplay = strippedText(price)
	raw.Link = absoluteLink(host, strings.TrimSpace(href))

	raw.Tags = make(map[models.TagCategory]string)
	for category, sel := range tagSelectors {
		tag := item.Find(sel).First()
		if tag.Length() == 0 {
			continue
		}
		raw.Tags[category] = strippedText(tag)
	}

	return raw, nil
}

func missing(sel string) error {
	return fmt.Errorf("%w: no %s element", ErrMalformedListing, sel)
}

// absoluteLink prefixes relative hrefs with the listing host.
func absoluteLink(host, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return host + href
}

// strippedText concatenates every descendant text node of sel with each node
// trimmed of surrounding whitespace. "\n  浦东 \n <b>75㎡</b>" becomes "浦东75㎡".
func strippedText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}

// ParsePage extracts every listing on a page and parses it into a record.
// Listings that fail either step are returned in skipped.
func ParsePage(r io.Reader, host string) (records []models.ListingRecord, skipped []error, err error) {
	raws, skipped, err := ExtractListings(r, host)
	if err != nil {
		return nil, nil, err
	}

	for _, raw := range raws {
		rec, err := BuildRecord(raw)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("%s: %w", raw.Link, err))
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}
