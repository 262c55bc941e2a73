package services

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/brojonat/histogram"

	"lianjia-rentals/models"
)

// UnknownLabel is the display label for listings that do not show a value.
const UnknownLabel = "未知"

const topN = 50

type keyFunc func(l *models.NormalizedListing) (string, bool)

// valueFunc reports false for listings that have no value to plot.
type valueFunc func(l *models.NormalizedListing) (float64, bool)

func labelOf(s *string) string {
	if s == nil || *s == "" {
		return UnknownLabel
	}
	return *s
}

func byRegion(l *models.NormalizedListing) (string, bool) {
	if l.Region == nil {
		return "", false
	}
	return *l.Region, true
}

func byBrand(l *models.NormalizedListing) (string, bool) {
	return labelOf(l.Brand), true
}

func byLeaseType(l *models.NormalizedListing) (string, bool) {
	return labelOf(l.LeaseType), true
}

func byOrientation(l *models.NormalizedListing) (string, bool) {
	return labelOf(l.Orientation), true
}

func byTransportation(l *models.NormalizedListing) (string, bool) {
	return labelOf(l.Transportation), true
}

func byDecoration(l *models.NormalizedListing) (string, bool) {
	return labelOf(l.Decoration), true
}

// byFloor counts listings without a floor number as floor 0.
func byFloor(l *models.NormalizedListing) (string, bool) {
	if l.FloorValue == nil {
		return "0", true
	}
	return strconv.Itoa(*l.FloorValue), true
}

func price(l *models.NormalizedListing) (float64, bool) { return *l.PriceValue, true }

func pricePerArea(l *models.NormalizedListing) (float64, bool) { return l.PricePerArea() }

// collect groups the value of every listing by key, skipping listings the
// key or the value rejects.
func collect(listings []models.NormalizedListing, key keyFunc, value valueFunc) map[string][]float64 {
	groups := make(map[string][]float64)
	for i := range listings {
		l := &listings[i]
		k, ok := key(l)
		if !ok {
			continue
		}
		v, ok := value(l)
		if !ok {
			continue
		}
		groups[k] = append(groups[k], v)
	}
	return groups
}

// frequencyOrder returns the group labels by descending size, ties by label.
func frequencyOrder(groups map[string][]float64) []string {
	counts := make([]models.LabelCount, 0, len(groups))
	for label, vs := range groups {
		counts = append(counts, models.LabelCount{Label: label, Count: len(vs)})
	}
	sortCounts(counts)

	labels := make([]string, len(counts))
	for i, c := range counts {
		labels[i] = c.Label
	}
	return labels
}

// numericOrder returns integer labels in ascending numeric order.
func numericOrder(groups map[string][]float64) []string {
	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, _ := strconv.Atoi(labels[i])
		b, _ := strconv.Atoi(labels[j])
		return a < b
	})
	return labels
}

func sortCounts(counts []models.LabelCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Label < counts[j].Label
	})
}

func countBy(listings []models.NormalizedListing, key keyFunc) []models.LabelCount {
	groups := collect(listings, key, price)
	counts := make([]models.LabelCount, 0, len(groups))
	for _, label := range frequencyOrder(groups) {
		counts = append(counts, models.LabelCount{Label: label, Count: len(groups[label])})
	}
	return counts
}

func countView(name, title, xLabel string, groups map[string][]float64, order []string) models.View {
	v := models.View{Name: name, Title: title, XLabel: xLabel, YLabel: "房源数量", Kind: models.ViewBar}
	for _, label := range order {
		v.Labels = append(v.Labels, label)
		v.Values = append(v.Values, float64(len(groups[label])))
	}
	return v
}

func boxView(name, title, xLabel, yLabel string, groups map[string][]float64, order []string) models.View {
	v := models.View{Name: name, Title: title, XLabel: xLabel, YLabel: yLabel, Kind: models.ViewBox}
	for _, label := range order {
		v.Labels = append(v.Labels, label)
		v.Groups = append(v.Groups, groups[label])
	}
	return v
}

// priceBins are left-closed rent bands; the last one is open-ended.
var priceBins = []float64{0, 1000, 2000, 3000, 4000, 5000, 6000, 7000, 8000, 9000, 10000}

func priceBinLabels() []string {
	labels := make([]string, 0, len(priceBins))
	for i := 0; i < len(priceBins)-1; i++ {
		labels = append(labels, fmt.Sprintf("%.0f-%.0f", priceBins[i], priceBins[i+1]))
	}
	return append(labels, fmt.Sprintf("%.0f+", priceBins[len(priceBins)-1]))
}

func priceDistributionView(listings []models.NormalizedListing) models.View {
	counts := make([]float64, len(priceBins))
	for i := range listings {
		p := *listings[i].PriceValue
		if p < priceBins[0] {
			continue
		}
		bin := sort.Search(len(priceBins), func(j int) bool { return priceBins[j] > p }) - 1
		counts[bin]++
	}
	return models.View{
		Name:   "price_distribution",
		Title:  "价格区间分布",
		XLabel: "价格区间 (元/月)",
		YLabel: "房源数量",
		Kind:   models.ViewBar,
		Labels: priceBinLabels(),
		Values: counts,
	}
}

// lowestView lists the n listings with the smallest value, cheapest first.
func lowestView(name, title, xLabel string, listings []models.NormalizedListing, value valueFunc, n int) models.View {
	type entry struct {
		l *models.NormalizedListing
		v float64
	}
	entries := make([]entry, 0, len(listings))
	for i := range listings {
		if v, ok := value(&listings[i]); ok {
			entries = append(entries, entry{&listings[i], v})
		}
	}
	sort.SliceStable(entries, func(a, b int) bool {
		if entries[a].v != entries[b].v {
			return entries[a].v < entries[b].v
		}
		return entries[a].l.Link < entries[b].l.Link
	})
	if len(entries) > n {
		entries = entries[:n]
	}

	v := models.View{Name: name, Title: title, XLabel: xLabel, YLabel: "房源名称", Kind: models.ViewHBar}
	for _, e := range entries {
		v.Labels = append(v.Labels, labelOf(e.l.Name))
		v.Values = append(v.Values, e.v)
	}
	return v
}

func areaPriceView(listings []models.NormalizedListing) models.View {
	type point struct{ x, y float64 }
	byRegionPoints := make(map[string][]point)
	regionGroups := make(map[string][]float64)
	for i := range listings {
		l := &listings[i]
		region, ok := byRegion(l)
		if !ok {
			continue
		}
		byRegionPoints[region] = append(byRegionPoints[region], point{*l.AreaValue, *l.PriceValue})
		regionGroups[region] = append(regionGroups[region], 0)
	}

	v := models.View{
		Name:   "area_price",
		Title:  "面积与价格的关系",
		XLabel: "面积 (㎡)",
		YLabel: "价格 (元/月)",
		Kind:   models.ViewScatter,
	}
	for _, region := range frequencyOrder(regionGroups) {
		s := models.ScatterSeries{Label: region}
		for _, p := range byRegionPoints[region] {
			s.X = append(s.X, p.x)
			s.Y = append(s.Y, p.y)
		}
		v.Series = append(v.Series, s)
	}
	return v
}

// regionDecorationView is a heat map of the mean rent per region and
// decoration. Cells without listings are NaN.
func regionDecorationView(listings []models.NormalizedListing) models.View {
	type cell struct{ sum, n float64 }
	cells := make(map[[2]string]*cell)
	rowSet := make(map[string]bool)
	colSet := make(map[string]bool)

	for i := range listings {
		l := &listings[i]
		region, ok := byRegion(l)
		if !ok {
			continue
		}
		decoration, _ := byDecoration(l)
		rowSet[region] = true
		colSet[decoration] = true

		k := [2]string{region, decoration}
		if cells[k] == nil {
			cells[k] = &cell{}
		}
		cells[k].sum += *l.PriceValue
		cells[k].n++
	}

	v := models.View{
		Name:      "region_decoration_price",
		Title:     "不同区域和装修情况的平均租金",
		XLabel:    "装修情况",
		YLabel:    "区域",
		Kind:      models.ViewHeatMap,
		RowLabels: sortedKeys(rowSet),
		ColLabels: sortedKeys(colSet),
	}
	for _, row := range v.RowLabels {
		values := make([]float64, len(v.ColLabels))
		for j, col := range v.ColLabels {
			if c := cells[[2]string{row, col}]; c != nil {
				values[j] = c.sum / c.n
			} else {
				values[j] = math.NaN()
			}
		}
		v.Cells = append(v.Cells, values)
	}
	return v
}

func brandAverageView(listings []models.NormalizedListing) models.View {
	groups := collect(listings, byBrand, price)
	type avg struct {
		label string
		mean  float64
	}
	avgs := make([]avg, 0, len(groups))
	for label, vs := range groups {
		avgs = append(avgs, avg{label, mean(vs)})
	}
	sort.Slice(avgs, func(i, j int) bool {
		if avgs[i].mean != avgs[j].mean {
			return avgs[i].mean > avgs[j].mean
		}
		return avgs[i].label < avgs[j].label
	})

	v := models.View{
		Name:   "brand_average_price",
		Title:  "不同品牌的平均租金",
		XLabel: "平均租金 (元/月)",
		YLabel: "品牌",
		Kind:   models.ViewHBar,
	}
	for _, a := range avgs {
		v.Labels = append(v.Labels, a.label)
		v.Values = append(v.Values, a.mean)
	}
	return v
}

// areaDistributionView buckets floor areas into ten equal-width bins.
func areaDistributionView(listings []models.NormalizedListing) (models.View, error) {
	areas := make([]float64, 0, len(listings))
	for i := range listings {
		areas = append(areas, *listings[i].AreaValue)
	}

	bs, err := histogram.BSExactSpan(10)(areas)
	if err != nil {
		return models.View{}, fmt.Errorf("area buckets: %w", err)
	}
	h, err := histogram.Hist(areas, bs, histogram.DefaultBucketer)
	if err != nil {
		return models.View{}, fmt.Errorf("area histogram: %w", err)
	}

	v := models.View{
		Name:   "area_distribution",
		Title:  "面积分布",
		XLabel: "面积 (㎡)",
		YLabel: "房源数量",
		Kind:   models.ViewBar,
	}
	for _, b := range h.Buckets {
		v.Labels = append(v.Labels, fmt.Sprintf("%.0f", b.Min))
		v.Values = append(v.Values, float64(b.Count))
	}
	return v, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
