package models

// ViewKind selects how an aggregate view is drawn.
type ViewKind int

const (
	ViewBar ViewKind = iota
	ViewHBar
	ViewBox
	ViewScatter
	ViewHeatMap
)

// ScatterSeries is one coloured group of points in a scatter view.
type ScatterSeries struct {
	Label string
	X     []float64
	Y     []float64
}

// View is one independent aggregate of the normalized dataset, rendered as a
// single image artifact named after View.Name.
type View struct {
	Name   string
	Title  string
	XLabel string
	YLabel string
	Kind   ViewKind

	// ViewBar / ViewHBar
	Labels []string
	Values []float64

	// ViewBox: Groups[i] holds the samples for Labels[i]
	Groups [][]float64

	// ViewScatter
	Series []ScatterSeries

	// ViewHeatMap: Cells[row][col], NaN where no data
	RowLabels []string
	ColLabels []string
	Cells     [][]float64
}

// LabelCount pairs a category label with its frequency.
type LabelCount struct {
	Label string
	Count int
}

// InsightReport holds the summary statistics and all views over the cleaned dataset.
type InsightReport struct {
	TotalListings    int
	AveragePrice     float64
	MinPrice         float64
	MaxPrice         float64
	AveragePerArea   float64
	Cheapest         *NormalizedListing
	MostExpensive    *NormalizedListing
	ListingsByRegion []LabelCount
	ListingsByLease  []LabelCount
	Views            []View
}
