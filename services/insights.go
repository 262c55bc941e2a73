package services

import (
	"fmt"
	"io"
	"os"
	"strings"

	"lianjia-rentals/models"
	"lianjia-rentals/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate computes the summary statistics and every aggregate view over the
// normalized listings. Views that end up without data are left out.
func (s *InsightService) Generate(listings []models.NormalizedListing) *models.InsightReport {
	report := &models.InsightReport{}

	if len(listings) == 0 {
		s.logger.Warn("[report] No listings to analyse")
		return report
	}

	report.TotalListings = len(listings)

	var totalPrice, totalPerArea float64
	perAreaCount := 0
	for i := range listings {
		l := &listings[i]
		p := *l.PriceValue
		totalPrice += p
		if ppa, ok := l.PricePerArea(); ok {
			totalPerArea += ppa
			perAreaCount++
		}

		if report.Cheapest == nil || p < *report.Cheapest.PriceValue {
			report.Cheapest = l
		}
		if report.MostExpensive == nil || p > *report.MostExpensive.PriceValue {
			report.MostExpensive = l
		}
	}
	report.AveragePrice = round2(totalPrice / float64(len(listings)))
	if perAreaCount > 0 {
		report.AveragePerArea = round2(totalPerArea / float64(perAreaCount))
	}
	report.MinPrice = round2(*report.Cheapest.PriceValue)
	report.MaxPrice = round2(*report.MostExpensive.PriceValue)

	report.ListingsByRegion = countBy(listings, byRegion)
	report.ListingsByLease = countBy(listings, byLeaseType)

	for _, v := range s.buildViews(listings) {
		if isEmptyView(v) {
			s.logger.Debug("[report] View %s has no data, skipping", v.Name)
			continue
		}
		report.Views = append(report.Views, v)
	}

	s.logger.Info("[report] Built %d views over %d listings", len(report.Views), report.TotalListings)
	return report
}

func (s *InsightService) buildViews(listings []models.NormalizedListing) []models.View {
	brands := collect(listings, byBrand, price)
	regionPrice := collect(listings, byRegion, price)
	regionPerArea := collect(listings, byRegion, pricePerArea)
	floors := collect(listings, byFloor, price)
	floorPerArea := collect(listings, byFloor, pricePerArea)
	leaseTypes := collect(listings, byLeaseType, pricePerArea)
	orientations := collect(listings, byOrientation, price)
	orientationPerArea := collect(listings, byOrientation, pricePerArea)
	transportation := collect(listings, byTransportation, pricePerArea)
	decoration := collect(listings, byDecoration, pricePerArea)

	brandCounts := countView("brand_wordcloud", "品牌出现频率", "品牌", brands, frequencyOrder(brands))
	brandCounts.Kind = models.ViewHBar

	views := []models.View{
		brandCounts,
		countView("region_counts", "房屋数量按区域分布", "区域", regionPrice, frequencyOrder(regionPrice)),
		priceDistributionView(listings),
		lowestView("price_top50", "租金最低的前50个房源", "租金 (元)", listings, price, topN),
		lowestView("price_per_area_top50", "单位租金最低的前50个房源", "单位租金 (元/㎡)", listings, pricePerArea, topN),
		boxView("region_price", "不同区域的租金比较", "区域", "租金 (元/月)", regionPrice, frequencyOrder(regionPrice)),
		boxView("region_price_per_area", "不同区域的单位租金比较", "区域", "单位租金 (元/㎡)", regionPerArea, frequencyOrder(regionPerArea)),
		areaPriceView(listings),
		countView("floor_count", "不同楼层的房源数量", "楼层", floors, numericOrder(floors)),
		boxView("floor_price", "楼层对单位租金的影响", "楼层", "单位租金 (元/㎡)", floorPerArea, numericOrder(floorPerArea)),
		boxView("leasetype_price", "租赁类型对单位租金的影响", "租赁类型", "单位租金 (元/㎡)", leaseTypes, frequencyOrder(leaseTypes)),
		countView("orientation_count", "不同朝向的房源数量", "朝向", orientations, frequencyOrder(orientations)),
		boxView("orientation_price", "朝向对单位租金的影响", "朝向", "单位租金 (元/㎡)", orientationPerArea, frequencyOrder(orientationPerArea)),
		boxView("transportation_price", "交通便利性对单位租金的影响", "交通便利性", "单位租金 (元/㎡)", transportation, frequencyOrder(transportation)),
		boxView("decoration_price", "装修情况对单位租金的影响", "装修情况", "单位租金 (元/㎡)", decoration, frequencyOrder(decoration)),
		regionDecorationView(listings),
		brandAverageView(listings),
		boxView("brand_price_distribution", "不同品牌的租金", "品牌", "租金 (元/月)", brands, frequencyOrder(brands)),
	}

	area, err := areaDistributionView(listings)
	if err != nil {
		s.logger.Warn("[report] Skipping area distribution: %v", err)
		return views
	}
	return append(views, area)
}

func isEmptyView(v models.View) bool {
	return len(v.Labels) == 0 && len(v.Series) == 0 && len(v.Cells) == 0
}

func (s *InsightService) Print(r *models.InsightReport) {
	Fprint(os.Stdout, r)
}

// Fprint writes the console summary of r to w.
func Fprint(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 上海链家租房数据概览\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings analysed      : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Charts prepared        : \033[1m%d\033[0m\n", len(r.Views))
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Rent Statistics (元/月)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.TotalListings > 0 {
		fmt.Fprintf(w, "  Average rent          : \033[1;32m%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum rent          : \033[1;32m%.2f\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum rent          : \033[1;32m%.2f\033[0m\n", r.MaxPrice)
		fmt.Fprintf(w, "  Average rent per ㎡    : \033[1;32m%.2f\033[0m\n", r.AveragePerArea)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.Cheapest != nil {
		fmt.Fprintf(w, "\033[1;33m  Cheapest Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		printListing(w, r.Cheapest)
	}
	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		printListing(w, r.MostExpensive)
	}

	// Listings by Region
	fmt.Fprintf(w, "\033[1;33m  Listings by Region\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ListingsByRegion) == 0 {
		fmt.Fprintf(w, "  No region data\n")
	} else {
		maxCount := r.ListingsByRegion[0].Count
		for _, lc := range r.ListingsByRegion {
			fmt.Fprintf(w, "  %-16s %s (%d)\n", truncate(lc.Label, 14), bar(lc.Count, maxCount, 30), lc.Count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Listings by Lease Type\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, lc := range r.ListingsByLease {
		fmt.Fprintf(w, "  %-16s %d\n", truncate(lc.Label, 14), lc.Count)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func printListing(w io.Writer, l *models.NormalizedListing) {
	fmt.Fprintf(w, "  %s\n", truncate(l.Title, 40))
	fmt.Fprintf(w, "  Location : %s\n", labelOf(l.Location))
	fmt.Fprintf(w, "  Area     : %.1f ㎡\n", *l.AreaValue)
	fmt.Fprintf(w, "  Rent     : \033[1;31m%.2f 元/月\033[0m\n", *l.PriceValue)
	fmt.Fprintf(w, "  Link     : %s\n", l.Link)
	fmt.Fprintln(w)
}

// bar scales count against maxCount into at most width blocks.
func bar(count, maxCount, width int) string {
	if maxCount <= 0 {
		return ""
	}
	n := count * width / maxCount
	if n == 0 && count > 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
