package lianjia

import (
	"context"
	"fmt"
	"strings"

	"lianjia-rentals/config"
	"lianjia-rentals/models"
	"lianjia-rentals/storage"
	"lianjia-rentals/utils"
)

// RunSummary counts what happened during one scrape run.
type RunSummary struct {
	PagesAttempted  int
	PagesFailed     int
	PagesEmpty      int
	ListingsParsed  int
	ListingsSkipped int
	DuplicateLinks  int
	RowsInserted    int
}

// Scraper walks the paginated rental list and stores every listing it can
// parse. Pages are fetched one at a time.
type Scraper struct {
	cfg      *config.Config
	logger   *utils.Logger
	fetcher  Fetcher
	store    storage.ListingWriter
	export   storage.RawRecordWriter
	throttle *utils.Throttle
	seen     utils.LinkSet
}

// New creates a Scraper. export may be nil.
func New(cfg *config.Config, logger *utils.Logger, fetcher Fetcher, store storage.ListingWriter, export storage.RawRecordWriter) *Scraper {
	return &Scraper{
		cfg:      cfg,
		logger:   logger,
		fetcher:  fetcher,
		store:    store,
		export:   export,
		throttle: utils.NewThrottle(cfg.PageDelay()),
		seen:     utils.NewLinkSet(),
	}
}

// Scrape fetches pages FirstPage..LastPage in order. A page that cannot be
// fetched or parsed is logged and skipped. Only ctx cancellation stops the
// run early.
func (s *Scraper) Scrape(ctx context.Context) (RunSummary, error) {
	var sum RunSummary

	s.logger.Info("[lianjia] Starting scrape: pages %d-%d, delay %v",
		s.cfg.FirstPage, s.cfg.LastPage, s.cfg.PageDelay())

	for page := s.cfg.FirstPage; page <= s.cfg.LastPage; page++ {
		if err := s.throttle.Wait(ctx); err != nil {
			return sum, fmt.Errorf("scrape interrupted before page %d: %w", page, err)
		}

		sum.PagesAttempted++
		s.scrapePage(ctx, page, &sum)

		if ctx.Err() != nil {
			return sum, fmt.Errorf("scrape interrupted after page %d: %w", page, ctx.Err())
		}
	}

	s.logger.Info("[lianjia] Scrape complete: %d pages (%d failed, %d empty), %d parsed, %d skipped, %d saved",
		sum.PagesAttempted, sum.PagesFailed, sum.PagesEmpty,
		sum.ListingsParsed, sum.ListingsSkipped, sum.RowsInserted)
	return sum, nil
}

func (s *Scraper) scrapePage(ctx context.Context, page int, sum *RunSummary) {
	url := s.cfg.PageURL(page)
	s.logger.Info("[lianjia] Fetching page %d: %s", page, url)

	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.logger.Error("[lianjia] Failed to fetch page %d: %v", page, err)
		sum.PagesFailed++
		return
	}

	records, skipped, err := ParsePage(strings.NewReader(body), s.cfg.ListingHost)
	if err != nil {
		s.logger.Error("[lianjia] Failed to parse page %d: %v", page, err)
		sum.PagesFailed++
		return
	}
	for _, e := range skipped {
		s.logger.Warn("[lianjia] Page %d: skipping %v", page, e)
	}
	sum.ListingsSkipped += len(skipped)

	records = s.dropSeen(records, sum)
	sum.ListingsParsed += len(records)

	if len(records) == 0 {
		s.logger.Info("[lianjia] No rentals found on page %d", page)
		sum.PagesEmpty++
		return
	}

	if s.export != nil {
		if err := s.export.WriteRecords(records); err != nil {
			s.logger.Warn("[lianjia] CSV export of page %d failed: %v", page, err)
		}
	}

	n, err := s.store.InsertBatch(ctx, records)
	if err != nil {
		s.logger.Error("[lianjia] Failed to save page %d: %v", page, err)
		return
	}
	sum.RowsInserted += n
	s.logger.Info("[lianjia] Saved %d rentals from page %d (%d already stored)", n, page, len(records)-n)
}

// dropSeen removes listings whose link already appeared earlier in this run.
// The site repeats promoted listings across pages.
func (s *Scraper) dropSeen(records []models.ListingRecord, sum *RunSummary) []models.ListingRecord {
	kept := records[:0]
	for _, r := range records {
		if !s.seen.Add(r.Link) {
			s.logger.Debug("[lianjia] Duplicate link in this run: %s", r.Link)
			sum.DuplicateLinks++
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
