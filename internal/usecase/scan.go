package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"SerialWatch/internal/domain"
	"SerialWatch/internal/marketplace"
	"SerialWatch/internal/ports"
	"SerialWatch/internal/search"
)

// ServiceDeps wires all driven adapters into the scan pipeline.
type ServiceDeps struct {
	Store      ports.Store
	Search     ports.SearchProvider
	Notifier   ports.Notifier
	MaxResults int
	Logger     *slog.Logger
}

// Service implements the detection pipeline: search, classify, dedupe,
// record, aggregate, notify.
type Service struct {
	store      ports.Store
	search     ports.SearchProvider
	notifier   ports.Notifier
	maxResults int
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs the pipeline component.
func NewService(deps ServiceDeps) *Service {
	return &Service{
		store:      deps.Store,
		search:     deps.Search,
		notifier:   deps.Notifier,
		maxResults: deps.MaxResults,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// taggedResult pairs a raw search hit with the sub-query that produced it.
type taggedResult struct {
	search.Result
	sourceType domain.SourceType
}

// ScanOne runs the full pipeline for a single tracked serial owned by ownerID
// and notifies when the run produced new detections.
func (s *Service) ScanOne(ctx context.Context, serialID, ownerID int64, searchType domain.SearchType) (domain.ScanResult, error) {
	serial, err := s.store.GetSerial(ctx, serialID, ownerID)
	if err != nil {
		return domain.ScanResult{}, err
	}

	result, err := s.scanSerial(ctx, serial, searchType, domain.ScanManual)
	if err != nil {
		return domain.ScanResult{}, err
	}

	if result.NewDetections > 0 {
		s.notify(ctx, domain.FleetScanResult{
			ScannedCount:        1,
			TotalNew:            result.NewDetections,
			TotalMarketplaceNew: result.MarketplaceDetections,
			Serials:             []domain.ScanResult{result},
		})
	}

	return result, nil
}

// scanSerial executes search, classification, dedup, and recording for one
// serial and appends the scan log entry. Assumes at most one in-flight scan
// per serial; the storage uniqueness constraint backstops duplicates.
func (s *Service) scanSerial(ctx context.Context, serial *domain.TrackedSerial, searchType domain.SearchType, scanType domain.ScanType) (domain.ScanResult, error) {
	results, err := s.collectResults(ctx, serial.SerialValue, searchType)
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("search serial %s: %w", serial.SerialValue, err)
	}

	counters := domain.ScanResult{
		SerialID:     serial.ID,
		SerialName:   serial.Name,
		TotalResults: len(results),
	}

	for _, raw := range results {
		if len(raw.URL) > domain.MaxSourceURLLength {
			s.warn("source url exceeds length bound, skipping", "length", len(raw.URL))
			continue
		}

		exists, err := s.store.DetectionExists(ctx, serial.ID, raw.URL)
		if err != nil {
			// Fatal for this result only; the rest of the batch proceeds.
			s.warn("dedup check failed", "url", raw.URL, "error", err)
			continue
		}
		if exists {
			continue
		}

		class := marketplace.Classify(raw.URL)
		det := domain.Detection{
			SerialID:      serial.ID,
			SourceURL:     raw.URL,
			Title:         raw.Title,
			Snippet:       raw.Snippet,
			SourceType:    raw.sourceType,
			IsMarketplace: class.IsMarketplace,
			ShopID:        class.ShopID,
			ProductID:     class.ProductID,
			ShopName:      class.ShopName,
			Status:        domain.StatusNew,
			DetectedAt:    s.now().UTC(),
		}

		inserted, err := s.store.CreateDetection(ctx, &det)
		if err != nil {
			s.warn("record detection failed", "url", raw.URL, "error", err)
			continue
		}
		if !inserted {
			// Duplicate within the batch or a concurrent writer beat us.
			continue
		}

		counters.NewDetections++
		if class.IsMarketplace {
			counters.MarketplaceDetections++
		}
	}

	completedAt := s.now().UTC()
	if err := s.store.TouchScanTimes(ctx, serial.ID, searchType.IncludesGeneral(), searchType.IncludesMarketplace(), completedAt); err != nil {
		return domain.ScanResult{}, fmt.Errorf("update scan times: %w", err)
	}

	logEntry := domain.ScanLog{
		SerialID:              serial.ID,
		ScanType:              effectiveScanType(searchType, scanType),
		TotalResults:          counters.TotalResults,
		NewDetections:         counters.NewDetections,
		MarketplaceDetections: counters.MarketplaceDetections,
		CompletedAt:           completedAt,
	}
	if err := s.store.CreateScanLog(ctx, &logEntry); err != nil {
		return domain.ScanResult{}, fmt.Errorf("write scan log: %w", err)
	}

	s.debug("scan completed",
		"serial", serial.SerialValue,
		"total", counters.TotalResults,
		"new", counters.NewDetections,
		"marketplace_new", counters.MarketplaceDetections)

	return counters, nil
}

// collectResults issues the scoped sub-queries and tags each hit with the
// query that produced it. Marketplace-domain URLs found by the general query
// are dropped before merging so source-type attribution stays meaningful; the
// dedup gate would catch the duplicate row either way.
func (s *Service) collectResults(ctx context.Context, serialValue string, searchType domain.SearchType) ([]taggedResult, error) {
	var merged []taggedResult

	if searchType.IncludesMarketplace() {
		hits, err := s.search.Search(ctx, search.Request{
			SerialValue: serialValue,
			Scope:       search.ScopeMarketplace,
			MaxResults:  s.maxResults,
		})
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			merged = append(merged, taggedResult{Result: hit, sourceType: domain.SourceMarketplace})
		}
	}

	if searchType.IncludesGeneral() {
		hits, err := s.search.Search(ctx, search.Request{
			SerialValue: serialValue,
			Scope:       search.ScopeGeneral,
			MaxResults:  s.maxResults,
		})
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			if searchType == domain.SearchAll && marketplace.MatchesDomain(hit.URL) {
				continue
			}
			merged = append(merged, taggedResult{Result: hit, sourceType: domain.SourceGeneral})
		}
	}

	return merged, nil
}

// effectiveScanType maps a marketplace-only search to its dedicated log type;
// mixed and general runs log as the run kind (manual or automatic).
func effectiveScanType(searchType domain.SearchType, scanType domain.ScanType) domain.ScanType {
	if searchType == domain.SearchMarketplaceOnly {
		return domain.ScanMarketplaceOnly
	}
	return scanType
}

func (s *Service) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Service) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
