package usecase

import (
	"context"
	"fmt"
	"strings"

	"SerialWatch/internal/domain"
	"SerialWatch/internal/ports"
)

// ScanAllForUser runs the pipeline across every active serial the user tracks.
// Serials execute sequentially; a failing serial is marked and skipped, never
// aborting the run. One notification fires per run when anything new surfaced.
func (s *Service) ScanAllForUser(ctx context.Context, ownerID int64, searchType domain.SearchType) (domain.FleetScanResult, error) {
	return s.scanFleet(ctx, ownerID, searchType, domain.ScanManual)
}

// SweepUser is ScanAllForUser for scheduler-driven runs; scan logs carry the
// automatic type so history distinguishes user action from the sweep.
func (s *Service) SweepUser(ctx context.Context, ownerID int64, searchType domain.SearchType) (domain.FleetScanResult, error) {
	return s.scanFleet(ctx, ownerID, searchType, domain.ScanAutomatic)
}

func (s *Service) scanFleet(ctx context.Context, ownerID int64, searchType domain.SearchType, scanType domain.ScanType) (domain.FleetScanResult, error) {
	serials, err := s.store.ListSerials(ctx, ownerID, true)
	if err != nil {
		return domain.FleetScanResult{}, fmt.Errorf("list active serials: %w", err)
	}

	var fleet domain.FleetScanResult
	for i := range serials {
		serial := serials[i]
		result, err := s.scanSerial(ctx, &serial, searchType, scanType)
		if err != nil {
			s.warn("serial scan failed", "serial", serial.SerialValue, "error", err)
			fleet.Serials = append(fleet.Serials, domain.ScanResult{
				SerialID:   serial.ID,
				SerialName: serial.Name,
				Failed:     true,
				FailReason: err.Error(),
			})
			continue
		}

		fleet.ScannedCount++
		fleet.TotalNew += result.NewDetections
		fleet.TotalMarketplaceNew += result.MarketplaceDetections
		fleet.Serials = append(fleet.Serials, result)
	}

	if fleet.TotalNew > 0 {
		s.notify(ctx, fleet)
	}

	return fleet, nil
}

// SweepAll enumerates every owner with tracked serials and sweeps each one.
// Used by the interval scheduler; per-owner failures are logged and skipped.
func (s *Service) SweepAll(ctx context.Context, searchType domain.SearchType) error {
	owners, err := s.store.ListOwnerIDs(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}

	for _, ownerID := range owners {
		if _, err := s.SweepUser(ctx, ownerID, searchType); err != nil {
			s.warn("sweep failed for owner", "owner_id", ownerID, "error", err)
		}
	}

	return nil
}

// notify fires the single per-run notification. Delivery failures are logged
// and swallowed; they never fail or roll back the scan.
func (s *Service) notify(ctx context.Context, fleet domain.FleetScanResult) {
	if s.notifier == nil {
		return
	}

	msg := ports.Message{
		Title:   fmt.Sprintf("SerialWatch: %d new detection(s)", fleet.TotalNew),
		Content: buildNotificationBody(fleet),
	}

	if err := s.notifier.Send(ctx, msg); err != nil {
		s.warn("notification delivery failed", "error", err)
	}
}

func buildNotificationBody(fleet domain.FleetScanResult) string {
	var b strings.Builder
	for _, serial := range fleet.Serials {
		if serial.Failed || serial.NewDetections == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: %d new listing(s)", serial.SerialName, serial.NewDetections)
		if serial.MarketplaceDetections > 0 {
			fmt.Fprintf(&b, " (%d on marketplace)", serial.MarketplaceDetections)
		}
		b.WriteString("\n")
	}
	return b.String()
}
