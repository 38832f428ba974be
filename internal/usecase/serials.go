package usecase

import (
	"context"
	"fmt"
	"strings"

	"SerialWatch/internal/domain"
)

// CreateSerial validates, normalizes, and registers a serial for monitoring.
func (s *Service) CreateSerial(ctx context.Context, ownerID int64, name, value string) (*domain.TrackedSerial, error) {
	value = domain.NormalizeSerialValue(value)
	if err := domain.ValidateSerialValue(value); err != nil {
		return nil, err
	}

	if strings.TrimSpace(name) == "" {
		name = value
	}

	serial := &domain.TrackedSerial{
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(name),
		SerialValue: value,
		IsActive:    true,
	}

	if err := s.store.CreateSerial(ctx, serial); err != nil {
		return nil, fmt.Errorf("create serial: %w", err)
	}

	return serial, nil
}

// UpdateSerial edits name, value, and the active flag of an owned serial.
// A nil active keeps the stored flag, so a rename cannot reactivate a
// disabled serial.
func (s *Service) UpdateSerial(ctx context.Context, serialID, ownerID int64, name, value string, active *bool) (*domain.TrackedSerial, error) {
	serial, err := s.store.GetSerial(ctx, serialID, ownerID)
	if err != nil {
		return nil, err
	}

	value = domain.NormalizeSerialValue(value)
	if err := domain.ValidateSerialValue(value); err != nil {
		return nil, err
	}

	serial.Name = strings.TrimSpace(name)
	if serial.Name == "" {
		serial.Name = value
	}
	serial.SerialValue = value
	if active != nil {
		serial.IsActive = *active
	}

	if err := s.store.UpdateSerial(ctx, serial); err != nil {
		return nil, fmt.Errorf("update serial: %w", err)
	}

	return serial, nil
}

// DeleteSerial removes an owned serial; the store cascades detections and
// scan logs.
func (s *Service) DeleteSerial(ctx context.Context, serialID, ownerID int64) error {
	return s.store.DeleteSerial(ctx, serialID, ownerID)
}

// ListSerials returns all serials the user tracks, active or not.
func (s *Service) ListSerials(ctx context.Context, ownerID int64) ([]domain.TrackedSerial, error) {
	return s.store.ListSerials(ctx, ownerID, false)
}

// ListDetections returns the user's detections, optionally narrowed by the
// marketplace flag.
func (s *Service) ListDetections(ctx context.Context, ownerID int64, filter domain.DetectionFilter) ([]domain.Detection, error) {
	return s.store.ListDetections(ctx, ownerID, filter)
}

// UpdateDetectionStatus moves an owned detection to any of the known statuses.
func (s *Service) UpdateDetectionStatus(ctx context.Context, detectionID, ownerID int64, status domain.DetectionStatus) error {
	if !domain.ValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}
	return s.store.UpdateDetectionStatus(ctx, detectionID, ownerID, status)
}

// ListScanLogs returns scan history for an owned serial, newest first.
func (s *Service) ListScanLogs(ctx context.Context, serialID, ownerID int64) ([]domain.ScanLog, error) {
	if _, err := s.store.GetSerial(ctx, serialID, ownerID); err != nil {
		return nil, err
	}
	return s.store.ListScanLogs(ctx, serialID)
}
