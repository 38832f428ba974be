package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"SerialWatch/internal/domain"
	"SerialWatch/internal/ports"
)

// MemoryStore satisfies ports.Store without a database. Selected once at
// startup when no DSN is configured; also backs the use-case tests.
type MemoryStore struct {
	mu           sync.Mutex
	serials      map[int64]domain.TrackedSerial
	detections   map[int64]domain.Detection
	scanLogs     map[int64]domain.ScanLog
	nextSerial   int64
	nextDetect   int64
	nextScanLog  int64
	detectionKey map[detectionKey]int64
}

type detectionKey struct {
	serialID  int64
	sourceURL string
}

var _ ports.Store = (*MemoryStore)(nil)

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		serials:      map[int64]domain.TrackedSerial{},
		detections:   map[int64]domain.Detection{},
		scanLogs:     map[int64]domain.ScanLog{},
		detectionKey: map[detectionKey]int64{},
	}
}

// CreateSerial assigns an id and stamps timestamps.
func (m *MemoryStore) CreateSerial(_ context.Context, serial *domain.TrackedSerial) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSerial++
	serial.ID = m.nextSerial
	now := time.Now().UTC()
	serial.CreatedAt = now
	serial.UpdatedAt = now
	m.serials[serial.ID] = *serial
	return nil
}

// GetSerial returns an owned serial or domain.ErrNotFound.
func (m *MemoryStore) GetSerial(_ context.Context, id, ownerID int64) (*domain.TrackedSerial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	serial, ok := m.serials[id]
	if !ok || serial.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	copied := serial
	return &copied, nil
}

// ListSerials returns the owner's serials in insertion order.
func (m *MemoryStore) ListSerials(_ context.Context, ownerID int64, activeOnly bool) ([]domain.TrackedSerial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.TrackedSerial
	for _, serial := range m.serials {
		if serial.OwnerID != ownerID {
			continue
		}
		if activeOnly && !serial.IsActive {
			continue
		}
		out = append(out, serial)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateSerial replaces a stored serial, keeping creation metadata.
func (m *MemoryStore) UpdateSerial(_ context.Context, serial *domain.TrackedSerial) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.serials[serial.ID]
	if !ok || stored.OwnerID != serial.OwnerID {
		return domain.ErrNotFound
	}
	serial.CreatedAt = stored.CreatedAt
	serial.UpdatedAt = time.Now().UTC()
	m.serials[serial.ID] = *serial
	return nil
}

// DeleteSerial removes a serial and cascades detections and scan logs.
func (m *MemoryStore) DeleteSerial(_ context.Context, id, ownerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	serial, ok := m.serials[id]
	if !ok || serial.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(m.serials, id)

	for detID, det := range m.detections {
		if det.SerialID == id {
			delete(m.detections, detID)
			delete(m.detectionKey, detectionKey{det.SerialID, det.SourceURL})
		}
	}
	for logID, entry := range m.scanLogs {
		if entry.SerialID == id {
			delete(m.scanLogs, logID)
		}
	}
	return nil
}

// TouchScanTimes updates the last-scan timestamps selected by the flags.
func (m *MemoryStore) TouchScanTimes(_ context.Context, id int64, general, marketplace bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	serial, ok := m.serials[id]
	if !ok {
		return domain.ErrNotFound
	}
	if general {
		t := at
		serial.LastGeneralScanAt = &t
	}
	if marketplace {
		t := at
		serial.LastMarketplaceScanAt = &t
	}
	serial.UpdatedAt = at
	m.serials[id] = serial
	return nil
}

// ListOwnerIDs returns distinct owners holding at least one serial.
func (m *MemoryStore) ListOwnerIDs(_ context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := map[int64]struct{}{}
	var out []int64
	for _, serial := range m.serials {
		if _, ok := seen[serial.OwnerID]; ok {
			continue
		}
		seen[serial.OwnerID] = struct{}{}
		out = append(out, serial.OwnerID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// DetectionExists answers the dedup gate query.
func (m *MemoryStore) DetectionExists(_ context.Context, serialID int64, sourceURL string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.detectionKey[detectionKey{serialID, sourceURL}]
	return ok, nil
}

// CreateDetection inserts unless the (serial, URL) pair already exists; a
// duplicate is a no-op reported through the bool.
func (m *MemoryStore) CreateDetection(_ context.Context, det *domain.Detection) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := detectionKey{det.SerialID, det.SourceURL}
	if _, ok := m.detectionKey[key]; ok {
		return false, nil
	}

	m.nextDetect++
	det.ID = m.nextDetect
	det.CreatedAt = time.Now().UTC()
	if det.Status == "" {
		det.Status = domain.StatusNew
	}
	m.detections[det.ID] = *det
	m.detectionKey[key] = det.ID
	return true, nil
}

// ListDetections returns the owner's detections, newest first.
func (m *MemoryStore) ListDetections(_ context.Context, ownerID int64, filter domain.DetectionFilter) ([]domain.Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	owned := map[int64]struct{}{}
	for _, serial := range m.serials {
		if serial.OwnerID == ownerID {
			owned[serial.ID] = struct{}{}
		}
	}

	var out []domain.Detection
	for _, det := range m.detections {
		if _, ok := owned[det.SerialID]; !ok {
			continue
		}
		if filter.Marketplace != nil && det.IsMarketplace != *filter.Marketplace {
			continue
		}
		out = append(out, det)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// UpdateDetectionStatus moves an owned detection to the given status.
func (m *MemoryStore) UpdateDetectionStatus(_ context.Context, detectionID, ownerID int64, status domain.DetectionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	det, ok := m.detections[detectionID]
	if !ok {
		return domain.ErrNotFound
	}
	serial, ok := m.serials[det.SerialID]
	if !ok || serial.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	det.Status = status
	m.detections[detectionID] = det
	return nil
}

// CreateScanLog appends one immutable scan record.
func (m *MemoryStore) CreateScanLog(_ context.Context, entry *domain.ScanLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextScanLog++
	entry.ID = m.nextScanLog
	m.scanLogs[entry.ID] = *entry
	return nil
}

// ListScanLogs returns a serial's scan history, newest first.
func (m *MemoryStore) ListScanLogs(_ context.Context, serialID int64) ([]domain.ScanLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.ScanLog
	for _, entry := range m.scanLogs {
		if entry.SerialID == serialID {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
