package ports

import (
	"context"
	"time"

	"SerialWatch/internal/domain"
	"SerialWatch/internal/search"
)

// SearchProvider pulls raw search results for a serial value within one scope.
// Implementations return an empty slice, not an error, when nothing matched.
type SearchProvider interface {
	Search(ctx context.Context, req search.Request) ([]search.Result, error)
}

// Notifier delivers outbound alerts; callers treat failures as non-fatal.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Message is the single outbound notification payload.
type Message struct {
	Title   string
	Content string
}

// SerialStore persists tracked serials, scoped by owner everywhere it reads.
type SerialStore interface {
	CreateSerial(ctx context.Context, serial *domain.TrackedSerial) error
	GetSerial(ctx context.Context, id, ownerID int64) (*domain.TrackedSerial, error)
	ListSerials(ctx context.Context, ownerID int64, activeOnly bool) ([]domain.TrackedSerial, error)
	UpdateSerial(ctx context.Context, serial *domain.TrackedSerial) error
	DeleteSerial(ctx context.Context, id, ownerID int64) error
	TouchScanTimes(ctx context.Context, id int64, general, marketplace bool, at time.Time) error
	ListOwnerIDs(ctx context.Context) ([]int64, error)
}

// DetectionStore persists detections and answers the dedup existence query.
// CreateDetection must treat a duplicate (serial, URL) pair as a no-op and
// report whether the row was actually inserted.
type DetectionStore interface {
	DetectionExists(ctx context.Context, serialID int64, sourceURL string) (bool, error)
	CreateDetection(ctx context.Context, det *domain.Detection) (bool, error)
	ListDetections(ctx context.Context, ownerID int64, filter domain.DetectionFilter) ([]domain.Detection, error)
	UpdateDetectionStatus(ctx context.Context, detectionID, ownerID int64, status domain.DetectionStatus) error
}

// ScanLogStore appends immutable per-scan records.
type ScanLogStore interface {
	CreateScanLog(ctx context.Context, log *domain.ScanLog) error
	ListScanLogs(ctx context.Context, serialID int64) ([]domain.ScanLog, error)
}

// Store is the full storage collaborator wired once at startup.
type Store interface {
	SerialStore
	DetectionStore
	ScanLogStore
}

// Scheduler controls when automatic sweeps execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
