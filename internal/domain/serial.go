package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxSerialLength = 64

// MaxSourceURLLength bounds detection source URLs. Oversized URLs are
// discarded before recording, never truncated.
const MaxSourceURLLength = 2048

// Sentinel errors consulted with errors.Is across use cases and handlers.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

// TrackedSerial is a certification serial number registered for monitoring.
type TrackedSerial struct {
	ID                    int64      `json:"id"`
	OwnerID               int64      `json:"owner_id"`
	Name                  string     `json:"name"`
	SerialValue           string     `json:"serial_value"`
	IsActive              bool       `json:"is_active"`
	LastGeneralScanAt     *time.Time `json:"last_general_scan_at,omitempty"`
	LastMarketplaceScanAt *time.Time `json:"last_marketplace_scan_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// NormalizeSerialValue uppercases and trims a serial before validation or storage.
func NormalizeSerialValue(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// ValidateSerialValue enforces the non-empty and length invariants.
func ValidateSerialValue(value string) error {
	if value == "" {
		return fmt.Errorf("%w: serial value is empty", ErrValidation)
	}
	if len(value) > maxSerialLength {
		return fmt.Errorf("%w: serial value exceeds %d characters", ErrValidation, maxSerialLength)
	}
	return nil
}

// SourceType records which search sub-query produced a detection.
type SourceType string

const (
	SourceGeneral     SourceType = "general"
	SourceMarketplace SourceType = "marketplace"
)

// DetectionStatus enumerates user-driven lifecycle states; any state is
// reachable from any other.
type DetectionStatus string

const (
	StatusNew       DetectionStatus = "new"
	StatusProcessed DetectionStatus = "processed"
	StatusIgnored   DetectionStatus = "ignored"
)

// ValidStatus reports whether s is one of the known detection statuses.
func ValidStatus(s DetectionStatus) bool {
	switch s {
	case StatusNew, StatusProcessed, StatusIgnored:
		return true
	}
	return false
}

// Detection is a discovered URL referencing a tracked serial. The pair
// (SerialID, SourceURL) is unique; the whole pipeline exists to enforce that.
type Detection struct {
	ID            int64           `json:"id"`
	SerialID      int64           `json:"serial_id"`
	SourceURL     string          `json:"source_url"`
	Title         string          `json:"title,omitempty"`
	Snippet       string          `json:"snippet,omitempty"`
	SourceType    SourceType      `json:"source_type"`
	IsMarketplace bool            `json:"is_marketplace"`
	ShopID        string          `json:"shop_id,omitempty"`
	ProductID     string          `json:"product_id,omitempty"`
	ShopName      string          `json:"shop_name,omitempty"`
	Status        DetectionStatus `json:"status"`
	DetectedAt    time.Time       `json:"detected_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ScanType identifies what kind of run produced a scan log entry.
type ScanType string

const (
	ScanManual          ScanType = "manual"
	ScanAutomatic       ScanType = "automatic"
	ScanMarketplaceOnly ScanType = "marketplace-only"
)

// SearchType selects which sub-queries a scan issues.
type SearchType string

const (
	SearchAll             SearchType = "all"
	SearchMarketplaceOnly SearchType = "marketplace-only"
	SearchGeneralOnly     SearchType = "general-only"
)

// IncludesGeneral reports whether the scan issues the general query.
func (s SearchType) IncludesGeneral() bool {
	return s == SearchAll || s == SearchGeneralOnly
}

// IncludesMarketplace reports whether the scan issues the marketplace query.
func (s SearchType) IncludesMarketplace() bool {
	return s == SearchAll || s == SearchMarketplaceOnly
}

// ScanLog is the immutable record of one completed scan run for a serial.
type ScanLog struct {
	ID                    int64     `json:"id"`
	SerialID              int64     `json:"serial_id"`
	ScanType              ScanType  `json:"scan_type"`
	TotalResults          int       `json:"total_results"`
	NewDetections         int       `json:"new_detections"`
	MarketplaceDetections int       `json:"marketplace_detections"`
	CompletedAt           time.Time `json:"completed_at"`
}

// ScanResult carries the per-scan counters back to the caller.
type ScanResult struct {
	SerialID              int64  `json:"serial_id"`
	SerialName            string `json:"serial_name"`
	TotalResults          int    `json:"total_results"`
	NewDetections         int    `json:"new_detections"`
	MarketplaceDetections int    `json:"marketplace_detections"`
	Failed                bool   `json:"failed,omitempty"`
	FailReason            string `json:"fail_reason,omitempty"`
}

// FleetScanResult aggregates one orchestrated run across a user's serials.
type FleetScanResult struct {
	ScannedCount        int          `json:"scanned_count"`
	TotalNew            int          `json:"total_new"`
	TotalMarketplaceNew int          `json:"total_marketplace_new"`
	Serials             []ScanResult `json:"serials"`
}

// DetectionFilter narrows detection listings; Marketplace nil means no filter.
type DetectionFilter struct {
	Marketplace *bool
}
