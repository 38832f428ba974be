package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SerialWatch/internal/domain"
	"SerialWatch/internal/search"
)

func TestCreateSerialNormalizes(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, &fakeSearch{}, nil)

	serial, err := svc.CreateSerial(context.Background(), 1, "", "  ccah21lp1234t5 ")
	require.NoError(t, err)
	assert.Equal(t, "CCAH21LP1234T5", serial.SerialValue)
	assert.Equal(t, "CCAH21LP1234T5", serial.Name, "name defaults to the serial value")
	assert.True(t, serial.IsActive)
}

func TestCreateSerialValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, &fakeSearch{}, nil)

	_, err := svc.CreateSerial(context.Background(), 1, "x", "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreateSerial(context.Background(), 1, "x", strings.Repeat("A", 65))
	assert.ErrorIs(t, err, domain.ErrValidation)

	serials, listErr := svc.ListSerials(context.Background(), 1)
	require.NoError(t, listErr)
	assert.Empty(t, serials, "no partial state after validation failure")
}

func TestSameSerialAcrossOwners(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, &fakeSearch{}, nil)

	// Uniqueness of serial values is deliberately not global.
	_, err := svc.CreateSerial(context.Background(), 1, "mine", "SHARED1")
	require.NoError(t, err)
	_, err = svc.CreateSerial(context.Background(), 2, "theirs", "SHARED1")
	require.NoError(t, err)
}

func TestUpdateSerialKeepsActiveFlagWhenOmitted(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, &fakeSearch{}, nil)
	serial := mustCreateSerial(t, svc, 1, "old name", "SER1")

	off := false
	_, err := svc.UpdateSerial(context.Background(), serial.ID, 1, "old name", "SER1", &off)
	require.NoError(t, err)

	// A rename with no flag must not reactivate a disabled serial.
	renamed, err := svc.UpdateSerial(context.Background(), serial.ID, 1, "new name", "SER1", nil)
	require.NoError(t, err)
	assert.Equal(t, "new name", renamed.Name)
	assert.False(t, renamed.IsActive)

	on := true
	reactivated, err := svc.UpdateSerial(context.Background(), serial.ID, 1, "new name", "SER1", &on)
	require.NoError(t, err)
	assert.True(t, reactivated.IsActive)
}

func TestDeleteSerialCascades(t *testing.T) {
	t.Parallel()

	fs := &fakeSearch{
		marketplace: map[string][]search.Result{
			"SER1": {{URL: "https://shopee.tw/gone"}},
		},
	}
	svc, store := newTestService(t, fs, nil)
	serial := mustCreateSerial(t, svc, 1, "", "SER1")

	_, err := svc.ScanOne(context.Background(), serial.ID, 1, domain.SearchMarketplaceOnly)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSerial(context.Background(), serial.ID, 1))

	detections, err := svc.ListDetections(context.Background(), 1, domain.DetectionFilter{})
	require.NoError(t, err)
	assert.Empty(t, detections)

	logs, err := store.ListScanLogs(context.Background(), serial.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestListDetectionsMarketplaceFilter(t *testing.T) {
	t.Parallel()

	fs := &fakeSearch{
		marketplace: map[string][]search.Result{
			"SER1": {
				{URL: "https://shopee.tw/a-i.1.1"},
				{URL: "https://random.example.com/b"},
			},
		},
	}
	svc, _ := newTestService(t, fs, nil)
	serial := mustCreateSerial(t, svc, 1, "", "SER1")

	_, err := svc.ScanOne(context.Background(), serial.ID, 1, domain.SearchMarketplaceOnly)
	require.NoError(t, err)

	onMarketplace := true
	filtered, err := svc.ListDetections(context.Background(), 1, domain.DetectionFilter{Marketplace: &onMarketplace})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.True(t, filtered[0].IsMarketplace)

	offMarketplace := false
	filtered, err = svc.ListDetections(context.Background(), 1, domain.DetectionFilter{Marketplace: &offMarketplace})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.False(t, filtered[0].IsMarketplace)
}

func TestUpdateDetectionStatusAnyTransition(t *testing.T) {
	t.Parallel()

	fs := &fakeSearch{
		marketplace: map[string][]search.Result{
			"SER1": {{URL: "https://shopee.tw/x"}},
		},
	}
	svc, _ := newTestService(t, fs, nil)
	serial := mustCreateSerial(t, svc, 1, "", "SER1")

	_, err := svc.ScanOne(context.Background(), serial.ID, 1, domain.SearchMarketplaceOnly)
	require.NoError(t, err)

	detections, err := svc.ListDetections(context.Background(), 1, domain.DetectionFilter{})
	require.NoError(t, err)
	require.Len(t, detections, 1)
	detectionID := detections[0].ID

	// Any status is reachable from any other, in any order.
	transitions := []domain.DetectionStatus{
		domain.StatusProcessed,
		domain.StatusIgnored,
		domain.StatusNew,
		domain.StatusIgnored,
		domain.StatusProcessed,
	}
	for _, status := range transitions {
		require.NoError(t, svc.UpdateDetectionStatus(context.Background(), detectionID, 1, status))

		current, err := svc.ListDetections(context.Background(), 1, domain.DetectionFilter{})
		require.NoError(t, err)
		assert.Equal(t, status, current[0].Status)
	}
}

func TestUpdateDetectionStatusValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, &fakeSearch{}, nil)

	err := svc.UpdateDetectionStatus(context.Background(), 1, 1, "archived")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateDetectionStatusOwnerScoped(t *testing.T) {
	t.Parallel()

	fs := &fakeSearch{
		marketplace: map[string][]search.Result{
			"SER1": {{URL: "https://shopee.tw/x"}},
		},
	}
	svc, _ := newTestService(t, fs, nil)
	serial := mustCreateSerial(t, svc, 1, "", "SER1")

	_, err := svc.ScanOne(context.Background(), serial.ID, 1, domain.SearchMarketplaceOnly)
	require.NoError(t, err)

	detections, err := svc.ListDetections(context.Background(), 1, domain.DetectionFilter{})
	require.NoError(t, err)
	require.Len(t, detections, 1)

	err = svc.UpdateDetectionStatus(context.Background(), detections[0].ID, 99, domain.StatusIgnored)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListScanLogsOwnerScoped(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, &fakeSearch{}, nil)
	serial := mustCreateSerial(t, svc, 1, "", "SER1")

	_, err := svc.ListScanLogs(context.Background(), serial.ID, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
