package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
	"github.com/fleetdesk/fleetdesk-api/pkg/storage"
)

type exportAnalyticsStub struct{}

func (exportAnalyticsStub) FleetUtilization(_ context.Context, _, _ time.Time) ([]models.FleetUtilization, error) {
	return []models.FleetUtilization{
		{CarID: "car-1", Plate: "B 1234 XY", BookingCount: 4, BookedHours: 96, UtilizationRate: 0.4, Revenue: 2400},
	}, nil
}

func (exportAnalyticsStub) PartnerPayouts(_ context.Context, _, _ time.Time) ([]models.PartnerPayout, error) {
	return []models.PartnerPayout{
		{PartnerID: "p-1", CompanyName: "Andalan Rent", BookingCount: 4, GrossRevenue: 2400, PayoutShare: 0.7, PayoutAmount: 1680},
	}, nil
}

type exportBookingStub struct {
	bookings []models.Booking
}

func (s exportBookingStub) List(_ context.Context, _ models.BookingFilter) ([]models.Booking, int, error) {
	return s.bookings, len(s.bookings), nil
}

func (s exportBookingStub) FindByID(_ context.Context, id string) (*models.Booking, error) {
	for i := range s.bookings {
		if s.bookings[i].ID == id {
			return &s.bookings[i], nil
		}
	}
	return nil, assert.AnError
}

type exportCarStub struct{}

func (exportCarStub) FindByID(_ context.Context, id string) (*models.Car, error) {
	return &models.Car{ID: id, Plate: "B 1234 XY", Make: "Toyota", Model: "Avanza", Year: 2022}, nil
}

type exportDriverStub struct{}

func (exportDriverStub) FindByID(_ context.Context, id string) (*models.Driver, error) {
	return &models.Driver{ID: id, FullName: "Budi Santoso", LicenseNumber: "SIM-7788"}, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.SignedURLSigner) {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)

	driverID := "drv-1"
	bookings := exportBookingStub{bookings: []models.Booking{
		{
			ID:       "bkg-1",
			CarID:    "car-1",
			DriverID: &driverID,
			Title:    "Budi Santoso",
			Status:   models.StatusConfirmed,
			StartAt:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
			EndAt:    time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC),
			Amount:   2400,
		},
	}}

	svc := NewExportService(
		exportAnalyticsStub{},
		bookings,
		exportCarStub{},
		exportDriverStub{},
		store,
		signer,
		ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour},
		zap.NewNop(),
		nil,
		nil,
	)
	return svc, signer
}

func TestExportServiceGenerateBookingsCSV(t *testing.T) {
	svc, signer := newExportServiceForTest(t)

	job := &models.ExportJob{
		ID:     "job-1",
		Type:   models.ExportTypeBookings,
		Params: models.ExportJobParams{Format: models.ExportFormatCSV},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, models.ExportFormatCSV, result.Format)
	assert.Contains(t, result.URL, "/api/v1/exports/download/")
	assert.True(t, strings.HasSuffix(result.RelativePath, ".csv"))

	jobID, relPath, _, err := signer.Parse(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	content, err := os.ReadFile(file.Name())
	require.NoError(t, err)
	assert.Contains(t, string(content), "bkg-1")
	assert.Contains(t, string(content), "drv-1")
}

func TestExportServiceGenerateAgreementPDF(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	bookingID := "bkg-1"
	job := &models.ExportJob{
		ID:     "job-2",
		Type:   models.ExportTypeAgreement,
		Params: models.ExportJobParams{Format: models.ExportFormatPDF, BookingID: &bookingID},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, models.ExportFormatPDF, result.Format)
	assert.True(t, strings.HasSuffix(result.RelativePath, ".pdf"))

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	info, err := file.Stat()
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateUtilizationCSV(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	job := &models.ExportJob{
		ID:     "job-3",
		Type:   models.ExportTypeFleetUtilization,
		Params: models.ExportJobParams{Format: models.ExportFormatCSV},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	content, err := os.ReadFile(file.Name())
	require.NoError(t, err)
	assert.Contains(t, string(content), "B 1234 XY")
}

func TestExportServiceGenerateAgreementRequiresBooking(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	job := &models.ExportJob{
		ID:     "job-4",
		Type:   models.ExportTypeAgreement,
		Params: models.ExportJobParams{Format: models.ExportFormatPDF},
	}
	_, err := svc.Generate(context.Background(), job)
	assert.Error(t, err)
}

func TestExportServiceGenerateRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	job := &models.ExportJob{
		ID:     "job-5",
		Type:   models.ExportTypeBookings,
		Params: models.ExportJobParams{Format: models.ExportFormat("xlsx")},
	}
	_, err := svc.Generate(context.Background(), job)
	assert.Error(t, err)
}
