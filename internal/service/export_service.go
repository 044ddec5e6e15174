package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
	"github.com/fleetdesk/fleetdesk-api/pkg/export"
	"github.com/fleetdesk/fleetdesk-api/pkg/storage"
)

type exportAnalyticsRepository interface {
	FleetUtilization(ctx context.Context, from, to time.Time) ([]models.FleetUtilization, error)
	PartnerPayouts(ctx context.Context, from, to time.Time) ([]models.PartnerPayout, error)
}

type exportBookingRepository interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
}

type exportCarRepository interface {
	FindByID(ctx context.Context, id string) (*models.Car, error)
}

type exportDriverRepository interface {
	FindByID(ctx context.Context, id string) (*models.Driver, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds export datasets and persists rendered files.
type ExportService struct {
	analytics exportAnalyticsRepository
	bookings  exportBookingRepository
	cars      exportCarRepository
	drivers   exportDriverRepository
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// NewExportService constructs an ExportService.
func NewExportService(analytics exportAnalyticsRepository, bookings exportBookingRepository, cars exportCarRepository, drivers exportDriverRepository, fileStore fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		analytics: analytics,
		bookings:  bookings,
		cars:      cars,
		drivers:   drivers,
		storage:   fileStore,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/exports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s.%s", strings.ToLower(string(job.Type)), timestamp, job.Params.Format)
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ExportTypeBookings:
		return s.buildBookingsDataset(ctx, job.Params)
	case models.ExportTypeFleetUtilization:
		return s.buildUtilizationDataset(ctx, job.Params)
	case models.ExportTypePartnerPayouts:
		return s.buildPayoutsDataset(ctx, job.Params)
	case models.ExportTypeAgreement:
		return s.buildAgreementDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

func (s *ExportService) buildBookingsDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	filter := models.BookingFilter{
		From:     params.From,
		To:       params.To,
		PageSize: 100,
	}
	if params.CarID != nil {
		filter.CarID = *params.CarID
	}
	var all []models.Booking
	for page := 1; ; page++ {
		filter.Page = page
		bookings, total, err := s.bookings.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, "", err
		}
		all = append(all, bookings...)
		if len(all) >= total || len(bookings) == 0 {
			break
		}
	}

	dataRows := make([]map[string]string, 0, len(all))
	for _, b := range all {
		driverID := ""
		if b.DriverID != nil {
			driverID = *b.DriverID
		}
		dataRows = append(dataRows, map[string]string{
			"ID":       b.ID,
			"Car":      b.CarID,
			"Driver":   driverID,
			"Customer": b.Title,
			"Status":   string(b.Status),
			"Start":    b.StartAt.UTC().Format(time.RFC3339),
			"End":      b.EndAt.UTC().Format(time.RFC3339),
			"Amount":   fmt.Sprintf("%.2f", b.Amount),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"ID", "Car", "Driver", "Customer", "Status", "Start", "End", "Amount"},
		Rows:    dataRows,
	}
	return dataset, "Bookings Export", nil
}

func (s *ExportService) buildUtilizationDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	from, to := exportRange(params)
	rows, err := s.analytics.FleetUtilization(ctx, from, to)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Plate":           row.Plate,
			"Bookings":        fmt.Sprintf("%d", row.BookingCount),
			"Booked Hours":    fmt.Sprintf("%.1f", row.BookedHours),
			"Utilization (%)": fmt.Sprintf("%.1f", row.UtilizationRate*100),
			"Revenue":         fmt.Sprintf("%.2f", row.Revenue),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Plate", "Bookings", "Booked Hours", "Utilization (%)", "Revenue"},
		Rows:    dataRows,
	}
	return dataset, "Fleet Utilization", nil
}

func (s *ExportService) buildPayoutsDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	from, to := exportRange(params)
	rows, err := s.analytics.PartnerPayouts(ctx, from, to)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Partner":       row.CompanyName,
			"Bookings":      fmt.Sprintf("%d", row.BookingCount),
			"Gross Revenue": fmt.Sprintf("%.2f", row.GrossRevenue),
			"Share":         fmt.Sprintf("%.2f", row.PayoutShare),
			"Payout":        fmt.Sprintf("%.2f", row.PayoutAmount),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Partner", "Bookings", "Gross Revenue", "Share", "Payout"},
		Rows:    dataRows,
	}
	return dataset, "Partner Payouts", nil
}

func (s *ExportService) buildAgreementDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	if params.BookingID == nil || *params.BookingID == "" {
		return export.Dataset{}, "", fmt.Errorf("agreement export requires a booking id")
	}
	booking, err := s.bookings.FindByID(ctx, *params.BookingID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	car, err := s.cars.FindByID(ctx, booking.CarID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	customer, license := booking.Title, ""
	if booking.DriverID != nil {
		driver, driverErr := s.drivers.FindByID(ctx, *booking.DriverID)
		if driverErr != nil {
			return export.Dataset{}, "", driverErr
		}
		customer, license = driver.FullName, driver.LicenseNumber
	}

	rows := []map[string]string{
		{"Field": "Booking ID", "Value": booking.ID},
		{"Field": "Customer", "Value": customer},
		{"Field": "License Number", "Value": license},
		{"Field": "Vehicle", "Value": fmt.Sprintf("%s %s (%d)", car.Make, car.Model, car.Year)},
		{"Field": "Plate", "Value": car.Plate},
		{"Field": "Pickup", "Value": booking.StartAt.UTC().Format(time.RFC3339)},
		{"Field": "Return", "Value": booking.EndAt.UTC().Format(time.RFC3339)},
		{"Field": "Total Amount", "Value": fmt.Sprintf("%.2f", booking.Amount)},
		{"Field": "Status", "Value": string(booking.Status)},
	}
	dataset := export.Dataset{
		Headers: []string{"Field", "Value"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Rental Agreement %s", booking.ID)
	return dataset, title, nil
}

func exportRange(params models.ExportJobParams) (time.Time, time.Time) {
	now := time.Now().UTC()
	from := now.AddDate(0, -1, 0)
	to := now
	if params.From != nil {
		from = *params.From
	}
	if params.To != nil {
		to = *params.To
	}
	return from, to
}
