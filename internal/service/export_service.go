package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/emadrasa/emadrasa-api/internal/models"
	appErrors "github.com/emadrasa/emadrasa-api/pkg/errors"
	"github.com/emadrasa/emadrasa-api/pkg/export"
)

// ExportFormat identifies a supported roster export encoding.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered bytes plus the response headers a handler
// needs to serve them.
type ExportResult struct {
	ContentType string
	Filename    string
	Data        []byte
}

type exportClassReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
}

type exportRosterReader interface {
	ListActiveByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error)
}

// ExportService renders class rosters as downloadable documents.
type ExportService struct {
	classes exportClassReader
	roster  exportRosterReader
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService instantiates ExportService.
func NewExportService(classes exportClassReader, roster exportRosterReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		classes: classes,
		roster:  roster,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// ClassRoster renders the active roster of a class in the requested format.
func (s *ExportService) ClassRoster(ctx context.Context, classID string, format ExportFormat) (*ExportResult, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format, expected csv or pdf")
	}

	class, err := s.classes.FindDetailByID(ctx, classID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	roster, err := s.roster.ListActiveByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}

	dataset := export.Dataset{
		Headers: []string{"No", "Student Name", "Status", "Enrollment Date", "Academic Year"},
	}
	for i, entry := range roster {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"No":              fmt.Sprintf("%d", i+1),
			"Student Name":    entry.StudentName,
			"Status":          string(entry.Status),
			"Enrollment Date": entry.EnrollmentDate.Format("2006-01-02"),
			"Academic Year":   entry.AcademicYear,
		})
	}

	title := fmt.Sprintf("%s Roster (%s)", class.Name, class.AcademicYear)
	switch format {
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster pdf")
		}
		return &ExportResult{
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("roster-%s.pdf", classID),
			Data:        data,
		}, nil
	default:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster csv")
		}
		return &ExportResult{
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("roster-%s.csv", classID),
			Data:        data,
		}, nil
	}
}
