package service

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders report datasets into downloadable files.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the package defaults.
func NewExportService(logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// ParseFormat accepts csv or pdf, case-insensitively. Empty means csv.
func ParseFormat(raw string) (dto.ReportFormat, error) {
	switch dto.ReportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", dto.ReportFormatCSV:
		return dto.ReportFormatCSV, nil
	case dto.ReportFormatPDF:
		return dto.ReportFormatPDF, nil
	default:
		return "", invalid("format must be csv or pdf")
	}
}

// Render encodes the dataset and names the file after entity and code.
func (s *ExportService) Render(format dto.ReportFormat, entity, code, title string, data export.Dataset) (*dto.ExportFile, error) {
	var (
		body        []byte
		err         error
		contentType string
	)
	switch format {
	case dto.ReportFormatPDF:
		body, err = s.pdf.Render(data, title)
		contentType = export.PDFContentType
	case dto.ReportFormatCSV, "":
		format = dto.ReportFormatCSV
		body, err = s.csv.Render(data)
		contentType = export.CSVContentType
	default:
		return nil, invalid("format must be csv or pdf")
	}
	if err != nil {
		return nil, internal(err, "failed to render export")
	}

	filename := export.Filename(entity, code, s.now(), string(format))
	s.logger.Debug("export rendered", zap.String("file", filename), zap.Int("rows", data.Len()), zap.Int("bytes", len(body)))
	return &dto.ExportFile{Filename: filename, ContentType: contentType, Body: body}, nil
}
