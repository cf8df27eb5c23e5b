package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/commerce-dashboard-api/internal/dto"
	"github.com/noah-isme/commerce-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/commerce-dashboard-api/pkg/errors"
	"github.com/noah-isme/commerce-dashboard-api/pkg/export"
)

// ExportFormat names a supported download format.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

type topProductsSource interface {
	TopProducts(ctx context.Context, filter models.TopProductsFilter) (*dto.TopProductsResponse, bool, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders dashboard tables into downloadable files.
type ExportService struct {
	source    topProductsSource
	renderers map[ExportFormat]datasetRenderer
	logger    *zap.Logger
	now       func() time.Time
}

func NewExportService(source topProductsSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		source: source,
		renderers: map[ExportFormat]datasetRenderer{
			ExportCSV: export.NewCSVExporter(),
			ExportPDF: export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// TopProducts renders the top products table in the requested format.
func (s *ExportService) TopProducts(ctx context.Context, filter models.TopProductsFilter, format ExportFormat) (*ExportFile, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	table, _, err := s.source.TopProducts(ctx, filter)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Title:   fmt.Sprintf("Top products (%s)", periodLabel(filter)),
		Headers: []string{"product_id", "product_code", "product_name", "device", "total_qty", "total_sales", "last_order_date"},
		Rows:    make([][]string, 0, len(table.Items)),
	}
	for _, item := range table.Items {
		lastOrder := ""
		if item.LastOrderDate != nil {
			lastOrder = item.LastOrderDate.Format(dateLayout)
		}
		dataset.Rows = append(dataset.Rows, []string{
			strconv.FormatInt(item.ProductID, 10),
			item.ProductCode,
			item.ProductName,
			item.Device,
			strconv.FormatInt(item.TotalQty, 10),
			strconv.FormatInt(item.TotalSales, 10),
			lastOrder,
		})
	}

	data, err := renderer.Render(dataset)
	if err != nil {
		s.logger.Error("render export failed", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("top-products-%s.%s", s.now().UTC().Format("20060102-150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

func periodLabel(filter models.TopProductsFilter) string {
	if filter.From == nil && filter.To == nil {
		return "all time"
	}
	return fmt.Sprintf("%s to %s", dateKey(filter.From), dateKey(filter.To))
}
