package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/types"
)

type ExportOptions struct {
	IncludeConfidence bool
	IncludeSource     bool
}

type ExportService interface {
	ExportCSV(ctx context.Context, reviewID, userID uuid.UUID, opts ExportOptions) ([]byte, string, error)
	ExportJSON(ctx context.Context, reviewID, userID uuid.UUID, opts ExportOptions) (map[string]any, error)
}

type exportService struct {
	log     *logger.Logger
	reviews ReviewService
}

func NewExportService(log *logger.Logger, reviews ReviewService) ExportService {
	return &exportService{
		log:     log.With("service", "ExportService"),
		reviews: reviews,
	}
}

// ExportCSV renders the review matrix one file per row, one extraction
// column per CSV column, with optional confidence and source columns
// appended after each value column. Cells without a stored result are left
// blank.
func (es *exportService) ExportCSV(ctx context.Context, reviewID, userID uuid.UUID, opts ExportOptions) ([]byte, string, error) {
	detail, err := es.reviews.GetReview(ctx, reviewID, userID, true)
	if err != nil {
		return nil, "", err
	}

	cells := make(map[[2]uuid.UUID]*types.ReviewResult, len(detail.Results))
	for _, r := range detail.Results {
		cells[[2]uuid.UUID{r.FileID, r.ColumnID}] = r
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, 0, len(detail.Columns)+1)
	header = append(header, "File Name")
	for _, c := range detail.Columns {
		header = append(header, c.ColumnName)
		if opts.IncludeConfidence {
			header = append(header, c.ColumnName+"_confidence")
		}
		if opts.IncludeSource {
			header = append(header, c.ColumnName+"_source")
		}
	}
	if err := w.Write(header); err != nil {
		return nil, "", fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, f := range detail.Files {
		row := make([]string, 0, len(header))
		row = append(row, f.OriginalFilename)
		for _, c := range detail.Columns {
			result := cells[[2]uuid.UUID{f.ID, c.ID}]
			val := ""
			if result != nil && result.ExtractedValue != nil {
				val = *result.ExtractedValue
			}
			row = append(row, val)
			if opts.IncludeConfidence {
				confidence := ""
				if result != nil {
					confidence = strconv.FormatFloat(result.ConfidenceScore, 'f', -1, 64)
				}
				row = append(row, confidence)
			}
			if opts.IncludeSource {
				source := ""
				if result != nil {
					source = result.SourceReference
				}
				row = append(row, source)
			}
		}
		if err := w.Write(row); err != nil {
			return nil, "", fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("failed to flush csv: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.csv", detail.Review.Name, time.Now().UTC().Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}

func (es *exportService) ExportJSON(ctx context.Context, reviewID, userID uuid.UUID, opts ExportOptions) (map[string]any, error) {
	detail, err := es.reviews.GetReview(ctx, reviewID, userID, true)
	if err != nil {
		return nil, err
	}

	cells := make(map[[2]uuid.UUID]*types.ReviewResult, len(detail.Results))
	for _, r := range detail.Results {
		cells[[2]uuid.UUID{r.FileID, r.ColumnID}] = r
	}

	rows := make([]map[string]any, 0, len(detail.Files))
	for _, f := range detail.Files {
		row := map[string]any{
			"file_id":   f.ID,
			"file_name": f.OriginalFilename,
		}
		fields := make(map[string]any, len(detail.Columns))
		for _, c := range detail.Columns {
			result, ok := cells[[2]uuid.UUID{f.ID, c.ID}]
			if !ok {
				fields[c.ColumnName] = nil
				continue
			}
			entry := map[string]any{"value": result.ExtractedValue}
			if opts.IncludeConfidence {
				entry["confidence_score"] = result.ConfidenceScore
			}
			if opts.IncludeSource {
				entry["source_reference"] = result.SourceReference
			}
			fields[c.ColumnName] = entry
		}
		row["fields"] = fields
		rows = append(rows, row)
	}

	columns := make([]map[string]any, 0, len(detail.Columns))
	for _, c := range detail.Columns {
		columns = append(columns, map[string]any{
			"id":          c.ID,
			"column_name": c.ColumnName,
			"prompt":      c.Prompt,
			"data_type":   c.DataType,
		})
	}

	return map[string]any{
		"review": map[string]any{
			"id":          detail.Review.ID,
			"name":        detail.Review.Name,
			"description": detail.Review.Description,
			"status":      detail.Review.Status,
			"exported_at": time.Now().UTC(),
		},
		"columns": columns,
		"rows":    rows,
	}, nil
}
