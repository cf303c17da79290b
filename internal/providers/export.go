package providers

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// AttemptExporter renders dispatch attempts as a spreadsheet for the
// operations team.
type AttemptExporter struct {
	repo Repository
}

func NewAttemptExporter(repo Repository) *AttemptExporter {
	return &AttemptExporter{repo: repo}
}

// Export writes the attempts since the given time into an xlsx workbook with
// one summary sheet per provider health review.
func (e *AttemptExporter) Export(ctx context.Context, since time.Time, limit int) (*bytes.Buffer, error) {
	attempts, err := e.repo.ListAttempts(ctx, since, limit)
	if err != nil {
		return nil, err
	}
	providers, err := e.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(providers))
	for _, p := range providers {
		names[p.ID.String()] = p.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Attempts"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Attempt At", "Capability", "Provider", "Succeeded", "Latency (ms)", "Error"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, attempt := range attempts {
		name := names[attempt.ProviderID.String()]
		if name == "" {
			name = attempt.ProviderID.String()
		}
		values := []any{
			attempt.AttemptAt.Format(time.RFC3339),
			string(attempt.Capability),
			name,
			attempt.Succeeded,
			attempt.LatencyMs,
			attempt.ErrorText,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	e.writeSummary(f, providers)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render attempts workbook: %w", err)
	}
	return buf, nil
}

func (e *AttemptExporter) writeSummary(f *excelize.File, providers []*ProviderConfig) {
	const sheet = "Providers"
	f.NewSheet(sheet)

	headers := []string{"Capability", "Name", "Priority", "Enabled", "Health", "Success Rate", "Avg Latency (ms)", "Unit Cost"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, p := range providers {
		values := []any{
			string(p.Capability),
			p.Name,
			p.Priority,
			p.Enabled,
			string(p.Health),
			p.SuccessRate,
			p.AvgLatency,
			p.UnitCost.String(),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}
}
