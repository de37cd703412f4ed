// Package export renders ticket listings as spreadsheets.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/aflo-dev/aflo/internal/domain/entity"
)

// SheetName is the worksheet tickets are written to
const SheetName = "Tickets"

// ContentType is the MIME type of the rendered workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var ticketColumns = []interface{}{
	"Ticket ID", "Ticket Type", "Template ID", "Status", "Tenant", "Owner",
	"Owner At", "Target ID", "Created At", "Updated At", "Ticket Detail",
}

// TicketExporter writes tickets to an xlsx workbook
type TicketExporter struct {
	logger *zap.Logger
}

// NewTicketExporter creates a new exporter
func NewTicketExporter(logger *zap.Logger) *TicketExporter {
	return &TicketExporter{logger: logger}
}

// Write renders one header row plus one row per ticket to w
func (e *TicketExporter) Write(w io.Writer, tickets []*entity.Ticket) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &ticketColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	lastColumn, _ := excelize.ColumnNumberToName(len(ticketColumns))
	if err := f.SetCellStyle(SheetName, "A1", lastColumn+"1", header); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, t := range tickets {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			t.ID, t.TicketType, t.TicketTemplateID, t.StatusCode, t.TenantName, t.OwnerName,
			formatTime(t.OwnerAt), t.TargetID, formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
			e.detail(t),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write ticket %s: %w", t.ID, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		e.logger.Warn("Failed to freeze header row", zap.Error(err))
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	e.logger.Info("Ticket export rendered", zap.Int("rows", len(tickets)))
	return nil
}

// detail renders ticket_detail as compact JSON
func (e *TicketExporter) detail(t *entity.Ticket) string {
	if len(t.TicketDetail) == 0 {
		return ""
	}
	raw, err := json.Marshal(t.TicketDetail)
	if err != nil {
		e.logger.Warn("Failed to encode ticket detail", zap.String("ticket_id", t.ID), zap.Error(err))
		return ""
	}
	return string(raw)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
