package roster

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/sheets/v4"
)

// SheetsWriter writes cell values to a spreadsheet tab.
type SheetsWriter interface {
	WriteToSheet(ctx context.Context, spreadsheetID, sheetTab string, data [][]interface{}) error
	ClearSheet(ctx context.Context, spreadsheetID, sheetTab string) error
}

// RealSheetsWriter implements SheetsWriter using the Google Sheets API.
type RealSheetsWriter struct {
	service *sheets.Service
}

func NewRealSheetsWriter(service *sheets.Service) *RealSheetsWriter {
	return &RealSheetsWriter{service: service}
}

func (w *RealSheetsWriter) WriteToSheet(ctx context.Context, spreadsheetID, sheetTab string, data [][]interface{}) error {
	_, err := w.service.Spreadsheets.Values.Update(
		spreadsheetID,
		sheetTab+"!A1",
		&sheets.ValueRange{Values: data},
	).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (w *RealSheetsWriter) ClearSheet(ctx context.Context, spreadsheetID, sheetTab string) error {
	_, err := w.service.Spreadsheets.Values.Clear(
		spreadsheetID,
		sheetTab+"!A:Z",
		&sheets.ClearValuesRequest{},
	).Context(ctx).Do()
	return err
}

// Exporter replaces the contents of one sheet tab with a roster.
type Exporter struct {
	writer        SheetsWriter
	spreadsheetID string
	tab           string
}

func NewExporter(writer SheetsWriter, spreadsheetID, tab string) *Exporter {
	return &Exporter{writer: writer, spreadsheetID: spreadsheetID, tab: tab}
}

// Export clears the tab and writes the header and rows.
func (e *Exporter) Export(ctx context.Context, rows []Row) error {
	start := time.Now()

	if err := e.writer.ClearSheet(ctx, e.spreadsheetID, e.tab); err != nil {
		// The write below can still succeed against a new or unclearable tab.
		slog.Warn("Failed to clear sheet tab", "tab", e.tab, "error", err)
	}

	if err := e.writer.WriteToSheet(ctx, e.spreadsheetID, e.tab, FormatRows(rows)); err != nil {
		return fmt.Errorf("writing to %s: %w", e.tab, err)
	}

	slog.Info("Roster export complete",
		"spreadsheet_id", e.spreadsheetID,
		"tab", e.tab,
		"rows", len(rows),
		"duration", time.Since(start),
	)
	return nil
}
