package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sul-dlss/mais-person-client/config"
	"github.com/sul-dlss/mais-person-client/google"
	"github.com/sul-dlss/mais-person-client/roster"
)

// SheetsWriterFactory opens the export destination, creating a spreadsheet
// titled title when none is configured.
type SheetsWriterFactory func(ctx context.Context, cfg config.Sheets, title string) (w roster.SheetsWriter, spreadsheetID string, err error)

func newGoogleSheetsWriter(ctx context.Context, cfg config.Sheets, title string) (roster.SheetsWriter, string, error) {
	svc, err := google.NewSheetsClient(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	if svc == nil {
		return nil, "", fmt.Errorf("google sheets is not enabled")
	}

	id := cfg.SpreadsheetID
	if id == "" {
		id, err = google.CreateSpreadsheet(ctx, cfg, title)
		if err != nil {
			return nil, "", err
		}
	}
	return roster.NewRealSheetsWriter(svc), id, nil
}

type rosterOptions struct {
	format      string
	file        string
	concurrency int
	sheets      bool
}

func newRosterCmd(app *App) *cobra.Command {
	var opts rosterOptions

	cmd := &cobra.Command{
		Use:   "roster [sunetid...]",
		Short: "Look up several people and print or export a roster",
		PreRunE: func(*cobra.Command, []string) error {
			if opts.format == formatXML {
				return usageErrorf("invalid format %q for roster", opts.format)
			}
			return checkFormat(opts.format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runRoster(cmd.Context(), opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", formatSummary, "output format: summary, json or dump")
	cmd.Flags().StringVar(&opts.file, "file", "", "file of sunetids, one per line")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "parallel lookups (default from config)")
	cmd.Flags().BoolVar(&opts.sheets, "sheets", false, "export the roster to Google Sheets")
	return cmd
}

func (a *App) runRoster(ctx context.Context, opts rosterOptions, args []string) error {
	ids := args
	if opts.file != "" {
		fromFile, err := readIDs(opts.file)
		if err != nil {
			return err
		}
		ids = append(ids, fromFile...)
	}
	if len(ids) == 0 {
		return usageErrorf("roster needs sunetids as arguments or --file")
	}

	concurrency := opts.concurrency
	if concurrency <= 0 {
		concurrency = a.cfg.MAIS.Concurrency
	}

	entries, err := roster.Collect(ctx, a.client, ids, concurrency)
	if err != nil {
		return err
	}
	rows := roster.Rows(entries)

	switch opts.format {
	case formatJSON:
		err = writeJSON(a.Out, rows)
	case formatDump:
		writeDump(a.Out, rows)
	default:
		err = writeRosterTable(a.Out, rows)
	}
	if err != nil || !opts.sheets {
		return err
	}

	sheetsCfg := a.cfg.Sheets
	sheetsCfg.Enabled = true
	title := "MaIS roster " + time.Now().Format("2006-01-02")
	writer, spreadsheetID, err := a.NewSheetsWriter(ctx, sheetsCfg, title)
	if err != nil {
		return fmt.Errorf("opening Google Sheets: %w", err)
	}
	if err := roster.NewExporter(writer, spreadsheetID, sheetsCfg.SheetName).Export(ctx, rows); err != nil {
		return err
	}
	fmt.Fprintln(a.Err, "Exported to", google.FormatSpreadsheetURL(spreadsheetID))
	return nil
}

func readIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sunetid file: %w", err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sunetid file: %w", err)
	}
	return ids, nil
}

func writeRosterTable(w io.Writer, rows []roster.Row) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(roster.Header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r.Values(), "\t"))
	}
	return tw.Flush()
}
