package google

import (
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"

	"github.com/sul-dlss/mais-person-client/config"
)

// NewDriveClient creates a Drive API client with the same credentials as the
// Sheets client. Returns nil, nil when the export is disabled.
func NewDriveClient(ctx context.Context, cfg config.Sheets) (*drive.Service, error) {
	opt, enabled, err := authenticatedClient(ctx, cfg, drive.DriveScope)
	if err != nil || !enabled {
		return nil, err
	}

	srv, err := drive.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return srv, nil
}

// CreateSpreadsheet creates a new spreadsheet in the configured Drive folder
// and returns its ID. The folder must be shared with the service account.
func CreateSpreadsheet(ctx context.Context, cfg config.Sheets, title string) (string, error) {
	if !cfg.Enabled {
		return "", fmt.Errorf("google sheets is not enabled")
	}
	if cfg.FolderID == "" {
		return "", fmt.Errorf("GOOGLE_DRIVE_FOLDER_ID not set - required for creating spreadsheets")
	}

	driveClient, err := NewDriveClient(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to create drive client: %w", err)
	}

	file := &drive.File{
		Name:     title,
		MimeType: "application/vnd.google-apps.spreadsheet",
		Parents:  []string{cfg.FolderID},
	}

	created, err := driveClient.Files.Create(file).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to create spreadsheet in folder: %w", err)
	}

	return created.Id, nil
}

// FormatSpreadsheetURL returns the edit URL for a spreadsheet.
func FormatSpreadsheetURL(spreadsheetID string) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit", spreadsheetID)
}
