package google

import (
	"context"
	"strings"
	"testing"

	"github.com/sul-dlss/mais-person-client/config"
)

func TestNewDriveClient_Disabled(t *testing.T) {
	client, err := NewDriveClient(context.Background(), config.Sheets{})
	if err != nil {
		t.Errorf("Expected no error when disabled, got: %v", err)
	}
	if client != nil {
		t.Error("Expected nil client when disabled")
	}
}

func TestNewDriveClient_EnabledButNoCredentials(t *testing.T) {
	_, err := NewDriveClient(context.Background(), config.Sheets{
		Enabled: true,
		KeyFile: "/nonexistent/path/to/credentials.json",
	})
	if err == nil {
		t.Error("Expected error when enabled but credentials file doesn't exist")
	}
}

func TestNewDriveClient_ValidCredentials(t *testing.T) {
	keyFile := writeKeyFile(t, testCredentials)

	client, err := NewDriveClient(context.Background(), config.Sheets{Enabled: true, KeyFile: keyFile})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if client == nil {
		t.Error("Expected a drive client")
	}
}

func TestCreateSpreadsheet_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Sheets
		wantErr string
	}{
		{"Disabled", config.Sheets{FolderID: "folder"}, "not enabled"},
		{"No folder", config.Sheets{Enabled: true}, "GOOGLE_DRIVE_FOLDER_ID"},
		{"Bad credentials", config.Sheets{Enabled: true, FolderID: "folder", KeyFile: "/nonexistent.json"}, "drive client"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateSpreadsheet(context.Background(), tt.cfg, "Roster")
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestFormatSpreadsheetURL(t *testing.T) {
	got := FormatSpreadsheetURL("abc123")
	want := "https://docs.google.com/spreadsheets/d/abc123/edit"
	if got != want {
		t.Errorf("FormatSpreadsheetURL() = %q, want %q", got, want)
	}
}
