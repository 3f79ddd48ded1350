// Package google builds the Google API clients used by the roster export.
package google

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/sul-dlss/mais-person-client/config"
)

// NewSheetsClient creates a Sheets API client from service account
// credentials. Returns nil, nil when the export is disabled.
func NewSheetsClient(ctx context.Context, cfg config.Sheets) (*sheets.Service, error) {
	opt, enabled, err := authenticatedClient(ctx, cfg, sheets.SpreadsheetsScope)
	if err != nil || !enabled {
		return nil, err
	}

	srv, err := sheets.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return srv, nil
}

// authenticatedClient returns an HTTP client option carrying a JWT token
// source for the given scopes.
func authenticatedClient(ctx context.Context, cfg config.Sheets, scopes ...string) (option.ClientOption, bool, error) {
	if !cfg.Enabled {
		return nil, false, nil
	}

	credJSON, err := credentialsJSON(cfg.KeyFile)
	if err != nil {
		return nil, true, fmt.Errorf("failed to get credentials: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(credJSON, scopes...)
	if err != nil {
		return nil, true, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return option.WithHTTPClient(jwt.Client(ctx)), true, nil
}

// credentialsJSON reads the service account key file.
func credentialsJSON(keyFile string) ([]byte, error) {
	keyFile = strings.TrimSpace(keyFile)
	if keyFile == "" {
		return nil, fmt.Errorf("no service account key file configured")
	}

	data, err := os.ReadFile(keyFile) //nolint:gosec // G304: path is from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", keyFile, err)
	}
	return data, nil
}
