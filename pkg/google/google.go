package google

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var ErrMissingCredentials = errors.New("google service account credentials are not configured")

// CredentialsJSON returns the service account key, either inline or read from
// the file it points to.
func CredentialsJSON(value string) ([]byte, error) {
	if value == "" {
		return nil, ErrMissingCredentials
	}
	if value[0] == '{' {
		return []byte(value), nil
	}

	raw, err := os.ReadFile(value)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}
	return raw, nil
}

// NewSheetsService authenticates with a service account that the target
// spreadsheet has been shared with.
func NewSheetsService(ctx context.Context, credentialsJSON []byte, opts ...option.ClientOption) (*sheets.Service, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, append([]option.ClientOption{option.WithCredentials(creds)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return svc, nil
}
