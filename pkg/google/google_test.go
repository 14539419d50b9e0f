package google

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsJSON(t *testing.T) {
	_, err := CredentialsJSON("")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	raw, err := CredentialsJSON(`{"type":"service_account"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_account"}`, string(raw))

	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600))
	raw, err = CredentialsJSON(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "service_account")

	_, err = CredentialsJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNewSheetsServiceRejectsGarbage(t *testing.T) {
	_, err := NewSheetsService(context.Background(), []byte("not json"))
	assert.Error(t, err)
}
