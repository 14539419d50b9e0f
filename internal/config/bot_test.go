package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearBotEnv(t *testing.T) {
	for _, key := range []string{
		"MATCH_THRESHOLD", "DEDUP_THRESHOLD", "NAME_WEIGHT", "ADDRESS_WEIGHT",
		"MAX_CANDIDATES", "SESSION_WINDOW", "STORE_TIMEOUT", "RECORD_CACHE_TTL",
		"QUESTIONNAIRE", "RECORD_BACKEND", "SESSION_BACKEND", "SPREADSHEET_ID",
		"SHEET_NAME", "GOOGLE_SERVICE_ACCOUNT_JSON", "WHATSAPP_ENABLED", "NOTIFY_PHONE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadBotConfigDefaults(t *testing.T) {
	clearBotEnv(t)
	t.Setenv("SPREADSHEET_ID", "sheet-1")

	cfg, err := LoadBotConfig()
	require.NoError(t, err)

	assert.Equal(t, 0.70, cfg.Matcher.MatchThreshold)
	assert.Equal(t, 0.90, cfg.Matcher.DedupThreshold)
	assert.Equal(t, 5, cfg.Matcher.MaxCandidates)
	assert.Equal(t, 30*time.Minute, cfg.SessionWindow)
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 120*time.Second, cfg.RecordCacheTTL)
	assert.Equal(t, BackendSheets, cfg.RecordBackend)
	assert.Equal(t, BackendMemory, cfg.SessionBackend)
	assert.Equal(t, "Hotels", cfg.SheetName)
	assert.False(t, cfg.WhatsAppEnabled)
	assert.Len(t, cfg.Questions, 3)
}

func TestLoadBotConfigOverrides(t *testing.T) {
	clearBotEnv(t)
	t.Setenv("RECORD_BACKEND", "postgres")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("MATCH_THRESHOLD", "0.6")
	t.Setenv("DEDUP_THRESHOLD", "0.95")
	t.Setenv("MAX_CANDIDATES", "3")
	t.Setenv("SESSION_WINDOW", "10m")
	t.Setenv("RECORD_CACHE_TTL", "0s")
	t.Setenv("WHATSAPP_ENABLED", "true")
	t.Setenv("QUESTIONNAIRE", "stars=How many stars?; phone=Reception phone?")

	cfg, err := LoadBotConfig()
	require.NoError(t, err)

	assert.Equal(t, 0.6, cfg.Matcher.MatchThreshold)
	assert.Equal(t, 0.95, cfg.Matcher.DedupThreshold)
	assert.Equal(t, 3, cfg.Matcher.MaxCandidates)
	assert.Equal(t, 10*time.Minute, cfg.SessionWindow)
	assert.Zero(t, cfg.RecordCacheTTL)
	assert.True(t, cfg.WhatsAppEnabled)
	require.Len(t, cfg.Questions, 2)
	assert.Equal(t, "stars", cfg.Questions[0].Key)
	assert.Equal(t, "Reception phone?", cfg.Questions[1].Prompt)
}

func TestLoadBotConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"sheets without id", map[string]string{}},
		{"bad float", map[string]string{"SPREADSHEET_ID": "s", "MATCH_THRESHOLD": "high"}},
		{"threshold out of range", map[string]string{"SPREADSHEET_ID": "s", "DEDUP_THRESHOLD": "1.5"}},
		{"bad duration", map[string]string{"SPREADSHEET_ID": "s", "SESSION_WINDOW": "soon"}},
		{"zero window", map[string]string{"SPREADSHEET_ID": "s", "SESSION_WINDOW": "0s"}},
		{"unknown record backend", map[string]string{"RECORD_BACKEND": "csv"}},
		{"unknown session backend", map[string]string{"SPREADSHEET_ID": "s", "SESSION_BACKEND": "disk"}},
		{"dedup below match", map[string]string{"SPREADSHEET_ID": "s", "MATCH_THRESHOLD": "0.8", "DEDUP_THRESHOLD": "0.75"}},
		{"negative weight", map[string]string{"SPREADSHEET_ID": "s", "NAME_WEIGHT": "-1"}},
		{"bad questionnaire", map[string]string{"SPREADSHEET_ID": "s", "QUESTIONNAIRE": "rooms"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearBotEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadBotConfig()
			assert.Error(t, err)
		})
	}
}

func TestParseQuestionnaire(t *testing.T) {
	questions, err := ParseQuestionnaire("rooms=How many rooms?;;contact = Contact person ;")
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "contact", questions[1].Key)
	assert.Equal(t, "Contact person", questions[1].Prompt)

	_, err = ParseQuestionnaire("rooms=A;rooms=B")
	assert.ErrorContains(t, err, "duplicate")

	for _, key := range []string{"name", "address", "agent", "decision"} {
		_, err = ParseQuestionnaire(key + "=Anything?")
		assert.ErrorContains(t, err, "reserved", key)
	}

	_, err = ParseQuestionnaire("=Prompt")
	assert.Error(t, err)
}
