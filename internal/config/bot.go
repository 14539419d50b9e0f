package config

import (
	hotelService "HotelClaimBot/internal/api/hotel/service"
	"HotelClaimBot/internal/entity"
	"HotelClaimBot/pkg/fuzzy"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
)

// BotConfig holds everything the hotel dialogue reads from the environment.
type BotConfig struct {
	Matcher        fuzzy.Config
	Questions      []hotelService.Question
	SessionWindow  time.Duration
	StoreTimeout   time.Duration
	RecordCacheTTL time.Duration

	RecordBackend  string
	SessionBackend string

	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string

	WhatsAppEnabled bool
	NotifyPhone     string
}

func LoadBotConfig() (*BotConfig, error) {
	cfg := &BotConfig{
		Matcher:            fuzzy.DefaultConfig(),
		Questions:          hotelService.DefaultQuestions(),
		SessionWindow:      30 * time.Minute,
		StoreTimeout:       10 * time.Second,
		RecordCacheTTL:     120 * time.Second,
		RecordBackend:      envOr("RECORD_BACKEND", BackendSheets),
		SessionBackend:     envOr("SESSION_BACKEND", BackendMemory),
		SpreadsheetID:      os.Getenv("SPREADSHEET_ID"),
		SheetName:          envOr("SHEET_NAME", "Hotels"),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		NotifyPhone:        os.Getenv("NOTIFY_PHONE"),
	}

	var err error
	if cfg.Matcher.MatchThreshold, err = envFloat("MATCH_THRESHOLD", cfg.Matcher.MatchThreshold); err != nil {
		return nil, err
	}
	if cfg.Matcher.DedupThreshold, err = envFloat("DEDUP_THRESHOLD", cfg.Matcher.DedupThreshold); err != nil {
		return nil, err
	}
	if cfg.Matcher.NameWeight, err = envFloat("NAME_WEIGHT", cfg.Matcher.NameWeight); err != nil {
		return nil, err
	}
	if cfg.Matcher.AddressWeight, err = envFloat("ADDRESS_WEIGHT", cfg.Matcher.AddressWeight); err != nil {
		return nil, err
	}
	if cfg.Matcher.MaxCandidates, err = envInt("MAX_CANDIDATES", cfg.Matcher.MaxCandidates); err != nil {
		return nil, err
	}
	if cfg.SessionWindow, err = envDuration("SESSION_WINDOW", cfg.SessionWindow); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = envDuration("STORE_TIMEOUT", cfg.StoreTimeout); err != nil {
		return nil, err
	}
	if cfg.RecordCacheTTL, err = envDuration("RECORD_CACHE_TTL", cfg.RecordCacheTTL); err != nil {
		return nil, err
	}
	if cfg.WhatsAppEnabled, err = envBool("WHATSAPP_ENABLED", false); err != nil {
		return nil, err
	}

	if raw := os.Getenv("QUESTIONNAIRE"); raw != "" {
		if cfg.Questions, err = ParseQuestionnaire(raw); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *BotConfig) validate() error {
	for name, v := range map[string]float64{
		"MATCH_THRESHOLD": c.Matcher.MatchThreshold,
		"DEDUP_THRESHOLD": c.Matcher.DedupThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", name, v)
		}
	}
	if c.Matcher.DedupThreshold < c.Matcher.MatchThreshold {
		return fmt.Errorf("DEDUP_THRESHOLD (%v) must not be below MATCH_THRESHOLD (%v)",
			c.Matcher.DedupThreshold, c.Matcher.MatchThreshold)
	}
	if c.Matcher.NameWeight < 0 || c.Matcher.AddressWeight < 0 {
		return fmt.Errorf("NAME_WEIGHT and ADDRESS_WEIGHT must not be negative")
	}
	if c.SessionWindow <= 0 {
		return fmt.Errorf("SESSION_WINDOW must be positive")
	}

	switch c.RecordBackend {
	case BackendSheets:
		if c.SpreadsheetID == "" {
			return fmt.Errorf("SPREADSHEET_ID is required for the sheets backend")
		}
	case BackendPostgres:
	default:
		return fmt.Errorf("unknown RECORD_BACKEND %q", c.RecordBackend)
	}

	switch c.SessionBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}

	return nil
}

// Keys the dialogue and the appended record already use.
var reservedQuestionKeys = map[string]bool{
	entity.FieldName:          true,
	entity.FieldAddress:       true,
	entity.HotelFieldAgent:    true,
	entity.HotelFieldDecision: true,
}

// ParseQuestionnaire reads "key=Prompt;key=Prompt". Keys must be unique and
// must not collide with the name, address, agent or decision fields.
func ParseQuestionnaire(raw string) ([]hotelService.Question, error) {
	var questions []hotelService.Question
	seen := map[string]bool{}

	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, prompt, ok := strings.Cut(part, "=")
		key, prompt = strings.TrimSpace(key), strings.TrimSpace(prompt)
		if !ok || key == "" || prompt == "" {
			return nil, fmt.Errorf("invalid questionnaire entry %q", part)
		}
		if reservedQuestionKeys[key] {
			return nil, fmt.Errorf("questionnaire key %q is reserved", key)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate questionnaire key %q", key)
		}
		seen[key] = true

		questions = append(questions, hotelService.Question{Key: key, Prompt: prompt})
	}

	return questions, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
