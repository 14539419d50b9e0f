package entity

import (
	"strings"
	"time"
)

type Hotel struct {
	HotelName string            `json:"hotel_name"`
	Address   string            `json:"address"`
	Fields    map[string]string `json:"fields,omitempty"`
	CreatedAt time.Time         `json:"created_at"`

	// Row is the position of the record in the backing store, starting at 1
	// for the first data row.
	Row int `json:"row"`
}

type Candidate struct {
	Hotel Hotel   `json:"hotel"`
	Score float64 `json:"score"`
}

const (
	HotelFieldStatus   = "status"
	HotelFieldComment  = "comment"
	HotelFieldAgent    = "agent"
	HotelFieldDecision = "decision"
)

const (
	DecisionNewLead            = "new_lead"
	DecisionConfirmedDuplicate = "confirmed_duplicate"
)

var surveyedStatuses = map[string]bool{
	"done":        true,
	"surveyed":    true,
	"completed":   true,
	"აღებულია":    true,
	"გაკეთებულია": true,
}

// Surveyed reports whether the record is marked as already surveyed.
func (h Hotel) Surveyed() bool {
	return surveyedStatuses[normalizeStatus(h.Fields[HotelFieldStatus])]
}

func normalizeStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
