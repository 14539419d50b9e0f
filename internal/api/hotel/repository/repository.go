package hotelRepository

import (
	"HotelClaimBot/internal/entity"
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var recordJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// RecordStore is the tabular backing store for hotel records.
//
// FetchAll may return hotel.ErrStoreFormat together with a non-empty slice:
// the slice then holds every row that parsed, and the error joins one
// *RowFormatError per rejected row.
type RecordStore interface {
	FetchAll(ctx context.Context) ([]entity.Hotel, error)
	Append(ctx context.Context, record entity.Hotel) error
}

type SessionStore interface {
	Get(ctx context.Context, userID string) (entity.DialogueSession, bool, error)
	Put(ctx context.Context, session entity.DialogueSession) error
	Clear(ctx context.Context, userID string) error
}

type Clock func() time.Time

type RowFormatError struct {
	Row    int
	Reason string
}

func (e *RowFormatError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

const timestampLayout = "2006-01-02 15:04:05"

var timestampLayouts = []string{
	timestampLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
