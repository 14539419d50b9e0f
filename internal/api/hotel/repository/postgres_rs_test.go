package hotelRepository

import (
	"HotelClaimBot/internal/api/hotel"
	"HotelClaimBot/internal/entity"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresTestStore(t *testing.T) (RecordStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewPostgresStore(sqlx.NewDb(db, "postgres"), quietLogger()), mock
}

func TestPostgresFetchAll(t *testing.T) {
	store, mock := newPostgresTestStore(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "hotel_name", "address", "fields", "created_at"}).
		AddRow(1, "Seaside Inn", "12 Bay Street", []byte(`{"status":"done"}`), created).
		AddRow(2, "", "Nowhere 1", []byte(`{}`), created).
		AddRow(3, "Hotel Tbilisi", "Rustaveli Ave 5", []byte(`not json`), created).
		AddRow(4, "Mountain Lodge", "1 Peak Road", nil, created)
	mock.ExpectQuery("SELECT (.+) FROM hotel_records").WillReturnRows(rows)

	hotels, err := store.FetchAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, hotel.ErrStoreFormat)

	require.Len(t, hotels, 2)
	assert.Equal(t, "Seaside Inn", hotels[0].HotelName)
	assert.Equal(t, "done", hotels[0].Fields["status"])
	assert.Equal(t, created, hotels[0].CreatedAt)
	assert.Equal(t, 4, hotels[1].Row)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFetchAllUnavailable(t *testing.T) {
	store, mock := newPostgresTestStore(t)
	mock.ExpectQuery("SELECT (.+) FROM hotel_records").WillReturnError(errors.New("connection refused"))

	_, err := store.FetchAll(context.Background())
	assert.ErrorIs(t, err, hotel.ErrStoreUnavailable)
}

func TestPostgresAppend(t *testing.T) {
	store, mock := newPostgresTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO hotel_records").
		WithArgs("Seaside Inn", "12 Bay Street", `{"agent":"nino"}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.Append(context.Background(), entity.Hotel{
		HotelName: "Seaside Inn",
		Address:   "12 Bay Street",
		Fields:    map[string]string{"agent": "nino"},
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"serialization failure", &pq.Error{Code: "40001"}, hotel.ErrStoreWriteConflict},
		{"deadlock", &pq.Error{Code: "40P01"}, hotel.ErrStoreWriteConflict},
		{"other", errors.New("broken pipe"), hotel.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newPostgresTestStore(t)
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO hotel_records").WillReturnError(tt.err)
			mock.ExpectRollback()

			err := store.Append(context.Background(), entity.Hotel{HotelName: "A", Address: "B"})
			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
