package hotelRepository

import (
	"HotelClaimBot/internal/api/hotel"
	"HotelClaimBot/internal/entity"
	contextPkg "HotelClaimBot/pkg/context"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Rebind(query string) string
}

type HotelRecordDB struct {
	ID        int64          `db:"id"`
	HotelName sql.NullString `db:"hotel_name"`
	Address   sql.NullString `db:"address"`
	Fields    []byte         `db:"fields"`
	CreatedAt sql.NullTime   `db:"created_at"`
}

type postgresStore struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type pgClient struct {
	q        SQLExecutor
	Commit   func() error
	Rollback func() error
}

func NewPostgresStore(db *sqlx.DB, log *logrus.Logger) RecordStore {
	return &postgresStore{
		DB:  db,
		log: log,
	}
}

// EnsureSchema creates the hotel_records table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, queryCreateHotelRecords); err != nil {
		return fmt.Errorf("failed to create hotel_records: %w", err)
	}
	return nil
}

func (r *postgresStore) newClient(ctx context.Context, tx bool) (pgClient, error) {
	if !tx {
		noop := func() error { return nil }
		return pgClient{q: r.DB, Commit: noop, Rollback: noop}, nil
	}

	txx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return pgClient{}, err
	}

	return pgClient{q: txx, Commit: txx.Commit, Rollback: txx.Rollback}, nil
}

func (r *postgresStore) FetchAll(ctx context.Context) ([]entity.Hotel, error) {
	requestID := contextPkg.GetRequestID(ctx)

	client, err := r.newClient(ctx, false)
	if err != nil {
		return nil, classifyPostgresError(err)
	}

	var rows []HotelRecordDB
	if err := client.q.SelectContext(ctx, &rows, queryGetAllHotels); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("FetchAll execution err")
		return nil, classifyPostgresError(err)
	}

	hotels := make([]entity.Hotel, 0, len(rows))
	var rowErrs []error
	for i, row := range rows {
		h, err := r.makeHotel(row, i+1)
		if err != nil {
			rowErrs = append(rowErrs, err)
			continue
		}
		hotels = append(hotels, h)
	}

	if len(rowErrs) > 0 {
		return hotels, fmt.Errorf("%w: %w", hotel.ErrStoreFormat, errors.Join(rowErrs...))
	}

	return hotels, nil
}

func (r *postgresStore) Append(ctx context.Context, record entity.Hotel) error {
	requestID := contextPkg.GetRequestID(ctx)

	fields := record.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	fieldsJSON, err := recordJSON.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal hotel fields: %w", err)
	}

	client, err := r.newClient(ctx, true)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to begin transaction")
		return classifyPostgresError(err)
	}
	defer client.Rollback()

	argsKV := map[string]interface{}{
		"hotel_name": record.HotelName,
		"address":    record.Address,
		"fields":     string(fieldsJSON),
		"created_at": record.CreatedAt,
	}

	query, args, err := sqlx.Named(queryAppendHotel, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Append named query preparation err")
		return err
	}
	query = client.q.Rebind(query)

	if _, err := client.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Append execution err")
		return classifyPostgresError(err)
	}

	if err := client.Commit(); err != nil {
		return classifyPostgresError(err)
	}

	return nil
}

func (r *postgresStore) makeHotel(row HotelRecordDB, position int) (entity.Hotel, error) {
	h := entity.Hotel{
		HotelName: strings.TrimSpace(row.HotelName.String),
		Address:   strings.TrimSpace(row.Address.String),
		Fields:    map[string]string{},
		CreatedAt: row.CreatedAt.Time,
		Row:       position,
	}

	if h.HotelName == "" {
		return entity.Hotel{}, &RowFormatError{Row: position, Reason: "missing hotel name"}
	}
	if h.Address == "" {
		return entity.Hotel{}, &RowFormatError{Row: position, Reason: "missing address"}
	}

	if len(row.Fields) > 0 {
		if err := recordJSON.Unmarshal(row.Fields, &h.Fields); err != nil {
			return entity.Hotel{}, &RowFormatError{Row: position, Reason: "fields is not a JSON object of strings"}
		}
	}

	return h, nil
}

func classifyPostgresError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %w", hotel.ErrStoreWriteConflict, err)
		}
	}
	return fmt.Errorf("%w: %w", hotel.ErrStoreUnavailable, err)
}
