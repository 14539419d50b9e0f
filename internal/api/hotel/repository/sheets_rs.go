package hotelRepository

import (
	"HotelClaimBot/internal/api/hotel"
	"HotelClaimBot/internal/entity"
	contextPkg "HotelClaimBot/pkg/context"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"
)

type sheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	log           *logrus.Logger

	mu     sync.RWMutex
	header []string
}

func NewSheetsStore(svc *sheets.Service, spreadsheetID, sheetName string, log *logrus.Logger) RecordStore {
	return &sheetsStore{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           log,
	}
}

func (s *sheetsStore) FetchAll(ctx context.Context) ([]entity.Hotel, error) {
	requestID := contextPkg.GetRequestID(ctx)

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.a1("")).Context(ctx).Do()
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"sheet":      s.sheetName,
			"error":      err.Error(),
		}).Error("Failed to read worksheet")
		return nil, classifySheetsError(err)
	}

	if len(resp.Values) == 0 {
		return []entity.Hotel{}, nil
	}

	header := cellsToStrings(resp.Values[0])
	s.setHeader(header)

	layout := parseHeader(header)
	if !layout.valid() {
		return nil, fmt.Errorf("%w: %w: header %v", hotel.ErrStoreFormat, hotel.ErrMissingHeader, header)
	}

	hotels := make([]entity.Hotel, 0, len(resp.Values)-1)
	var rowErrs []error
	for i, raw := range resp.Values[1:] {
		cells := cellsToStrings(raw)
		if isBlank(cells) {
			continue
		}

		h, err := parseSheetRow(layout, cells, i+1)
		if err != nil {
			rowErrs = append(rowErrs, err)
			continue
		}
		hotels = append(hotels, h)
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"records":    len(hotels),
		"malformed":  len(rowErrs),
	}).Debug("Loaded hotels from worksheet")

	if len(rowErrs) > 0 {
		return hotels, fmt.Errorf("%w: %w", hotel.ErrStoreFormat, errors.Join(rowErrs...))
	}

	return hotels, nil
}

func (s *sheetsStore) Append(ctx context.Context, record entity.Hotel) error {
	requestID := contextPkg.GetRequestID(ctx)

	header, err := s.currentHeader(ctx)
	if err != nil {
		return err
	}

	var values [][]interface{}
	if len(header) == 0 {
		header = defaultHeader()
		values = append(values, stringsToCells(header))
	}

	layout := parseHeader(header)
	if layout.answers < 0 && len(leftoverFields(layout, record)) > 0 {
		if header, err = s.addAnswersColumn(ctx, header); err != nil {
			return err
		}
		layout = parseHeader(header)
	}

	row, err := buildSheetRow(layout, record)
	if err != nil {
		return err
	}
	values = append(values, stringsToCells(row))

	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.a1(""), &sheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         values,
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"sheet":      s.sheetName,
			"error":      err.Error(),
		}).Error("Failed to append hotel row")
		return classifySheetsError(err)
	}

	if len(values) > 1 {
		s.setHeader(header)
	}

	return nil
}

// addAnswersColumn extends an existing header with an answers cell so
// fields without a column of their own can be read back.
func (s *sheetsStore) addAnswersColumn(ctx context.Context, header []string) ([]string, error) {
	cell := columnLetter(len(header)) + "1"

	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.a1(cell), &sheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         [][]interface{}{{"answers"}},
	}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"sheet":      s.sheetName,
			"cell":       cell,
			"error":      err.Error(),
		}).Error("Failed to add answers column")
		return nil, classifySheetsError(err)
	}

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"sheet":      s.sheetName,
		"cell":       cell,
	}).Info("Added answers column to worksheet header")

	header = append(append([]string(nil), header...), "answers")
	s.setHeader(header)
	return header, nil
}

func (s *sheetsStore) currentHeader(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	header := s.header
	s.mu.RUnlock()
	if header != nil {
		return header, nil
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.a1("1:1")).Context(ctx).Do()
	if err != nil {
		return nil, classifySheetsError(err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}

	header = cellsToStrings(resp.Values[0])
	s.setHeader(header)
	return header, nil
}

func (s *sheetsStore) setHeader(header []string) {
	s.mu.Lock()
	s.header = header
	s.mu.Unlock()
}

func (s *sheetsStore) a1(cells string) string {
	name := "'" + strings.ReplaceAll(s.sheetName, "'", "''") + "'"
	if cells == "" {
		return name
	}
	return name + "!" + cells
}

func parseSheetRow(layout sheetLayout, cells []string, row int) (entity.Hotel, error) {
	cell := func(i int) string {
		if i < 0 || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}

	h := entity.Hotel{
		HotelName: cell(layout.name),
		Address:   cell(layout.address),
		Fields:    map[string]string{},
		Row:       row,
	}
	if h.HotelName == "" {
		return entity.Hotel{}, &RowFormatError{Row: row, Reason: "missing hotel name"}
	}
	if h.Address == "" {
		return entity.Hotel{}, &RowFormatError{Row: row, Reason: "missing address"}
	}

	if ts := cell(layout.created); ts != "" {
		t, err := parseTimestamp(ts)
		if err != nil {
			return entity.Hotel{}, &RowFormatError{Row: row, Reason: err.Error()}
		}
		h.CreatedAt = t
	}

	if raw := cell(layout.answers); raw != "" {
		var answers map[string]interface{}
		if err := recordJSON.Unmarshal([]byte(raw), &answers); err != nil {
			return entity.Hotel{}, &RowFormatError{Row: row, Reason: "answers column is not a JSON object"}
		}
		for k, v := range answers {
			if v == nil {
				continue
			}
			h.Fields[k] = fmt.Sprint(v)
		}
	}

	for i, col := range layout.columns {
		if col.role != roleField {
			continue
		}
		if v := cell(i); v != "" {
			h.Fields[col.field] = v
		}
	}

	return h, nil
}

func buildSheetRow(layout sheetLayout, record entity.Hotel) ([]string, error) {
	row := make([]string, len(layout.columns))

	for i, col := range layout.columns {
		switch col.role {
		case roleName:
			row[i] = record.HotelName
		case roleAddress:
			row[i] = record.Address
		case roleCreatedAt:
			if !record.CreatedAt.IsZero() {
				row[i] = record.CreatedAt.UTC().Format(timestampLayout)
			}
		case roleField:
			row[i] = record.Fields[col.field]
		}
	}

	if leftover := leftoverFields(layout, record); len(leftover) > 0 && layout.answers >= 0 {
		encoded, err := recordJSON.Marshal(leftover)
		if err != nil {
			return nil, fmt.Errorf("failed to encode answers: %w", err)
		}
		row[layout.answers] = string(encoded)
	}

	return row, nil
}

// leftoverFields are the record fields with no column of their own.
func leftoverFields(layout sheetLayout, record entity.Hotel) map[string]string {
	columns := map[string]bool{}
	for _, col := range layout.columns {
		if col.role == roleField {
			columns[col.field] = true
		}
	}

	leftover := map[string]string{}
	for k, v := range record.Fields {
		if !columns[k] {
			leftover[k] = v
		}
	}
	return leftover
}

// columnLetter turns a zero-based column index into A1 notation.
func columnLetter(i int) string {
	letters := ""
	for i++; i > 0; i = (i - 1) / 26 {
		letters = string(rune('A'+(i-1)%26)) + letters
	}
	return letters
}

func classifySheetsError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
		return fmt.Errorf("%w: %w", hotel.ErrStoreWriteConflict, err)
	}
	return fmt.Errorf("%w: %w", hotel.ErrStoreUnavailable, err)
}

func cellsToStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}

func stringsToCells(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
