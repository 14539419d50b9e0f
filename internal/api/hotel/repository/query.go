package hotelRepository

const (
	queryCreateHotelRecords = `
		CREATE TABLE IF NOT EXISTS hotel_records (
			id         BIGSERIAL PRIMARY KEY,
			hotel_name TEXT NOT NULL,
			address    TEXT NOT NULL,
			fields     JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`

	queryGetAllHotels = `
		SELECT
			id,
			hotel_name,
			address,
			fields,
			created_at
		FROM hotel_records
		ORDER BY id ASC
	`

	queryAppendHotel = `
		INSERT INTO hotel_records (
			hotel_name,
			address,
			fields,
			created_at
		) VALUES (
			:hotel_name,
			:address,
			:fields,
			:created_at
		)
	`
)
