package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/JonMunkholm/ledgersync/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ToPgUUID converts a string to pgtype.UUID.
// Returns invalid if the string is empty or not a valid UUID.
func ToPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// UUIDString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func UUIDString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// ToTimestamptz converts t; the zero time becomes NULL so the column default applies.
func ToTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// EncodeItems marshals line items for a JSONB column. Nil encodes as [].
func EncodeItems(items []core.LineItem) ([]byte, error) {
	if items == nil {
		items = []core.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	return data, nil
}

// DecodeItems unmarshals a JSONB items column. Never returns nil items.
func DecodeItems(data []byte) ([]core.LineItem, error) {
	items := []core.LineItem{}
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if items == nil {
		items = []core.LineItem{}
	}
	return items, nil
}

// EncodeExchange marshals exchange details; nil stays NULL.
func EncodeExchange(x *core.ExchangeDetails) ([]byte, error) {
	if x == nil {
		return nil, nil
	}
	data, err := json.Marshal(x)
	if err != nil {
		return nil, fmt.Errorf("encode exchange: %w", err)
	}
	return data, nil
}

// DecodeExchange unmarshals a nullable JSONB exchange column.
func DecodeExchange(data []byte) (*core.ExchangeDetails, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var x core.ExchangeDetails
	if err := json.Unmarshal(data, &x); err != nil {
		return nil, fmt.Errorf("decode exchange: %w", err)
	}
	return &x, nil
}
