package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// TimePair is a wall-clock start/end override for one calendar day.
type TimePair struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// TimeOverrides maps ISO dates to per-day times. Stored as JSONB, NULL when empty.
type TimeOverrides map[string]TimePair

// Value implements driver.Valuer.
func (o TimeOverrides) Value() (driver.Value, error) {
	if len(o) == 0 {
		return nil, nil
	}
	return json.Marshal(map[string]TimePair(o))
}

// Scan implements sql.Scanner.
func (o *TimeOverrides) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil || raw == nil {
		*o = nil
		return err
	}
	var decoded map[string]TimePair
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("scan time overrides: %w", err)
	}
	*o = decoded
	return nil
}

// TextOverrides maps ISO dates to a per-day text value (venue, description).
type TextOverrides map[string]string

// Value implements driver.Valuer.
func (o TextOverrides) Value() (driver.Value, error) {
	if len(o) == 0 {
		return nil, nil
	}
	return json.Marshal(map[string]string(o))
}

// Scan implements sql.Scanner.
func (o *TextOverrides) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil || raw == nil {
		*o = nil
		return err
	}
	var decoded map[string]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("scan text overrides: %w", err)
	}
	*o = decoded
	return nil
}

func jsonBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		if len(v) == 0 {
			return nil, nil
		}
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported json column type %T", src)
	}
}
