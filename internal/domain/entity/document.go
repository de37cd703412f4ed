package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Document is a schema-less JSON object stored in a single column. Its shape
// is checked against declared parameter schemas, not by the type system.
type Document map[string]interface{}

// Value implements driver.Valuer.
func (d Document) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]interface{}(d))
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (d *Document) Scan(src interface{}) error {
	return scanJSON(src, d)
}

// GormDBDataType picks jsonb on postgres and text elsewhere.
func (Document) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

// GetString retrieves a string value.
func (d Document) GetString(key string) string {
	if val, ok := d[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetInt retrieves an int64 value, accepting the numeric types JSON decoding produces.
func (d Document) GetInt(key string) int64 {
	if val, ok := d[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		case json.Number:
			n, _ := v.Int64()
			return n
		}
	}
	return 0
}

// GetFloat retrieves a float64 value.
func (d Document) GetFloat(key string) float64 {
	if val, ok := d[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		case int:
			return float64(v)
		case json.Number:
			f, _ := v.Float64()
			return f
		}
	}
	return 0.0
}

// GetBool retrieves a bool value.
func (d Document) GetBool(key string) bool {
	if val, ok := d[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

// Clone returns a shallow copy that is safe to mutate at the top level.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge returns a copy of d overlaid with other.
func (d Document) Merge(other Document) Document {
	out := d.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

func scanJSON(src interface{}, dst interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

func valueJSON(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonColumnType(db *gorm.DB) string {
	if db != nil && db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "TEXT"
}
