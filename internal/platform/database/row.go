package database

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Int64 returns the column as int64, accepting any integer or float
// representation the driver produced.
func (r Row) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// String returns the column as a string; nil is "".
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Map returns a JSON object column. Text columns holding JSON are decoded.
func (r Row) Map(key string) map[string]any {
	switch v := r[key].(type) {
	case map[string]any:
		return v
	case []byte:
		var m map[string]any
		if json.Unmarshal(v, &m) == nil {
			return m
		}
	case string:
		var m map[string]any
		if json.Unmarshal([]byte(v), &m) == nil {
			return m
		}
	}
	return nil
}
