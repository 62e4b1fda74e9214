package tableservice

import (
	"fmt"
	"strconv"
)

// DefaultIDColumn is the identifier column used when a service does not override it.
const DefaultIDColumn = "id"

// Record is one table row: column name to scalar value.
// A persisted Record always carries its identifier column, a Record about to be inserted never does.
type Record map[string]any

// Clone returns a shallow copy, so cached rows cannot be mutated through returned values.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}

	clone := make(Record, len(r))
	for key, value := range r {
		clone[key] = value
	}

	return clone
}

// Has reports whether the column is present with a non-nil value.
func (r Record) Has(column string) bool {
	value, ok := r[column]
	return ok && value != nil
}

// String returns the column value rendered as a string, "" when missing or nil.
func (r Record) String(column string) string {
	switch value := r[column].(type) {
	case nil:
		return ""
	case string:
		return value
	case []byte:
		return string(value)
	default:
		return fmt.Sprint(value)
	}
}

// Int64 returns the column value converted to int64.
func (r Record) Int64(column string) (int64, error) {
	return ToInt64(r[column])
}

// ToInt64 converts the integer representations drivers hand back into int64.
func ToInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case uint:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", value)
	}
}

// Result is the raw outcome of a delete statement.
type Result interface {
	RowsAffected() (int64, error)
}
