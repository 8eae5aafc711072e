package usecase

import "time"

// Row decoding helpers. Warehouse rows come back as loosely typed maps; the
// driver may surface integers as int64 and ratios as float64, but fakes and
// older client versions are not strict about it.

func rowString(row map[string]any, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	default:
		return ""
	}
}

func rowStringPtr(row map[string]any, key string) *string {
	if v, ok := row[key].(string); ok {
		return &v
	}
	return nil
}

func rowInt64(row map[string]any, key string) int64 {
	switch v := row[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func rowInt64Ptr(row map[string]any, key string) *int64 {
	if row[key] == nil {
		return nil
	}
	v := rowInt64(row, key)
	return &v
}

func rowFloat64(row map[string]any, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func rowBool(row map[string]any, key string) bool {
	if v, ok := row[key].(bool); ok {
		return v
	}
	return false
}

func rowTime(row map[string]any, key string) time.Time {
	if v, ok := row[key].(time.Time); ok {
		return v
	}
	return time.Time{}
}
