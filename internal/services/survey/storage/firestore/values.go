package firestore

import (
	"fmt"
	"strconv"
	"time"
)

// encodeFields converts a document into Firestore typed values.
func encodeFields(doc map[string]any) map[string]any {
	fields := make(map[string]any, len(doc))
	for k, v := range doc {
		fields[k] = encodeValue(v)
	}
	return fields
}

func encodeValue(v any) map[string]any {
	switch value := v.(type) {
	case nil:
		return map[string]any{"nullValue": nil}
	case string:
		return map[string]any{"stringValue": value}
	case bool:
		return map[string]any{"booleanValue": value}
	case int:
		return map[string]any{"integerValue": strconv.Itoa(value)}
	case int64:
		return map[string]any{"integerValue": strconv.FormatInt(value, 10)}
	case float64:
		return map[string]any{"doubleValue": value}
	case time.Time:
		return map[string]any{"timestampValue": value.UTC().Format(time.RFC3339Nano)}
	case map[string]any:
		return map[string]any{"mapValue": map[string]any{"fields": encodeFields(value)}}
	case []any:
		values := make([]any, 0, len(value))
		for _, item := range value {
			values = append(values, encodeValue(item))
		}
		return map[string]any{"arrayValue": map[string]any{"values": values}}
	default:
		return map[string]any{"stringValue": fmt.Sprint(value)}
	}
}
