package log

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// toFields converts a flexible list of arguments to a slice of zap.Field.
// Accepted argument patterns:
//  1. A bare `error` becomes `zap.Error(err)`.
//  2. A bare `zap.Field` is passed through as-is.
//  3. A (string, any) pair becomes a typed `zap.Field`.
//
// Malformed input (odd trailing values, non-string keys) is preserved under a
// synthetic key rather than dropped.
func toFields(args ...any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+1)

	for i := 0; i < len(args); {
		if f, ok := args[i].(zap.Field); ok {
			fields = append(fields, f)
			i++
			continue
		}

		if err, ok := args[i].(error); ok {
			fields = append(fields, zap.Error(err))
			i++
			continue
		}

		// Last argument with no partner.
		if i == len(args)-1 {
			fields = append(fields, zap.Any(fmt.Sprintf("arg#%d", i), args[i]))
			break
		}

		key, val := args[i], args[i+1]
		i += 2

		keyStr, ok := key.(string)
		if !ok {
			fields = append(fields, zap.Any(fmt.Sprintf("invalid_key_%d", i/2), map[string]any{
				"key":   key,
				"value": val,
			}))
			continue
		}

		switch v := val.(type) {
		case string:
			fields = append(fields, zap.String(keyStr, v))
		case bool:
			fields = append(fields, zap.Bool(keyStr, v))
		case int:
			fields = append(fields, zap.Int(keyStr, v))
		case int8:
			fields = append(fields, zap.Int8(keyStr, v))
		case int16:
			fields = append(fields, zap.Int16(keyStr, v))
		case int32:
			fields = append(fields, zap.Int32(keyStr, v))
		case int64:
			fields = append(fields, zap.Int64(keyStr, v))
		case uint:
			fields = append(fields, zap.Uint(keyStr, v))
		case uint8:
			fields = append(fields, zap.Uint8(keyStr, v))
		case uint16:
			fields = append(fields, zap.Uint16(keyStr, v))
		case uint32:
			fields = append(fields, zap.Uint32(keyStr, v))
		case uint64:
			fields = append(fields, zap.Uint64(keyStr, v))
		case float32:
			fields = append(fields, zap.Float32(keyStr, v))
		case float64:
			fields = append(fields, zap.Float64(keyStr, v))
		case time.Duration:
			fields = append(fields, zap.Duration(keyStr, v))
		case time.Time:
			fields = append(fields, zap.Time(keyStr, v))
		case error:
			fields = append(fields, zap.NamedError(keyStr, v))
		case fmt.Stringer:
			fields = append(fields, zap.String(keyStr, v.String()))
		case []byte:
			fields = append(fields, zap.Binary(keyStr, v))
		default:
			fields = append(fields, zap.Any(keyStr, v))
		}
	}

	return fields
}
