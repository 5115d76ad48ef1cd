package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// --- Generics Support ---

// Get retrieves an item and decodes it into T.
// Backends hand back loosely typed values (float64 numbers from JSON or DynamoDB),
// so the item is re-marshaled through JSON to land in the caller's struct.
func Get[T any](ctx context.Context, s ItemReader, table, key string) (T, error) {
	var target T
	item, err := s.GetItem(ctx, table, key)
	if err != nil {
		return target, err
	}
	err = Decode(item, &target)
	return target, err
}

// Decode converts an Item into the struct pointed to by target.
func Decode(item Item, target any) error {
	bytes, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, target)
}

// Encode flattens a struct into an Item using its JSON field names.
func Encode(v any) (Item, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var item Item
	if err := json.Unmarshal(bytes, &item); err != nil {
		return nil, err
	}
	return item, nil
}

// ToInt64 normalises the numeric representations backends produce.
func ToInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidCount, n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidCount, n)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrInvalidCount, v)
	}
}
