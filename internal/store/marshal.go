package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/mimic/internal/ir"
)

// Opaque stands in for a value that had no JSON form when it was stored.
type Opaque struct {
	Type string
}

// GoString renders the placeholder in %#v output, which is what failure
// messages and traces use.
func (o Opaque) GoString() string { return "<" + o.Type + ">" }

func (o Opaque) String() string { return o.GoString() }

// RecordedError is an error reloaded from the store. Only its original type
// name and message survive.
type RecordedError struct {
	Type    string
	Message string
}

func (e *RecordedError) Error() string { return e.Message }

// Is matches another error with the same message, so a reloaded history can
// be checked with verify.ErrorIs against the original sentinel.
func (e *RecordedError) Is(target error) bool {
	var other *RecordedError
	if errors.As(target, &other) {
		return other.Message == e.Message && other.Type == e.Type
	}
	return target != nil && target.Error() == e.Message
}

// encodeValue returns the canonical JSON of v, or a NULL column when v has
// no JSON form. The Go type is always returned.
func encodeValue(v any) (sql.NullString, string) {
	typ := fmt.Sprintf("%T", v)
	if o, ok := v.(Opaque); ok {
		return sql.NullString{}, o.Type
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return sql.NullString{}, typ
	}
	return sql.NullString{String: string(data), Valid: true}, typ
}

// decodeValue reverses encodeValue. Numbers come back as int64.
func decodeValue(data sql.NullString, typ string) (any, error) {
	if !data.Valid {
		return Opaque{Type: typ}, nil
	}
	v, err := ir.ParseJSON([]byte(data.String))
	if err != nil {
		return nil, fmt.Errorf("decode %s value: %w", typ, err)
	}
	return ir.ToGo(v), nil
}

// argumentsValue is the ir form of a call's arguments, used for its ID.
// Values without a JSON form contribute their type name.
func argumentsValue(values []any) ir.Array {
	arr := make(ir.Array, len(values))
	for i, v := range values {
		val, err := ir.FromGo(v)
		if err != nil {
			val = ir.String(fmt.Sprintf("<%T>", v))
		}
		arr[i] = val
	}
	return arr
}

func encodeError(err error) (typ, message string) {
	if err == nil {
		return "", ""
	}
	var recorded *RecordedError
	if errors.As(err, &recorded) {
		return recorded.Type, recorded.Message
	}
	return fmt.Sprintf("%T", err), err.Error()
}

func decodeError(typ, message string) error {
	return &RecordedError{Type: typ, Message: message}
}
