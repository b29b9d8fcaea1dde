package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/thisme/internal/ir"
)

// marshalValue converts an IRValue to canonical JSON TEXT for storage.
// An undefined value is stored as NULL, distinct from JSON null.
func marshalValue(v ir.IRValue) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal value: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalValue parses canonical JSON TEXT back to an IRValue.
// Markers are restored as IRPointer / IRIdentity.
func unmarshalValue(ns sql.NullString) (ir.IRValue, error) {
	if !ns.Valid {
		return nil, nil
	}
	v, err := ir.UnmarshalIRValue([]byte(ns.String))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
