package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/store"
)

// openExistingStore opens a database that must already exist. store.Open
// would otherwise create an empty one.
func openExistingStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// resolveSession returns the named session, or the most recent one when
// id is empty.
func resolveSession(ctx context.Context, st *store.Store, id string) (ir.Session, error) {
	var (
		sess ir.Session
		err  error
	)
	if id == "" {
		sess, err = st.LatestSession(ctx)
	} else {
		sess, err = st.ReadSession(ctx, id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		if id == "" {
			return ir.Session{}, NewExitError(ExitCommandError, "no sessions in database")
		}
		return ir.Session{}, NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", id))
	}
	if err != nil {
		return ir.Session{}, WrapExitError(ExitCommandError, "failed to read session", err)
	}
	return sess, nil
}

// parseArg turns a command line argument into a call argument. Valid JSON
// is decoded (integers only); anything else is taken as a string.
func parseArg(s string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s, nil
	}
	return normalizeJSON(v)
}

func normalizeJSON(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return nil, fmt.Errorf("unsupported number %s: only integers are allowed", x)
		}
		return n, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			n, err := normalizeJSON(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			n, err := normalizeJSON(e)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	}
	return v, nil
}

// describeValue renders an IR value for text output.
func describeValue(v ir.IRValue) string {
	if v == nil {
		return "(undefined)"
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// nowMillis is the wall clock for records the CLI stamps itself.
var nowMillis = func() int64 { return time.Now().UnixMilli() }
