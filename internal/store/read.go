package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/mimic/internal/call"
)

// ReadSession retrieves a session by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, digest FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.Scenario, &sess.Digest)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// ListSessions returns every session in the order it was first written.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, digest FROM sessions ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Scenario, &sess.Digest); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

type storedCall struct {
	id           string
	index        int
	calledSeq    int64
	callbackType string
}

// ReadCalls rebuilds the calls of a session in index order. Events are
// replayed into each call in sequence order, so the result has the same
// shape the recorder produced.
//
// Returns an empty slice (not nil) if the session has no calls.
func (s *Store) ReadCalls(ctx context.Context, session string) ([]*call.Call, error) {
	stored, err := s.readStoredCalls(ctx, session)
	if err != nil {
		return nil, err
	}

	calls := make([]*call.Call, 0, len(stored))
	for _, sc := range stored {
		args, err := s.readArguments(ctx, sc.id)
		if err != nil {
			return nil, err
		}
		c := call.New(sc.index, call.NewCalledEvent(sc.calledSeq, Opaque{Type: sc.callbackType}, args))
		if err := s.readEvents(ctx, sc.id, c); err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	return calls, nil
}

func (s *Store) readStoredCalls(ctx context.Context, session string) ([]storedCall, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, idx, called_seq, callback_type
		FROM calls
		WHERE session_id = ?
		ORDER BY idx ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var stored []storedCall
	for rows.Next() {
		var sc storedCall
		if err := rows.Scan(&sc.id, &sc.index, &sc.calledSeq, &sc.callbackType); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		stored = append(stored, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return stored, nil
}

func (s *Store) readArguments(ctx context.Context, callID string) (*call.Arguments, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, value_json, value_type
		FROM arguments
		WHERE call_id = ?
		ORDER BY position ASC
	`, callID)
	if err != nil {
		return nil, fmt.Errorf("query arguments: %w", err)
	}
	defer rows.Close()

	var args []call.Argument
	for rows.Next() {
		var (
			name  string
			value sql.NullString
			typ   string
		)
		if err := rows.Scan(&name, &value, &typ); err != nil {
			return nil, fmt.Errorf("scan argument: %w", err)
		}
		v, err := decodeValue(value, typ)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", callID, err)
		}
		args = append(args, call.Argument{Name: name, Value: v})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate arguments: %w", err)
	}
	return call.NewArgumentsFrom(args...), nil
}

func (s *Store) readEvents(ctx context.Context, callID string, c *call.Call) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, role, kind, iterable, key_json, key_type, value_json, value_type, error_type, error_message
		FROM events
		WHERE call_id = ?
		ORDER BY seq ASC
	`, callID)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seq                     int64
			role, kind              string
			iterable                int
			key, value              sql.NullString
			keyType, valueType      string
			errorType, errorMessage string
		)
		if err := rows.Scan(&seq, &role, &kind, &iterable, &key, &keyType, &value, &valueType, &errorType, &errorMessage); err != nil {
			return fmt.Errorf("scan event: %w", err)
		}

		e, err := decodeEvent(seq, call.Kind(kind), call.IterableKind(iterable), key, keyType, value, valueType, errorType, errorMessage)
		if err != nil {
			return fmt.Errorf("call %s event %d: %w", callID, seq, err)
		}

		switch role {
		case "response":
			err = c.SetResponseEvent(e)
		case "iterable":
			err = c.AddIterableEvent(e)
		case "end":
			err = c.SetEndEvent(e)
		default:
			err = fmt.Errorf("unknown event role %q", role)
		}
		if err != nil {
			return fmt.Errorf("call %s event %d: %w", callID, seq, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate events: %w", err)
	}
	return nil
}

func decodeEvent(seq int64, kind call.Kind, iterable call.IterableKind, key sql.NullString, keyType string, value sql.NullString, valueType, errorType, errorMessage string) (call.Event, error) {
	switch kind {
	case call.KindReturned:
		if iterable != call.NotIterable {
			return call.NewIterableReturnedEvent(seq, nil, iterable), nil
		}
		v, err := decodeValue(value, valueType)
		if err != nil {
			return nil, err
		}
		return call.NewReturnedEvent(seq, v), nil
	case call.KindThrew:
		return call.NewThrewEvent(seq, decodeError(errorType, errorMessage)), nil
	case call.KindUsed:
		return call.NewUsedEvent(seq), nil
	case call.KindProduced:
		k, err := decodeValue(key, keyType)
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(value, valueType)
		if err != nil {
			return nil, err
		}
		return call.NewProducedEvent(seq, k, v), nil
	case call.KindReceived:
		v, err := decodeValue(value, valueType)
		if err != nil {
			return nil, err
		}
		return call.NewReceivedEvent(seq, v), nil
	case call.KindReceivedException:
		return call.NewReceivedExceptionEvent(seq, decodeError(errorType, errorMessage)), nil
	case call.KindConsumed:
		return call.NewConsumedEvent(seq), nil
	}
	return nil, fmt.Errorf("unknown event kind %q", kind)
}
