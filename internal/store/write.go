package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/mimic/internal/call"
	"github.com/roach88/mimic/internal/ir"
)

// Session identifies one recorded history.
type Session struct {
	ID       string `json:"id"`
	Scenario string `json:"scenario"`
	Digest   string `json:"digest"`
}

// WriteSession inserts a session record. Writing an existing ID updates its
// scenario name and digest.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, scenario, digest)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET scenario = excluded.scenario, digest = excluded.digest
	`, sess.ID, sess.Scenario, sess.Digest)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteCall stores c with its arguments and events under session and returns
// the call's ID. Uses ON CONFLICT(id) DO NOTHING for idempotency: a call that
// is already stored is left as it is and inserted is false.
//
// Note: The session must exist (foreign key constraint).
func (s *Store) WriteCall(ctx context.Context, session string, c *call.Call) (id string, inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("write call: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	id, inserted, err = writeCall(ctx, tx, session, c)
	if err != nil {
		return "", false, err
	}
	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("write call: commit: %w", err)
	}
	return id, inserted, nil
}

// WriteCalls stores a session and all of its calls in one transaction.
func (s *Store) WriteCalls(ctx context.Context, sess Session, calls []*call.Call) error {
	if err := s.WriteSession(ctx, sess); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write calls: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, c := range calls {
		if _, _, err := writeCall(ctx, tx, sess.ID, c); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write calls: commit: %w", err)
	}
	return nil
}

func writeCall(ctx context.Context, tx *sql.Tx, session string, c *call.Call) (string, bool, error) {
	args := c.Arguments().All()
	values := c.Arguments().Values()

	id, err := ir.CallID(session, c.Index(), argumentsValue(values))
	if err != nil {
		return "", false, fmt.Errorf("write call %d: %w", c.Index(), err)
	}

	_, callbackType := encodeValue(c.Callback())
	result, err := tx.ExecContext(ctx, `
		INSERT INTO calls (id, session_id, idx, called_seq, callback_type)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, session, c.Index(), c.CalledEvent().Sequence(), callbackType)
	if err != nil {
		return "", false, fmt.Errorf("write call %d: %w", c.Index(), err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("write call %d: rows affected: %w", c.Index(), err)
	}
	if rows == 0 {
		return id, false, nil
	}

	for i, arg := range args {
		value, typ := encodeValue(arg.Value)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO arguments (call_id, position, name, value_json, value_type)
			VALUES (?, ?, ?, ?, ?)
		`, id, i, arg.Name, value, typ); err != nil {
			return "", false, fmt.Errorf("write call %d argument %d: %w", c.Index(), i, err)
		}
	}

	for _, e := range roles(c) {
		if err := writeEvent(ctx, tx, id, e.role, e.event); err != nil {
			return "", false, fmt.Errorf("write call %d: %w", c.Index(), err)
		}
	}
	return id, true, nil
}

type roleEvent struct {
	role  string
	event call.Event
}

// roles lists the events after Called with the part each plays in the call.
// A non-iterable response is also the end event and is stored once.
func roles(c *call.Call) []roleEvent {
	var out []roleEvent
	response := c.ResponseEvent()
	if response != nil {
		out = append(out, roleEvent{"response", response})
	}
	for _, e := range c.IterableEvents() {
		out = append(out, roleEvent{"iterable", e})
	}
	if end := c.EndEvent(); end != nil && end != response {
		out = append(out, roleEvent{"end", end})
	}
	return out
}

func writeEvent(ctx context.Context, tx *sql.Tx, callID, role string, e call.Event) error {
	var (
		iterable                call.IterableKind
		key, value              sql.NullString
		keyType, valueType      string
		errorType, errorMessage string
	)

	switch ev := e.(type) {
	case *call.ReturnedEvent:
		iterable = ev.Iterable
		if iterable == call.NotIterable {
			value, valueType = encodeValue(ev.Value)
		}
	case *call.ThrewEvent:
		errorType, errorMessage = encodeError(ev.Err)
	case *call.ProducedEvent:
		key, keyType = encodeValue(ev.Key)
		value, valueType = encodeValue(ev.Value)
	case *call.ReceivedEvent:
		value, valueType = encodeValue(ev.Value)
	case *call.ReceivedExceptionEvent:
		errorType, errorMessage = encodeError(ev.Err)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO events
		(call_id, seq, role, kind, iterable, key_json, key_type, value_json, value_type, error_type, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		callID,
		e.Sequence(),
		role,
		string(call.KindOf(e)),
		int(iterable),
		key, keyType,
		value, valueType,
		errorType, errorMessage,
	)
	if err != nil {
		return fmt.Errorf("write %s event %d: %w", call.KindOf(e), e.Sequence(), err)
	}
	return nil
}
