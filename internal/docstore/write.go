package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Put writes a document and returns the stored copy carrying the fresh
// etag.
//
// Concurrency control is optimistic: if doc.ETag is set, the put only
// succeeds while the stored document still carries that token; if the
// key exists with a different token, or the token refers to a document
// that no longer exists, Put fails with ErrConflict. An empty etag puts
// unconditionally.
//
// Unless WithoutInterceptors is given, registered interceptors run
// around the persist: every BeforePut in order (a veto aborts before
// anything is persisted), then the persist, then every AfterPut with
// the state its BeforePut returned.
func (s *Store) Put(ctx context.Context, doc *Document, opts ...PutOption) (*Document, error) {
	var cfg putConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if doc == nil {
		return nil, fmt.Errorf("put: nil document")
	}
	if doc.Key == "" {
		return nil, fmt.Errorf("put: empty key")
	}

	op := &PutOperation{Doc: doc}

	var chain []Interceptor
	var states []any
	if !cfg.bypass {
		chain = s.snapshotInterceptors()
		for _, i := range chain {
			state, err := i.BeforePut(ctx, op)
			if err != nil {
				return nil, err
			}
			states = append(states, state)
		}
	}

	stored, err := s.persist(ctx, op.Doc, cfg)
	if err != nil {
		return nil, err
	}

	// After-hooks run even when the caller has abandoned the request:
	// skipping them would leave the current slot inconsistent. Their
	// errors are surfaced, never swallowed.
	for idx, i := range chain {
		if err := i.AfterPut(ctx, op, states[idx]); err != nil {
			return stored, fmt.Errorf("interceptor %q after put of %q: %w", i.Name(), doc.Key, err)
		}
	}

	return stored, nil
}

// persist performs the atomic single-key write with CAS semantics.
func (s *Store) persist(ctx context.Context, doc *Document, cfg putConfig) (*Document, error) {
	bodyJSON, err := marshalBody(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("put %q: %w", doc.Key, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("put %q: begin tx: %w", doc.Key, err)
	}
	defer tx.Rollback() // No-op if committed

	var storedETag string
	err = tx.QueryRowContext(ctx, `SELECT etag FROM documents WHERE key = ?`, doc.Key).Scan(&storedETag)
	exists := true
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return nil, fmt.Errorf("put %q: read etag: %w", doc.Key, err)
	}

	switch {
	case exists && cfg.createOnly:
		return nil, fmt.Errorf("put %q: key exists: %w", doc.Key, ErrConflict)
	case exists && doc.ETag != "" && doc.ETag != storedETag:
		return nil, fmt.Errorf("put %q: stale etag: %w", doc.Key, ErrConflict)
	case !exists && doc.ETag != "":
		return nil, fmt.Errorf("put %q: document gone: %w", doc.Key, ErrConflict)
	}

	newETag := uuid.NewString()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents
		(key, type_tag, body, status, effective_start, effective_until, revision, etag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			type_tag = excluded.type_tag,
			body = excluded.body,
			status = excluded.status,
			effective_start = excluded.effective_start,
			effective_until = excluded.effective_until,
			revision = excluded.revision,
			etag = excluded.etag
	`,
		doc.Key,
		doc.TypeTag,
		bodyJSON,
		string(doc.Meta.Status),
		encodeTime(doc.Meta.EffectiveStart),
		encodeTime(doc.Meta.EffectiveUntil),
		doc.Meta.Revision,
		newETag,
	)
	if err != nil {
		return nil, fmt.Errorf("put %q: %w", doc.Key, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("put %q: commit: %w", doc.Key, err)
	}

	stored := doc.Clone()
	stored.ETag = newETag
	return stored, nil
}

// Delete removes a document. Deleting an absent key is a no-op, so
// compensation deletes are safe to retry. A non-empty etag that does
// not match the stored document fails with ErrConflict.
func (s *Store) Delete(ctx context.Context, key, etag string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete %q: begin tx: %w", key, err)
	}
	defer tx.Rollback()

	var storedETag string
	err = tx.QueryRowContext(ctx, `SELECT etag FROM documents WHERE key = ?`, key).Scan(&storedETag)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete %q: read etag: %w", key, err)
	}

	if etag != "" && etag != storedETag {
		return fmt.Errorf("delete %q: stale etag: %w", key, ErrConflict)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete %q: commit: %w", key, err)
	}

	return nil
}
