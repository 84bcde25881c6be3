package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/strata/internal/temporal"
)

// DocumentColumns is the canonical column list for scanning documents.
// Compiled document queries must select exactly these columns.
const DocumentColumns = `key, type_tag, body, status, effective_start, effective_until, revision, etag`

// Get reads one document by key. Returns (nil, nil) when the key is
// absent - absence is not an error for a document store.
func (s *Store) Get(ctx context.Context, key string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+DocumentColumns+`
		FROM documents
		WHERE key = ?
	`, key)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return doc, nil
}

// ScanPrefix returns documents whose key starts with prefix, ordered
// by revision then key for deterministic pagination. skip/take page
// the result; take <= 0 means no limit.
func (s *Store) ScanPrefix(ctx context.Context, prefix string, skip, take int) ([]*Document, error) {
	query := `
		SELECT ` + DocumentColumns + `
		FROM documents
		WHERE substr(key, 1, length(?)) = ?
		ORDER BY revision ASC, key ASC COLLATE BINARY
	`
	args := []any{prefix, prefix}
	if take > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, take, skip)
	} else if skip > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, skip)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scan prefix %q: %w", prefix, err)
	}
	defer rows.Close()

	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, fmt.Errorf("scan prefix %q: %w", prefix, err)
	}
	return docs, nil
}

// QueryDocuments runs a compiled document query (SQL over the
// documents table) and scans the results. The SQL must select the full
// document column list; the query package guarantees this.
func (s *Store) QueryDocuments(ctx context.Context, query string, args ...any) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	return docs, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument reads one document row.
func scanDocument(row rowScanner) (*Document, error) {
	var (
		doc       Document
		body      string
		status    string
		startText string
		untilText string
	)

	err := row.Scan(&doc.Key, &doc.TypeTag, &body, &status, &startText, &untilText, &doc.Meta.Revision, &doc.ETag)
	if err != nil {
		return nil, err
	}

	doc.Meta.Status = temporal.Status(status)

	doc.Body, err = unmarshalBody(body)
	if err != nil {
		return nil, fmt.Errorf("document %q: %w", doc.Key, err)
	}

	doc.Meta.EffectiveStart, err = decodeTime(startText)
	if err != nil {
		return nil, fmt.Errorf("document %q: %w", doc.Key, err)
	}

	doc.Meta.EffectiveUntil, err = decodeTime(untilText)
	if err != nil {
		return nil, fmt.Errorf("document %q: %w", doc.Key, err)
	}

	return &doc, nil
}

// collectDocuments drains rows into a slice. Returns an empty slice
// (not nil) when no rows match.
func collectDocuments(rows *sql.Rows) ([]*Document, error) {
	docs := []*Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}
