package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	docserrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// PostgresConfig configures a PostgresStore.
type PostgresConfig struct {
	DSN     string
	Table   string
	Timeout time.Duration
}

// PostgresStore reads embeddings from PostgreSQL with the pgvector extension.
type PostgresStore struct {
	db      *sql.DB
	table   string
	timeout time.Duration
}

var _ VectorStore = (*PostgresStore)(nil)

// NewPostgresStore opens a connection pool. The database is not contacted
// until the first query, so a temporarily unreachable server does not keep
// the caller from starting.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, docserrors.ConfigError("postgres DSN is empty", nil).
			WithSuggestion("Set semantic.dsn or DOCSMCP_SEMANTIC_DSN")
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, docserrors.ConfigError("invalid postgres DSN", err)
	}
	s, err := NewPostgresStoreFromDB(db, cfg.Table, cfg.Timeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromDB wraps an existing pool.
func NewPostgresStoreFromDB(db *sql.DB, table string, timeout time.Duration) (*PostgresStore, error) {
	if table == "" {
		table = DefaultTable
	}
	if err := ValidateIdentifier(table); err != nil {
		return nil, docserrors.ConfigError("invalid vector store table", err).WithDetail("table", table)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PostgresStore{db: db, table: table, timeout: timeout}, nil
}

// matchQuery is the similarity function call.
const matchQuery = `SELECT id, content, metadata, similarity FROM ` + MatchFunction + `($1::vector, $2, $3, $4)`

// listQuery builds the direct scan for a validated table name.
func listQuery(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return `SELECT * FROM ` + strings.Join(parts, ".") + ` WHERE metadata->>'product_id' = $1 LIMIT $2`
}

// MatchDocuments calls match_documents with the query embedding.
func (s *PostgresStore) MatchDocuments(ctx context.Context, params MatchParams) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, matchQuery,
		pgvector.NewVector(params.Embedding),
		params.Threshold,
		params.Count,
		params.ProductFilter,
	)
	if err != nil {
		return nil, s.queryError(ctx, "match_documents query failed", err)
	}
	return scanRows(rows)
}

// ListByProduct scans the table for rows of one product.
func (s *PostgresStore) ListByProduct(ctx context.Context, productID string, limit int) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, listQuery(s.table), productID, limit)
	if err != nil {
		return nil, s.queryError(ctx, "direct scan failed", err).WithDetail("table", s.table)
	}
	return scanRows(rows)
}

func (s *PostgresStore) queryError(ctx context.Context, msg string, err error) *docserrors.DocsError {
	if ctx.Err() != nil {
		return docserrors.New(docserrors.ErrCodeNetworkTimeout, msg, err).
			WithDetail("timeout", s.timeout.String())
	}
	return docserrors.New(docserrors.ErrCodeVectorStore, msg, err)
}

// scanRows reads every column of every row by name and closes rows.
func scanRows(rows *sql.Rows) ([]Row, error) {
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, docserrors.New(docserrors.ErrCodeVectorStore, "failed to read columns", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, docserrors.New(docserrors.ErrCodeVectorStore, "failed to scan row", err)
		}
		rec := make(map[string]any, len(cols))
		for i, c := range cols {
			rec[c] = values[i]
		}
		out = append(out, rowFromRecord(rec))
	}
	if err := rows.Err(); err != nil {
		return nil, docserrors.New(docserrors.ErrCodeVectorStore, "rows error", err)
	}
	return out, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
