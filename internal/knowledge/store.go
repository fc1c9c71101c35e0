// Package knowledge stores company business rules and ledger references and
// retrieves the snippets relevant to a query.
//
// Retrieval feeds the orchestrator's system prompt: the returned text is
// advisory context, so every failure here degrades to "no context" rather
// than failing the query. Storage is a single SQLite file with FTS5 tables;
// each sync is a full rebuild, which is simpler than tracking adds and
// deletes for data this small.
package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/tallybi/tallybi/internal/log"
	"github.com/tallybi/tallybi/internal/tally"
)

const schema = `
CREATE VIRTUAL TABLE IF NOT EXISTS rules_fts USING fts5(
    category,
    content
);

CREATE VIRTUAL TABLE IF NOT EXISTS ledger_fts USING fts5(
    name,
    grp,
    balance UNINDEXED
);
`

// Rule is one business-policy snippet (payment terms, margin targets,
// credit limits) injected into prompts when relevant.
type Rule struct {
	Category string
	Content  string
}

// LedgerRef is a searchable ledger reference kept for fuzzy name lookup.
type LedgerRef struct {
	Name    string
	Group   string
	Balance string
}

// Store is the knowledge index. Safe for concurrent use; SQLite serializes
// writers and the WAL keeps readers unblocked.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// Open opens (or creates) the knowledge database at path.
func Open(path string, logger log.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create knowledge dir: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open knowledge db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate knowledge db: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceRules reloads the full rule set.
func (s *Store) ReplaceRules(ctx context.Context, rules []Rule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rules reload: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rules_fts`); err != nil {
		return fmt.Errorf("clear rules: %w", err)
	}
	for _, r := range rules {
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rules_fts(category, content) VALUES (?, ?)`,
			r.Category, r.Content,
		); err != nil {
			return fmt.Errorf("insert rule: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rules reload: %w", err)
	}

	s.logger.Info("business rules reloaded", "count", len(rules))
	return nil
}

// SyncLedgers rebuilds the ledger references from a live parse. Returns
// the number of ledgers indexed.
func (s *Store) SyncLedgers(ctx context.Context, ledgers []tally.Ledger) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin ledger sync: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_fts`); err != nil {
		return 0, fmt.Errorf("clear ledger refs: %w", err)
	}
	for _, l := range ledgers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_fts(name, grp, balance) VALUES (?, ?, ?)`,
			l.Name, l.Group, l.Balance.String(),
		); err != nil {
			return 0, fmt.Errorf("insert ledger ref: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit ledger sync: %w", err)
	}

	s.logger.Info("ledger references synced", "count", len(ledgers))
	return len(ledgers), nil
}

// Relevant returns up to n rule snippets matching the query, joined by
// blank lines, best match first. No match returns the empty string: absent
// context is a normal state, not an error.
func (s *Store) Relevant(ctx context.Context, query string, n int) (string, error) {
	match := ftsQuery(query)
	if match == "" {
		return "", nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT content FROM rules_fts WHERE rules_fts MATCH ? ORDER BY rank LIMIT ?`,
		match, n,
	)
	if err != nil {
		return "", fmt.Errorf("search rules: %w", err)
	}
	defer rows.Close()

	var snippets []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return "", fmt.Errorf("scan rule: %w", err)
		}
		snippets = append(snippets, content)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("search rules: %w", err)
	}
	return strings.Join(snippets, "\n\n"), nil
}

// SearchLedgers finds ledger references by name or group.
func (s *Store) SearchLedgers(ctx context.Context, query string, n int) ([]LedgerRef, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, grp, balance FROM ledger_fts WHERE ledger_fts MATCH ? ORDER BY rank LIMIT ?`,
		match, n,
	)
	if err != nil {
		return nil, fmt.Errorf("search ledger refs: %w", err)
	}
	defer rows.Close()

	var refs []LedgerRef
	for rows.Next() {
		var r LedgerRef
		if err := rows.Scan(&r.Name, &r.Group, &r.Balance); err != nil {
			return nil, fmt.Errorf("scan ledger ref: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

// ftsQuery turns free-form user text into a safe FTS5 MATCH expression:
// bare tokens OR-ed together, everything else (quotes, operators,
// punctuation) dropped.
func ftsQuery(query string) string {
	tokens := tokenPattern.FindAllString(query, -1)
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(tokens))
	for _, t := range tokens {
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}
