package guard

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

const defaultApprovalTTL = 5 * time.Minute

type SQLiteApprovalStore struct {
	dsn string

	mu sync.Mutex
	db *sql.DB
}

func NewSQLiteApprovalStore(dsn string) (*SQLiteApprovalStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("missing sqlite dsn")
	}
	s := &SQLiteApprovalStore{dsn: dsn}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteApprovalStore) Create(ctx context.Context, rec ApprovalRecord) (string, error) {
	if s == nil {
		return "", fmt.Errorf("nil approval store")
	}
	if err := s.ensureOpen(); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.ExpiresAt.IsZero() {
		rec.ExpiresAt = now.Add(defaultApprovalTTL)
	}
	rec.Status = ApprovalPending

	id := strings.TrimSpace(rec.ID)
	if id == "" {
		id = "apr_" + randHex(12)
	}

	reasonsJSON, _ := json.Marshal(rec.Reasons)

	_, err := s.db.ExecContext(ctx, `
INSERT INTO warden_approvals (
  id, run_id, created_at_unix, expires_at_unix, resolved_at_unix,
  status, actor, comment,
  action_type, action_hash,
  risk_level, reasons_json, summary_redacted
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, id, strings.TrimSpace(rec.RunID), rec.CreatedAt.Unix(), rec.ExpiresAt.Unix(), nullTimeUnix(rec.ResolvedAt),
		string(rec.Status), strings.TrimSpace(rec.Actor), strings.TrimSpace(rec.Comment),
		string(rec.ActionType), strings.TrimSpace(rec.ActionHash),
		string(rec.RiskLevel), string(reasonsJSON), strings.TrimSpace(rec.SummaryRedacted),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteApprovalStore) Get(ctx context.Context, id string) (ApprovalRecord, bool, error) {
	if s == nil {
		return ApprovalRecord{}, false, fmt.Errorf("nil approval store")
	}
	if err := s.ensureOpen(); err != nil {
		return ApprovalRecord{}, false, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ApprovalRecord{}, false, nil
	}
	if err := s.expireOverdue(ctx); err != nil {
		return ApprovalRecord{}, false, err
	}

	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanApproval(row)
	if err == sql.ErrNoRows {
		return ApprovalRecord{}, false, nil
	}
	if err != nil {
		return ApprovalRecord{}, false, err
	}
	return rec, true, nil
}

func (s *SQLiteApprovalStore) List(ctx context.Context, status ApprovalStatus, limit int) ([]ApprovalRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("nil approval store")
	}
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if err := s.expireOverdue(ctx); err != nil {
		return nil, err
	}

	q := selectColumns
	args := []any{}
	if strings.TrimSpace(string(status)) != "" {
		q += ` WHERE status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at_unix DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ApprovalRecord
	for rows.Next() {
		rec, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteApprovalStore) Resolve(ctx context.Context, id string, status ApprovalStatus, actor string, comment string) error {
	if s == nil {
		return fmt.Errorf("nil approval store")
	}
	if err := s.ensureOpen(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("missing approval id")
	}

	switch status {
	case ApprovalApproved, ApprovalDenied:
	default:
		return fmt.Errorf("invalid approval status: %q", status)
	}
	if err := s.expireOverdue(ctx); err != nil {
		return err
	}

	now := time.Now().UTC().Unix()
	res, err := s.db.ExecContext(ctx, `
UPDATE warden_approvals
SET status = ?, actor = ?, comment = ?, resolved_at_unix = ?
WHERE id = ? AND status = ?
`, string(status), strings.TrimSpace(actor), strings.TrimSpace(comment), now, id, string(ApprovalPending))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("approval %q is not pending", id)
	}
	return nil
}

func (s *SQLiteApprovalStore) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

const selectColumns = `
SELECT
  id, run_id, created_at_unix, expires_at_unix, resolved_at_unix,
  status, actor, comment,
  action_type, action_hash,
  risk_level, reasons_json, summary_redacted
FROM warden_approvals`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApproval(row rowScanner) (ApprovalRecord, error) {
	var (
		rec            ApprovalRecord
		createdAtUnix  int64
		expiresAtUnix  int64
		resolvedAtUnix sql.NullInt64
		status         string
		actionType     string
		riskLevel      string
		reasonsJSON    string
	)
	err := row.Scan(
		&rec.ID, &rec.RunID, &createdAtUnix, &expiresAtUnix, &resolvedAtUnix,
		&status, &rec.Actor, &rec.Comment,
		&actionType, &rec.ActionHash,
		&riskLevel, &reasonsJSON, &rec.SummaryRedacted,
	)
	if err != nil {
		return ApprovalRecord{}, err
	}

	rec.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	rec.ExpiresAt = time.Unix(expiresAtUnix, 0).UTC()
	if resolvedAtUnix.Valid {
		t := time.Unix(resolvedAtUnix.Int64, 0).UTC()
		rec.ResolvedAt = &t
	}
	rec.Status = ApprovalStatus(status)
	rec.ActionType = ActionType(actionType)
	rec.RiskLevel = RiskLevel(riskLevel)
	_ = json.Unmarshal([]byte(reasonsJSON), &rec.Reasons)
	return rec, nil
}

// expireOverdue sweeps pending records whose ExpiresAt has passed into
// the expired state. Run before every read and resolution, so a stale
// pending request can neither be listed as actionable nor approved
// after its window closed.
func (s *SQLiteApprovalStore) expireOverdue(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE warden_approvals
SET status = ?
WHERE status = ? AND expires_at_unix < ?
`, string(ApprovalExpired), string(ApprovalPending), time.Now().UTC().Unix())
	return err
}

func (s *SQLiteApprovalStore) open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return err
	}
	s.db = db
	return s.migrate()
}

func (s *SQLiteApprovalStore) ensureOpen() error {
	if s.db != nil {
		return nil
	}
	return s.open()
}

func (s *SQLiteApprovalStore) migrate() error {
	if s.db == nil {
		return fmt.Errorf("sqlite db is not open")
	}
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS warden_approvals (
  id TEXT PRIMARY KEY,
  run_id TEXT,
  created_at_unix INTEGER NOT NULL,
  expires_at_unix INTEGER NOT NULL,
  resolved_at_unix INTEGER,
  status TEXT NOT NULL,
  actor TEXT,
  comment TEXT,
  action_type TEXT,
  action_hash TEXT,
  risk_level TEXT,
  reasons_json TEXT,
  summary_redacted TEXT
);
CREATE INDEX IF NOT EXISTS idx_warden_approvals_status ON warden_approvals(status);
`)
	return err
}

func randHex(nbytes int) string {
	if nbytes <= 0 {
		nbytes = 12
	}
	b := make([]byte, nbytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func nullTimeUnix(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Unix()
}
