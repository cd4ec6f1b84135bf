package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/tradematch/internal/match"
	"github.com/example/tradematch/internal/model"
)

type SQLite struct {
	db *sql.DB
}

func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes writers; a single connection avoids
	// SQLITE_BUSY between overlapping transactions.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS partners (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL,
  category TEXT NOT NULL,
  service_area_code TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS job_requests (
  id TEXT PRIMARY KEY,
  consumer_id TEXT,
  guest_name TEXT,
  guest_email TEXT,
  guest_phone TEXT,
  title TEXT NOT NULL,
  description TEXT NOT NULL,
  category TEXT NOT NULL,
  postal_code TEXT NOT NULL,
  budget REAL,
  image_keys TEXT,
  status TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS lead_matches (
  id TEXT PRIMARY KEY,
  job_request_id TEXT NOT NULL REFERENCES job_requests(id),
  partner_id TEXT NOT NULL REFERENCES partners(id),
  status TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  UNIQUE (job_request_id, partner_id)
);
CREATE TABLE IF NOT EXISTS quotes (
  id TEXT PRIMARY KEY,
  match_id TEXT NOT NULL UNIQUE REFERENCES lead_matches(id),
  partner_id TEXT NOT NULL,
  price REAL NOT NULL,
  message TEXT NOT NULL,
  status TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
`); err != nil {
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// ── Partners / candidate directory ─────────────────────────────────────────

func (s *SQLite) CreatePartner(ctx context.Context, p model.Partner) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO partners (id, user_id, display_name, category, service_area_code)
         VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.DisplayName, p.Category, p.ServiceAreaCode,
	)
	return err
}

func (s *SQLite) GetPartnerByUser(ctx context.Context, userID string) (model.Partner, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, display_name, category, service_area_code
       FROM partners WHERE user_id = ?`, userID,
	)
	var p model.Partner
	if err := row.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.Category, &p.ServiceAreaCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Partner{}, model.ErrNotFound
		}
		return model.Partner{}, err
	}
	return p, nil
}

// FindByCategory implements match.Directory on top of the partners table.
func (s *SQLite) FindByCategory(ctx context.Context, category string) ([]match.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, service_area_code FROM partners WHERE category = ?`, category,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []match.Candidate
	for rows.Next() {
		var c match.Candidate
		if err := rows.Scan(&c.ID, &c.Category, &c.ServiceAreaCode); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ── Job requests and lead matches ──────────────────────────────────────────

// CreateJobRequestWithMatches inserts the request and its full match batch
// in one transaction. A concurrent reader sees either no matches or all of
// them, never a partial set.
func (s *SQLite) CreateJobRequestWithMatches(ctx context.Context, req model.JobRequest, matches []model.LeadMatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	imageKeys, err := encodeImageKeys(req.ImageKeys)
	if err != nil {
		return err
	}

	var guestName, guestEmail, guestPhone any
	if req.Requester.Guest != nil {
		guestName = req.Requester.Guest.Name
		guestEmail = req.Requester.Guest.Email
		guestPhone = req.Requester.Guest.Phone
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO job_requests (id, consumer_id, guest_name, guest_email, guest_phone,
                               title, description, category, postal_code, budget,
                               image_keys, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID,
		nullableString(req.Requester.ConsumerID),
		guestName, guestEmail, guestPhone,
		req.Title, req.Description, req.Category, req.PostalCode,
		nullableFloat(req.Budget),
		imageKeys,
		string(req.Status),
		req.CreatedAt.UnixMilli(),
	); err != nil {
		return err
	}

	for _, m := range matches {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO lead_matches (id, job_request_id, partner_id, status, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, m.JobRequestID, m.PartnerID, string(m.Status),
			m.CreatedAt.UnixMilli(), m.UpdatedAt.UnixMilli(),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLite) GetJobRequest(ctx context.Context, id string) (model.JobRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, consumer_id, guest_name, guest_email, guest_phone,
            title, description, category, postal_code, budget, image_keys, status, created_at
       FROM job_requests WHERE id = ?`, id,
	)
	return scanJobRequest(row)
}

func (s *SQLite) GetLeadMatch(ctx context.Context, id string) (model.LeadMatch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, job_request_id, partner_id, status, created_at, updated_at
       FROM lead_matches WHERE id = ?`, id,
	)
	var (
		m                    model.LeadMatch
		statusStr            string
		createdMs, updatedMs int64
	)
	if err := row.Scan(&m.ID, &m.JobRequestID, &m.PartnerID, &statusStr, &createdMs, &updatedMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.LeadMatch{}, model.ErrNotFound
		}
		return model.LeadMatch{}, err
	}
	m.Status = model.LeadStatus(statusStr)
	m.CreatedAt = time.UnixMilli(createdMs)
	m.UpdatedAt = time.UnixMilli(updatedMs)
	return m, nil
}

// ── Quotes ─────────────────────────────────────────────────────────────────

// CreateQuote inserts the quote and flips its lead match from pending to
// quoted as one transaction. The status guard on the UPDATE plus the UNIQUE
// constraint on match_id make the loser of a concurrent double submit fail
// with ErrConflict instead of silently coexisting.
func (s *SQLite) CreateQuote(ctx context.Context, q model.Quote) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE lead_matches SET status = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(model.LeadQuoted), time.Now().UnixMilli(),
		q.MatchID, string(model.LeadPending),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrConflict
	}

	res, err = tx.ExecContext(ctx,
		`INSERT INTO quotes (id, match_id, partner_id, price, message, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (match_id) DO NOTHING`,
		q.ID, q.MatchID, q.PartnerID, q.Price, q.Message, string(q.Status),
		q.CreatedAt.UnixMilli(), q.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return err
	}
	affected, err = res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrConflict
	}

	return tx.Commit()
}

// ── Read surfaces ──────────────────────────────────────────────────────────

func (s *SQLite) ListRequestsByConsumer(ctx context.Context, consumerID string) ([]model.ConsumerRequestView, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, consumer_id, guest_name, guest_email, guest_phone,
            title, description, category, postal_code, budget, image_keys, status, created_at
       FROM job_requests WHERE consumer_id = ? ORDER BY created_at DESC`, consumerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]model.JobRequest, 0)
	for rows.Next() {
		req, err := scanJobRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.ConsumerRequestView, 0, len(requests))
	for _, req := range requests {
		matches, err := s.matchViewsForRequest(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, model.ConsumerRequestView{JobRequest: req, Matches: matches})
	}
	return out, nil
}

func (s *SQLite) matchViewsForRequest(ctx context.Context, requestID string) ([]model.MatchView, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.job_request_id, m.partner_id, m.status, m.created_at, m.updated_at,
            p.display_name,
            q.id, q.price, q.message, q.status, q.created_at, q.updated_at
       FROM lead_matches m
       JOIN partners p ON p.id = m.partner_id
       LEFT JOIN quotes q ON q.match_id = m.id
       WHERE m.job_request_id = ?
       ORDER BY m.created_at ASC, m.id ASC`, requestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]model.MatchView, 0)
	for rows.Next() {
		var (
			v                    model.MatchView
			statusStr            string
			createdMs, updatedMs int64
			displayName          string
			quoteID              sql.NullString
			quotePrice           sql.NullFloat64
			quoteMessage         sql.NullString
			quoteStatus          sql.NullString
			quoteCreatedMs       sql.NullInt64
			quoteUpdatedMs       sql.NullInt64
		)
		if err := rows.Scan(
			&v.ID, &v.JobRequestID, &v.PartnerID, &statusStr, &createdMs, &updatedMs,
			&displayName,
			&quoteID, &quotePrice, &quoteMessage, &quoteStatus, &quoteCreatedMs, &quoteUpdatedMs,
		); err != nil {
			return nil, err
		}
		v.Status = model.LeadStatus(statusStr)
		v.CreatedAt = time.UnixMilli(createdMs)
		v.UpdatedAt = time.UnixMilli(updatedMs)
		v.Partner = model.PartnerSummary{ID: v.PartnerID, DisplayName: displayName}
		if quoteID.Valid {
			v.Quote = &model.Quote{
				ID:        quoteID.String,
				MatchID:   v.ID,
				PartnerID: v.PartnerID,
				Price:     quotePrice.Float64,
				Message:   quoteMessage.String,
				Status:    model.QuoteStatus(quoteStatus.String),
				CreatedAt: time.UnixMilli(quoteCreatedMs.Int64),
				UpdatedAt: time.UnixMilli(quoteUpdatedMs.Int64),
			}
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (s *SQLite) ListLeadsByPartner(ctx context.Context, partnerID string) ([]model.PartnerLeadView, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.job_request_id, m.partner_id, m.status, m.created_at, m.updated_at,
            r.title, r.description, r.category, r.postal_code, r.budget, r.status,
            q.id, q.price, q.message, q.status, q.created_at, q.updated_at
       FROM lead_matches m
       JOIN job_requests r ON r.id = m.job_request_id
       LEFT JOIN quotes q ON q.match_id = m.id
       WHERE m.partner_id = ?
       ORDER BY m.created_at DESC, m.id ASC`, partnerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]model.PartnerLeadView, 0)
	for rows.Next() {
		var (
			v                    model.PartnerLeadView
			statusStr            string
			createdMs, updatedMs int64
			budget               sql.NullFloat64
			reqStatus            string
			quoteID              sql.NullString
			quotePrice           sql.NullFloat64
			quoteMessage         sql.NullString
			quoteStatus          sql.NullString
			quoteCreatedMs       sql.NullInt64
			quoteUpdatedMs       sql.NullInt64
		)
		if err := rows.Scan(
			&v.ID, &v.JobRequestID, &v.PartnerID, &statusStr, &createdMs, &updatedMs,
			&v.Request.Title, &v.Request.Description, &v.Request.Category,
			&v.Request.PostalCode, &budget, &reqStatus,
			&quoteID, &quotePrice, &quoteMessage, &quoteStatus, &quoteCreatedMs, &quoteUpdatedMs,
		); err != nil {
			return nil, err
		}
		v.Status = model.LeadStatus(statusStr)
		v.CreatedAt = time.UnixMilli(createdMs)
		v.UpdatedAt = time.UnixMilli(updatedMs)
		v.Request.ID = v.JobRequestID
		v.Request.Status = model.RequestStatus(reqStatus)
		if budget.Valid {
			b := budget.Float64
			v.Request.Budget = &b
		}
		if quoteID.Valid {
			v.Quote = &model.Quote{
				ID:        quoteID.String,
				MatchID:   v.ID,
				PartnerID: v.PartnerID,
				Price:     quotePrice.Float64,
				Message:   quoteMessage.String,
				Status:    model.QuoteStatus(quoteStatus.String),
				CreatedAt: time.UnixMilli(quoteCreatedMs.Int64),
				UpdatedAt: time.UnixMilli(quoteUpdatedMs.Int64),
			}
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ── Deletion ───────────────────────────────────────────────────────────────

// DeleteJobRequest removes a request together with everything it owns.
// The cascade is explicit rather than delegated to foreign keys.
func (s *SQLite) DeleteJobRequest(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM quotes WHERE match_id IN
           (SELECT id FROM lead_matches WHERE job_request_id = ?)`, id,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM lead_matches WHERE job_request_id = ?`, id,
	); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM job_requests WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrNotFound
	}

	return tx.Commit()
}

// ── Scan helpers ───────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJobRequest(row rowScanner) (model.JobRequest, error) {
	var (
		req                               model.JobRequest
		consumerID                        sql.NullString
		guestName, guestEmail, guestPhone sql.NullString
		budget                            sql.NullFloat64
		imageKeys                         sql.NullString
		statusStr                         string
		createdMs                         int64
	)
	if err := row.Scan(
		&req.ID, &consumerID, &guestName, &guestEmail, &guestPhone,
		&req.Title, &req.Description, &req.Category, &req.PostalCode,
		&budget, &imageKeys, &statusStr, &createdMs,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.JobRequest{}, model.ErrNotFound
		}
		return model.JobRequest{}, err
	}
	if consumerID.Valid {
		req.Requester.ConsumerID = consumerID.String
	} else {
		req.Requester.Guest = &model.GuestContact{
			Name:  guestName.String,
			Email: guestEmail.String,
			Phone: guestPhone.String,
		}
	}
	if budget.Valid {
		b := budget.Float64
		req.Budget = &b
	}
	if imageKeys.Valid && imageKeys.String != "" {
		if err := json.Unmarshal([]byte(imageKeys.String), &req.ImageKeys); err != nil {
			return model.JobRequest{}, fmt.Errorf("decode image keys: %w", err)
		}
	}
	req.Status = model.RequestStatus(statusStr)
	req.CreatedAt = time.UnixMilli(createdMs)
	return req, nil
}

func encodeImageKeys(keys []string) (any, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(keys)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
