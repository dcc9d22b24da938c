package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/quizfeedback/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a report does not exist.
var ErrNotFound = errors.New("report not found")

// Store keeps generated reports so they can be viewed and downloaded later.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would get its own empty in-memory database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL DEFAULT '',
		lang TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS report_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		question_id TEXT NOT NULL,
		status TEXT NOT NULL,
		bank_key TEXT NOT NULL DEFAULT '',
		question_text TEXT NOT NULL DEFAULT '',
		raw_answer TEXT NOT NULL DEFAULT '',
		student_letter TEXT NOT NULL DEFAULT '',
		justification TEXT NOT NULL DEFAULT '',
		correct INTEGER NOT NULL DEFAULT 0,
		correct_letter TEXT NOT NULL DEFAULT '',
		alt_keys TEXT NOT NULL DEFAULT '[]',
		UNIQUE (report_id, position),
		FOREIGN KEY (report_id) REFERENCES reports(id)
	);

	CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveReport stores a report with its entries and returns its ID. A new
// UUID is assigned when the report has none.
func (s *Store) SaveReport(r model.Report) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now()
	}
	r.GeneratedAt = r.GeneratedAt.UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO reports (id, source, lang, created_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.Source, r.Lang, r.GeneratedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert report: %w", err)
	}

	for i, e := range r.Entries {
		alt, err := json.Marshal(e.AltKeys)
		if err != nil {
			return "", fmt.Errorf("encode alt keys: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO report_entries (report_id, position, question_id, status, bank_key, question_text,
			 raw_answer, student_letter, justification, correct, correct_letter, alt_keys)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, i, e.QuestionID, e.Status, e.BankKey, e.QuestionText,
			e.RawAnswer, e.StudentLetter, e.Justification, e.Correct, e.CorrectLetter, string(alt),
		)
		if err != nil {
			return "", fmt.Errorf("insert entry %d: %w", i, err)
		}
	}

	return r.ID, tx.Commit()
}

// GetReport returns a report with its entries in answer sheet order.
func (s *Store) GetReport(id string) (model.Report, error) {
	var r model.Report
	err := s.db.QueryRow(
		`SELECT id, source, lang, created_at FROM reports WHERE id = ?`, id,
	).Scan(&r.ID, &r.Source, &r.Lang, &r.GeneratedAt)
	if err == sql.ErrNoRows {
		return r, ErrNotFound
	}
	if err != nil {
		return r, err
	}

	rows, err := s.db.Query(
		`SELECT question_id, status, bank_key, question_text, raw_answer, student_letter,
		 justification, correct, correct_letter, alt_keys
		 FROM report_entries WHERE report_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return r, err
	}
	defer rows.Close()

	r.Entries = []model.ReportEntry{}
	for rows.Next() {
		var (
			e   model.ReportEntry
			alt string
		)
		if err := rows.Scan(&e.QuestionID, &e.Status, &e.BankKey, &e.QuestionText, &e.RawAnswer,
			&e.StudentLetter, &e.Justification, &e.Correct, &e.CorrectLetter, &alt); err != nil {
			return r, err
		}
		if err := json.Unmarshal([]byte(alt), &e.AltKeys); err != nil {
			return r, fmt.Errorf("decode alt keys: %w", err)
		}
		r.Entries = append(r.Entries, e)
	}
	return r, rows.Err()
}

// ListReports returns report summaries, newest first. A limit of 0 returns all.
func (s *Store) ListReports(limit int) ([]model.ReportInfo, error) {
	query := `SELECT r.id, r.source, r.created_at,
		COUNT(e.id),
		COALESCE(SUM(CASE WHEN e.status = 'resolved' AND e.correct = 1 THEN 1 ELSE 0 END), 0)
		FROM reports r LEFT JOIN report_entries e ON e.report_id = r.id
		GROUP BY r.id ORDER BY r.created_at DESC, r.id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var infos []model.ReportInfo
	for rows.Next() {
		var info model.ReportInfo
		if err := rows.Scan(&info.ID, &info.Source, &info.CreatedAt, &info.Total, &info.Correct); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteReport removes a report and its entries.
func (s *Store) DeleteReport(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM report_entries WHERE report_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ReportCount returns the number of stored reports.
func (s *Store) ReportCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM reports`).Scan(&count)
	return count, err
}
