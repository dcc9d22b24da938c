package model

import (
	"context"
	"strings"
	"time"
)

// StudentRecord is one spreadsheet row: a question identifier and the raw answer cell.
type StudentRecord struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// Justification pairs an answer option with the explanation shown when it is chosen.
type Justification struct {
	Option      string `json:"option"`
	Explanation string `json:"explanation"`
}

// FeedbackEntry is a single question of the feedback bank.
type FeedbackEntry struct {
	Key            string          `json:"key"`
	QuestionText   string          `json:"question_text"`
	Justifications []Justification `json:"justifications"`
	CorrectChoice  string          `json:"correct_choice"` // single lowercase letter
}

// Bank holds feedback entries in their definition order.
type Bank struct {
	entries []FeedbackEntry
	index   map[string]int
}

// NewBank returns an empty bank.
func NewBank() *Bank {
	return &Bank{index: make(map[string]int)}
}

// Add appends an entry. An entry whose key already exists replaces the
// earlier value but keeps its original position.
func (b *Bank) Add(e FeedbackEntry) {
	if b.index == nil {
		b.index = make(map[string]int)
	}
	if i, ok := b.index[e.Key]; ok {
		b.entries[i] = e
		return
	}
	b.index[e.Key] = len(b.entries)
	b.entries = append(b.entries, e)
}

// Len returns the number of entries.
func (b *Bank) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// Entries returns the entries in definition order.
func (b *Bank) Entries() []FeedbackEntry {
	if b == nil {
		return nil
	}
	out := make([]FeedbackEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Lookup returns the first entry, in definition order, whose key starts with prefix.
func (b *Bank) Lookup(prefix string) (FeedbackEntry, bool) {
	if b == nil {
		return FeedbackEntry{}, false
	}
	for _, e := range b.entries {
		if strings.HasPrefix(e.Key, prefix) {
			return e, true
		}
	}
	return FeedbackEntry{}, false
}

// Matches returns every key starting with prefix, in definition order.
func (b *Bank) Matches(prefix string) []string {
	if b == nil {
		return nil
	}
	var keys []string
	for _, e := range b.entries {
		if strings.HasPrefix(e.Key, prefix) {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

// EntryStatus describes how a student record was resolved.
type EntryStatus string

const (
	StatusResolved      EntryStatus = "resolved"
	StatusNotFound      EntryStatus = "not_found"
	StatusInvalidAnswer EntryStatus = "invalid_answer"
)

// ReportEntry is the feedback for one student record.
type ReportEntry struct {
	QuestionID    string      `json:"question_id"`
	Status        EntryStatus `json:"status"`
	BankKey       string      `json:"bank_key,omitempty"`
	QuestionText  string      `json:"question_text,omitempty"`
	RawAnswer     string      `json:"raw_answer"`
	StudentLetter string      `json:"student_letter,omitempty"` // lowercase
	Justification string      `json:"justification,omitempty"`
	Correct       bool        `json:"correct"`
	CorrectLetter string      `json:"correct_letter,omitempty"` // set only when Correct is false
	AltKeys       []string    `json:"alt_keys,omitempty"`
}

// DisplayLetter returns the student's letter in upper case.
func (e ReportEntry) DisplayLetter() string {
	return strings.ToUpper(e.StudentLetter)
}

// DisplayCorrectLetter returns the correct letter in upper case.
func (e ReportEntry) DisplayCorrectLetter() string {
	return strings.ToUpper(e.CorrectLetter)
}

// Report is an ordered feedback report for one answer sheet.
type Report struct {
	ID          string        `json:"id,omitempty"`
	Source      string        `json:"source"`
	Lang        string        `json:"lang,omitempty"`
	GeneratedAt time.Time     `json:"generated_at"`
	Entries     []ReportEntry `json:"entries"`
}

// Summary counts report entries by outcome.
type Summary struct {
	Total     int `json:"total"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	NotFound  int `json:"not_found"`
	Invalid   int `json:"invalid"`
}

// Summary tallies the report entries.
func (r Report) Summary() Summary {
	s := Summary{Total: len(r.Entries)}
	for _, e := range r.Entries {
		switch e.Status {
		case StatusNotFound:
			s.NotFound++
		case StatusInvalidAnswer:
			s.Invalid++
		default:
			if e.Correct {
				s.Correct++
			} else {
				s.Incorrect++
			}
		}
	}
	return s
}

// ServerConfig holds runtime web server parameters set via CLI flags.
type ServerConfig struct {
	BasePath     string   // URL prefix for sub-path deployments (e.g. "/feedback")
	Lang         string   // default UI and report language
	PasswordHash string   // bcrypt hash for basic auth; empty disables auth
	CORSOrigins  []string // allowed origins; empty disables CORS headers
	MaxUpload    int64    // maximum multipart upload size in bytes
	SourceBanner bool     // prepend the uploaded file name to report headings
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}
