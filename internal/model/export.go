package model

import "time"

// ReportExport is the top-level JSON structure for report export.
type ReportExport struct {
	ID          string        `json:"id,omitempty"`
	Source      string        `json:"source"`
	GeneratedAt time.Time     `json:"generated_at"`
	Summary     Summary       `json:"summary"`
	Entries     []ReportEntry `json:"entries"`
}

// Export builds the JSON export form of a report.
func (r Report) Export() ReportExport {
	entries := r.Entries
	if entries == nil {
		entries = []ReportEntry{}
	}
	return ReportExport{
		ID:          r.ID,
		Source:      r.Source,
		GeneratedAt: r.GeneratedAt,
		Summary:     r.Summary(),
		Entries:     entries,
	}
}

// ReportInfo is a stored report as shown in listings.
type ReportInfo struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	Total     int       `json:"total"`
	Correct   int       `json:"correct"`
}
