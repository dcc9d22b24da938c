package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/quizfeedback/internal/model"
)

// ExportReport builds the export-ready form of a stored report.
func (s *Store) ExportReport(id string) (model.ReportExport, error) {
	r, err := s.GetReport(id)
	if err != nil {
		return model.ReportExport{}, fmt.Errorf("get report %s: %w", id, err)
	}
	return r.Export(), nil
}

// PruneReports deletes reports created before cutoff and returns how many were removed.
func (s *Store) PruneReports(cutoff time.Time) (int, error) {
	rows, err := s.db.Query(`SELECT id FROM reports WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range ids {
		if err := s.DeleteReport(id); err != nil {
			return 0, fmt.Errorf("delete report %s: %w", id, err)
		}
	}
	return len(ids), nil
}
