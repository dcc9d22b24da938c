package ingest

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/quizfeedback/internal/model"
)

const (
	questionColumn = "Question"
	answerColumn   = "Answer"
)

// AnswersOptions controls spreadsheet reading.
type AnswersOptions struct {
	Sheet string // xlsx sheet name; empty means the first sheet
}

// OpenAnswers reads student answers from a file on disk.
func OpenAnswers(path string, opts AnswersOptions) ([]model.StudentRecord, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAnswers(path, f, opts)
}

// ReadAnswers reads student answers from r. The format is chosen by the
// extension of name.
func ReadAnswers(name string, r io.Reader, opts AnswersOptions) ([]model.StudentRecord, error) {
	var (
		rows [][]string
		err  error
	)
	switch KindOf(name) {
	case KindXLSX:
		rows, err = readXLSX(name, r, opts.Sheet)
	case KindCSV:
		rows, err = readCSV(name, r)
	default:
		return nil, ingestErr(name, "unsupported answers format (want .xlsx or .csv)")
	}
	if err != nil {
		return nil, err
	}
	return parseRows(name, rows)
}

func readXLSX(name string, r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &Error{Source: name, Err: err}
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ingestErr(name, "workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, ingestErr(name, "sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(name string, r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, &Error{Source: name, Err: err}
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func parseRows(name string, rows [][]string) ([]model.StudentRecord, error) {
	header := -1
	for i, row := range rows {
		if !blankRow(row) {
			header = i
			break
		}
	}
	if header < 0 {
		return nil, ingestErr(name, "no header row")
	}

	qCol, aCol := -1, -1
	for i, cell := range rows[header] {
		switch strings.TrimSpace(cell) {
		case questionColumn:
			if qCol < 0 {
				qCol = i
			}
		case answerColumn:
			if aCol < 0 {
				aCol = i
			}
		}
	}
	if qCol < 0 {
		return nil, ingestErr(name, "missing %q column", questionColumn)
	}
	if aCol < 0 {
		return nil, ingestErr(name, "missing %q column", answerColumn)
	}

	records := make([]model.StudentRecord, 0, len(rows)-header-1)
	for i, row := range rows[header+1:] {
		if blankRow(row) {
			continue
		}
		qid := strings.TrimSpace(cell(row, qCol))
		if qid == "" {
			return nil, ingestErr(name, "row %d: empty %s cell", header+i+2, questionColumn)
		}
		records = append(records, model.StudentRecord{
			QuestionID: qid,
			Answer:     cell(row, aCol),
		})
	}
	return records, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
