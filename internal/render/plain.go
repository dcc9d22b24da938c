package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pavelanni/quizfeedback/internal/model"
)

const (
	plainStudentAnswer = ": student answer: "
	plainInvalidAnswer = ": invalid answer: "
	plainNoFeedback    = ": No feedback found for question "
	plainFeedback      = "feedback: "
	plainCorrectAnswer = "correct answer is: "
	plainContinuation  = "  "
)

// Plain renders the report as plain text, one block per question.
// The layout is fixed and never localized so it can be parsed back.
func Plain(r model.Report) string {
	var lines []string
	for _, e := range r.Entries {
		switch e.Status {
		case model.StatusNotFound:
			lines = append(lines, e.QuestionID+plainNoFeedback+e.QuestionID, "")
		case model.StatusInvalidAnswer:
			raw := strings.ReplaceAll(strings.TrimSpace(e.RawAnswer), "\n", " ")
			lines = append(lines, e.QuestionID+plainInvalidAnswer+raw, "")
		default:
			lines = append(lines, e.QuestionID+plainStudentAnswer+e.DisplayLetter())
			first, rest, multiline := strings.Cut(e.Justification, "\n")
			lines = append(lines, plainFeedback+first)
			if multiline {
				for _, l := range strings.Split(rest, "\n") {
					lines = append(lines, plainContinuation+l)
				}
			}
			if !e.Correct {
				lines = append(lines, plainCorrectAnswer+e.DisplayCorrectLetter())
			}
			lines = append(lines, "")
		}
	}
	return strings.Join(lines, "\n")
}

// PlainBlock is what can be recovered from one plain text block.
type PlainBlock struct {
	QuestionID    string
	Status        model.EntryStatus
	Letter        string // upper case as printed
	Correct       bool
	CorrectLetter string
}

// ParsePlain reads back the blocks written by Plain. Feedback continuation
// lines are indented; a resolved block has one feedback line and at most one
// correct answer line right after the feedback.
func ParsePlain(r io.Reader) ([]PlainBlock, error) {
	var (
		blocks      []PlainBlock
		cur         *PlainBlock
		sawFeedback bool
		sawCorrect  bool
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()

		switch {
		case strings.HasPrefix(line, plainContinuation):
			if !sawFeedback || sawCorrect {
				return nil, fmt.Errorf("line %d: continuation line outside feedback", lineNo)
			}
			continue
		case strings.HasPrefix(line, plainFeedback):
			if cur == nil || cur.Status != model.StatusResolved || sawFeedback {
				return nil, fmt.Errorf("line %d: feedback line outside a question block", lineNo)
			}
			sawFeedback = true
			continue
		case strings.HasPrefix(line, plainCorrectAnswer):
			if !sawFeedback || sawCorrect {
				return nil, fmt.Errorf("line %d: correct answer line outside a question block", lineNo)
			}
			sawCorrect = true
			cur.Correct = false
			cur.CorrectLetter = strings.TrimPrefix(line, plainCorrectAnswer)
			continue
		case line == "":
			cur, sawFeedback, sawCorrect = nil, false, false
			continue
		}

		if id, letter, ok := strings.Cut(line, plainStudentAnswer); ok {
			blocks = append(blocks, PlainBlock{QuestionID: id, Status: model.StatusResolved, Letter: letter, Correct: true})
		} else if id, raw, ok := strings.Cut(line, plainInvalidAnswer); ok {
			blocks = append(blocks, PlainBlock{QuestionID: id, Status: model.StatusInvalidAnswer, Letter: raw})
		} else if id, _, ok := strings.Cut(line, plainNoFeedback); ok {
			blocks = append(blocks, PlainBlock{QuestionID: id, Status: model.StatusNotFound})
		} else {
			return nil, fmt.Errorf("line %d: unrecognized line %q", lineNo, line)
		}
		cur, sawFeedback, sawCorrect = &blocks[len(blocks)-1], false, false
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan plain report: %w", err)
	}
	return blocks, nil
}
