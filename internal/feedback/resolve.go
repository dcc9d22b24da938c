// Package feedback joins student answers to feedback bank entries.
package feedback

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pavelanni/quizfeedback/internal/model"
)

// NoJustification is reported when the chosen letter has no justification slot.
const NoJustification = "No justification available"

var (
	// ErrEntryNotFound means no bank key starts with the question identifier.
	ErrEntryNotFound = errors.New("no feedback entry found")
	// ErrInvalidAnswerLetter means the answer is not a single letter a-z.
	ErrInvalidAnswerLetter = errors.New("invalid answer letter")
)

var letterIndex = map[string]int{
	"a": 0, "b": 1, "c": 2, "d": 3, "e": 4, "f": 5, "g": 6,
	"h": 7, "i": 8, "j": 9, "k": 10, "l": 11, "m": 12, "n": 13,
	"o": 14, "p": 15, "q": 16, "r": 17, "s": 18, "t": 19, "u": 20,
	"v": 21, "w": 22, "x": 23, "y": 24, "z": 25,
}

// LetterIndex maps a lowercase letter to its zero-based option position.
func LetterIndex(letter string) (int, error) {
	i, ok := letterIndex[letter]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAnswerLetter, letter)
	}
	return i, nil
}

// NormalizeLetter trims and lowercases an answer cell.
func NormalizeLetter(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// Resolution is the outcome of resolving one answer against the bank.
type Resolution struct {
	Key           string
	QuestionText  string
	StudentChoice string
	CorrectChoice string
	Justification string
}

// Correct reports whether the student picked the correct option.
func (r Resolution) Correct() bool {
	return r.StudentChoice == r.CorrectChoice
}

// Resolve finds the bank entry for questionID and the justification for answer.
func Resolve(questionID, answer string, bank *model.Bank) (Resolution, error) {
	choice := NormalizeLetter(answer)

	entry, ok := bank.Lookup(questionID)
	if !ok {
		return Resolution{}, fmt.Errorf("%w: question %s", ErrEntryNotFound, questionID)
	}
	correct := strings.ToLower(entry.CorrectChoice)

	idx, err := LetterIndex(choice)
	if err != nil {
		return Resolution{}, fmt.Errorf("question %s: %w", questionID, err)
	}

	justification := NoJustification
	if idx < len(entry.Justifications) {
		justification = entry.Justifications[idx].Explanation
	}

	return Resolution{
		Key:           entry.Key,
		QuestionText:  entry.QuestionText,
		StudentChoice: choice,
		CorrectChoice: correct,
		Justification: justification,
	}, nil
}
