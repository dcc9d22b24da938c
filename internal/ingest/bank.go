package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/pavelanni/quizfeedback/internal/feedback"
	"github.com/pavelanni/quizfeedback/internal/model"
)

// bankEntry is the on-disk shape of one feedback bank value.
type bankEntry struct {
	QText          string     `json:"Q_text" yaml:"Q_text"`
	Justifications [][]string `json:"Q_justifications" yaml:"Q_justifications"`
	CorrectChoice  *string    `json:"correct_choice_ID" yaml:"correct_choice_ID"`
}

// OpenBank reads a feedback bank from a file on disk.
func OpenBank(path string) (*model.Bank, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadBank(path, f)
}

// ReadBank reads a feedback bank from r, keeping keys in definition order.
// YAML is used for .yaml and .yml names, JSON otherwise.
func ReadBank(name string, r io.Reader) (*model.Bank, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &Error{Source: name, Err: err}
	}
	if KindOf(name) == KindYAML {
		return decodeYAMLBank(name, data)
	}
	return decodeJSONBank(name, data)
}

func decodeJSONBank(name string, data []byte) (*model.Bank, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, ingestErr(name, "invalid JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ingestErr(name, "feedback bank must be a JSON object")
	}

	bank := model.NewBank()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, ingestErr(name, "invalid JSON: %w", err)
		}
		key, _ := tok.(string)

		var raw bankEntry
		if err := dec.Decode(&raw); err != nil {
			return nil, ingestErr(name, "entry %q: %w", key, err)
		}
		entry, err := raw.toModel(key)
		if err != nil {
			return nil, &Error{Source: name, Err: err}
		}
		bank.Add(entry)
	}
	if _, err := dec.Token(); err != nil {
		return nil, ingestErr(name, "invalid JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ingestErr(name, "invalid JSON: trailing data after object")
	}
	return bank, nil
}

func decodeYAMLBank(name string, data []byte) (*model.Bank, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, ingestErr(name, "invalid YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, ingestErr(name, "feedback bank must be a mapping")
	}

	bank := model.NewBank()
	m := doc.Content[0]
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i].Value
		var raw bankEntry
		if err := m.Content[i+1].Decode(&raw); err != nil {
			return nil, ingestErr(name, "entry %q: %w", key, err)
		}
		entry, err := raw.toModel(key)
		if err != nil {
			return nil, &Error{Source: name, Err: err}
		}
		bank.Add(entry)
	}
	return bank, nil
}

func (b bankEntry) toModel(key string) (model.FeedbackEntry, error) {
	if b.CorrectChoice == nil {
		return model.FeedbackEntry{}, fmt.Errorf("entry %q: missing correct_choice_ID", key)
	}
	correct := feedback.NormalizeLetter(*b.CorrectChoice)
	if _, err := feedback.LetterIndex(correct); err != nil {
		return model.FeedbackEntry{}, fmt.Errorf("entry %q: correct_choice_ID: %w", key, err)
	}

	js := make([]model.Justification, 0, len(b.Justifications))
	for i, pair := range b.Justifications {
		if len(pair) != 2 {
			return model.FeedbackEntry{}, fmt.Errorf("entry %q: justification %d has %d elements, want 2", key, i, len(pair))
		}
		js = append(js, model.Justification{Option: pair[0], Explanation: pair[1]})
	}

	return model.FeedbackEntry{
		Key:            key,
		QuestionText:   b.QText,
		Justifications: js,
		CorrectChoice:  correct,
	}, nil
}
