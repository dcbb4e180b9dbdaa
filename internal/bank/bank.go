// Package bank supplies question sequences to exam sessions. A bank is an
// ordered list of immutable question records; malformed records are kept so
// the exam can show them as unsupported, and are reported by Inspect.
package bank

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-selftest/internal/model"
)

//go:embed sample_bank.json
var sampleBank []byte

// Source loads a question sequence.
type Source interface {
	Load(ctx context.Context) ([]model.Question, error)
}

// File is the on-disk bank format.
type File struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Questions   []model.Question `json:"questions"`
}

// Decode reads a bank file. A bare JSON array of questions is accepted too.
func Decode(r io.Reader) (*File, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read bank: %w", err)
	}
	raw = bytes.TrimSpace(raw)

	f := &File{}
	if len(raw) > 0 && raw[0] == '[' {
		err = json.Unmarshal(raw, &f.Questions)
	} else {
		err = json.Unmarshal(raw, f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode bank: %w", err)
	}
	for i := range f.Questions {
		f.Questions[i].OrderNum = i + 1
	}
	return f, nil
}

// FileSource reads the bank from a JSON file on every Load, so edits show up
// after a reset.
type FileSource struct {
	Path string
	Log  zerolog.Logger
}

// Load implements Source.
func (s FileSource) Load(_ context.Context) ([]model.Question, error) {
	fh, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open bank: %w", err)
	}
	defer fh.Close()

	f, err := Decode(fh)
	if err != nil {
		return nil, err
	}
	Report(s.Log, f.Questions)
	return f.Questions, nil
}

// EmbeddedSource serves the sample bank compiled into the binary.
type EmbeddedSource struct {
	Log zerolog.Logger
}

// Load implements Source.
func (s EmbeddedSource) Load(_ context.Context) ([]model.Question, error) {
	f, err := Embedded()
	if err != nil {
		return nil, err
	}
	Report(s.Log, f.Questions)
	return f.Questions, nil
}

// Embedded decodes the sample bank.
func Embedded() (*File, error) {
	return Decode(bytes.NewReader(sampleBank))
}

// Static serves a fixed question slice.
type Static []model.Question

// Load implements Source.
func (s Static) Load(context.Context) ([]model.Question, error) {
	return s, nil
}
