// Package ocr extracts text from images with an external OCR engine.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"golang.org/x/text/encoding/unicode"
)

// Default engine invocation.
const (
	DefaultCommand  = "tesseract"
	DefaultLanguage = "eng"
)

var (
	// ErrEngineNotFound is returned when the OCR executable is not on PATH.
	ErrEngineNotFound = errors.New("ocr engine not found")
	// ErrEngineExecutionFailed is returned when the engine cannot be started
	// or exits with a non-zero status.
	ErrEngineExecutionFailed = errors.New("ocr engine execution failed")
)

// Result is the text extracted from one image.
type Result struct {
	SourcePath string
	Text       string
}

// Extractor turns an image file into text.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Result, error)
}

// Tesseract runs the tesseract CLI as `<command> <path> stdout -l <language>`.
type Tesseract struct {
	Command  string
	Language string

	lookPath func(string) (string, error)
}

// Option configures a Tesseract extractor.
type Option func(*Tesseract)

// WithCommand overrides the engine executable.
func WithCommand(command string) Option {
	return func(t *Tesseract) {
		if command != "" {
			t.Command = command
		}
	}
}

// WithLanguage overrides the recognition language.
func WithLanguage(language string) Option {
	return func(t *Tesseract) {
		if language != "" {
			t.Language = language
		}
	}
}

// NewTesseract creates an extractor with the default command and language.
func NewTesseract(opts ...Option) *Tesseract {
	t := &Tesseract{
		Command:  DefaultCommand,
		Language: DefaultLanguage,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Available reports whether the engine executable can be found.
func (t *Tesseract) Available() bool {
	_, err := t.lookPath(t.Command)
	return err == nil
}

// Extract runs the engine on path and returns its standard output as text.
// Invalid UTF-8 in the output is replaced rather than rejected. Standard error
// is discarded. The engine is never spawned when it cannot be located.
func (t *Tesseract) Extract(ctx context.Context, path string) (*Result, error) {
	bin, err := t.lookPath(t.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEngineNotFound, t.Command, err)
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, path, "stdout", "-l", t.Language)
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrEngineExecutionFailed, ctxErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrEngineExecutionFailed, err)
	}

	text, err := decode(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: decode output: %v", ErrEngineExecutionFailed, err)
	}

	return &Result{SourcePath: path, Text: text}, nil
}

// decode converts engine output to a string, substituting U+FFFD for invalid
// byte sequences.
func decode(b []byte) (string, error) {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
