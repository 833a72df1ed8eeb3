package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrParse              = errors.New("parse error")
	ErrFormat             = errors.New("format error")
	ErrEmbedding          = errors.New("embedding error")
	ErrGeneration         = errors.New("generation error")
	ErrDimensionMismatch  = errors.New("dimension mismatch")
	ErrResponseFormat     = errors.New("response format error")
	ErrNoCollectionLoaded = errors.New("no collection is loaded")
)

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

type AlreadyExistsError struct {
	Resource string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists", e.Resource)
}

func (e *AlreadyExistsError) Unwrap() error {
	return ErrAlreadyExists
}

func NewAlreadyExistsError(resource string) error {
	return &AlreadyExistsError{Resource: resource}
}

// ParseError is returned when a single row cannot be turned into a Message.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unable to parse %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("unable to parse %q", e.Value)
}

func (e *ParseError) Unwrap() []error {
	return withCause(ErrParse, e.Err)
}

func NewParseError(value string, err error) error {
	return &ParseError{Value: value, Err: err}
}

// FormatError is returned when an input document is structurally invalid.
type FormatError struct {
	Message string
	Err     error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *FormatError) Unwrap() []error {
	return withCause(ErrFormat, e.Err)
}

func NewFormatError(message string, err error) error {
	return &FormatError{Message: message, Err: err}
}

type EmbeddingError struct {
	Message string
	Err     error
}

func (e *EmbeddingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding error: %s (original error: %v)", e.Message, e.Err)
	}
	return fmt.Sprintf("embedding error: %s", e.Message)
}

func (e *EmbeddingError) Unwrap() []error {
	return withCause(ErrEmbedding, e.Err)
}

func NewEmbeddingError(message string, err error) error {
	return &EmbeddingError{Message: message, Err: err}
}

type GenerationError struct {
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm error: %s (original error: %v)", e.Message, e.Err)
	}
	return fmt.Sprintf("llm error: %s", e.Message)
}

func (e *GenerationError) Unwrap() []error {
	return withCause(ErrGeneration, e.Err)
}

func NewGenerationError(message string, err error) error {
	return &GenerationError{Message: message, Err: err}
}

type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}

func NewDimensionMismatchError(expected, got int) error {
	return &DimensionMismatchError{Expected: expected, Got: got}
}

// ResponseFormatError carries the raw model output that failed to decode.
type ResponseFormatError struct {
	Raw string
	Err error
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("model response is not a JSON object of strings: %v", e.Err)
}

func (e *ResponseFormatError) Unwrap() []error {
	return withCause(ErrResponseFormat, e.Err)
}

func NewResponseFormatError(raw string, err error) error {
	return &ResponseFormatError{Raw: raw, Err: err}
}

func withCause(sentinel, cause error) []error {
	if cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, cause}
}
