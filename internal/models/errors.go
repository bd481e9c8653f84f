package models

import (
	"errors"
	"fmt"
	"strings"
)

// MissingColumnError reports required CSV columns absent from an upload
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

// IsTransient returns false as the upload itself is incomplete
func (e *MissingColumnError) IsTransient() bool {
	return false
}

// ParseError reports a malformed CSV document, cell, or date
type ParseError struct {
	Row    int // 1-based data row, 0 when the document itself is malformed
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("malformed csv: %v", e.Err)
	}
	return fmt.Sprintf("row %d column %q: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsTransient returns false as parse errors are permanent
func (e *ParseError) IsTransient() bool {
	return false
}

// UnknownModelTypeError reports an unrecognized pipeline selector
type UnknownModelTypeError struct {
	ModelType string
}

func (e *UnknownModelTypeError) Error() string {
	return fmt.Sprintf("unknown model type %q", e.ModelType)
}

// IsTransient returns false
func (e *UnknownModelTypeError) IsTransient() bool {
	return false
}

// UnknownCategoryError reports group keys absent from a fixed encoding table
type UnknownCategoryError struct {
	Column string
	Values []string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown %s values: %s", e.Column, strings.Join(e.Values, ", "))
}

// IsTransient returns false
func (e *UnknownCategoryError) IsTransient() bool {
	return false
}

// SchemaError reports model feature columns absent after the feature pipeline
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "feature schema mismatch, missing: " + strings.Join(e.Missing, ", ")
}

// IsTransient returns false
func (e *SchemaError) IsTransient() bool {
	return false
}

// UnknownPopulationError reports a sub-district with no population entry
type UnknownPopulationError struct {
	SubDistrict string
}

func (e *UnknownPopulationError) Error() string {
	return fmt.Sprintf("no population reference for sub-district %q", e.SubDistrict)
}

// IsTransient returns false
func (e *UnknownPopulationError) IsTransient() bool {
	return false
}

// PredictionError wraps a failure raised by the model collaborator
type PredictionError struct {
	ModelType string
	Err       error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed for %s: %v", e.ModelType, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether the underlying model failure may succeed on retry
func (e *PredictionError) IsTransient() bool {
	var t interface{ IsTransient() bool }
	if errors.As(e.Err, &t) {
		return t.IsTransient()
	}
	return false
}
