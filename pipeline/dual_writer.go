package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-marketplace/models"
)

// DualWriter sends every batch to the JSON dataset and a CSV copy of it.
type DualWriter struct {
	targets []namedWriter
}

type namedWriter struct {
	name string
	w    OutputWriter
}

// NewDualWriter opens both dataset files. Nothing is left open on error.
func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	jw, err := NewJSONWriter(jsonFilename)
	if err != nil {
		return nil, err
	}
	cw, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, errors.Join(err, jw.Close())
	}
	return &DualWriter{targets: []namedWriter{{"json", jw}, {"csv", cw}}}, nil
}

// Write stops at the first target that fails.
func (dw *DualWriter) Write(records []*models.AppRecord) error {
	for _, t := range dw.targets {
		if err := t.w.Write(records); err != nil {
			return fmt.Errorf("%s dataset: %w", t.name, err)
		}
	}
	return nil
}

// Close closes every target and reports all failures.
func (dw *DualWriter) Close() error {
	return dw.each(OutputWriter.Close)
}

// Validate checks every target and reports all failures.
func (dw *DualWriter) Validate() error {
	return dw.each(OutputWriter.Validate)
}

func (dw *DualWriter) each(op func(OutputWriter) error) error {
	var errs []error
	for _, t := range dw.targets {
		if err := op(t.w); err != nil {
			errs = append(errs, fmt.Errorf("%s dataset: %w", t.name, err))
		}
	}
	return errors.Join(errs...)
}
