package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-marketplace/models"
	"github.com/aluiziolira/go-scrape-marketplace/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

const defaultBatchSize = 16

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(records []*models.AppRecord) error
	Close() error
	Validate() error
}

// Pipeline is the run's output collection. Records are validated for shape,
// kept in arrival order and flushed to the writer in batches.
//
// The scraper runs a single thread of control, so Pipeline does no locking.
type Pipeline struct {
	writer    OutputWriter
	batchSize int
	batch     []*models.AppRecord

	processed  int
	validation map[string]int

	closed bool
	err    error
}

// NewPipeline builds a pipeline flushing every batchSize records.
func NewPipeline(writer OutputWriter, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Pipeline{
		writer:     writer,
		batchSize:  batchSize,
		batch:      make([]*models.AppRecord, 0, batchSize),
		validation: make(map[string]int),
	}
}

// Process appends records to the collection.
func (p *Pipeline) Process(records ...*models.AppRecord) error {
	if p.err != nil {
		return p.err
	}
	if p.closed {
		return ErrPipelineClosed
	}

	for _, r := range records {
		if err := parser.ValidateRecord(r); err != nil {
			p.validation["invalid_record"]++
			continue
		}
		p.batch = append(p.batch, r)
		p.processed++
		if len(p.batch) >= p.batchSize {
			if err := p.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close flushes pending records and prevents more submissions.
// It does not close the writer.
func (p *Pipeline) Close() error {
	if p.closed {
		return p.err
	}
	p.closed = true
	if p.err == nil {
		if err := p.flush(); err != nil {
			return err
		}
	}
	return p.err
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	return p.err
}

// Count returns the number of records accepted so far.
func (p *Pipeline) Count() int {
	return p.processed
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	copyValidation := make(map[string]int, len(p.validation))
	for k, v := range p.validation {
		copyValidation[k] = v
	}
	return map[string]interface{}{
		"processed_records": p.processed,
		"validation_errors": copyValidation,
	}
}

func (p *Pipeline) flush() error {
	if len(p.batch) == 0 {
		return nil
	}
	if err := p.writer.Write(p.batch); err != nil {
		p.err = fmt.Errorf("write batch: %w", err)
		return p.err
	}
	p.batch = p.batch[:0]
	return nil
}
