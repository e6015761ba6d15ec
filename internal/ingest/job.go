package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AngelCh415/touchpoints/internal/source"
)

var ErrRunning = errors.New("a batch is already running")

// Job runs the batch end to end: load the local dataset, assemble journeys,
// persist the document. Only one run may be in flight.
type Job struct {
	ETL        *ETL
	InputPath  string
	OutputPath string

	mu sync.Mutex
}

func (j *Job) Run(ctx context.Context) (RunResult, error) {
	if !j.mu.TryLock() {
		return RunResult{}, ErrRunning
	}
	defer j.mu.Unlock()

	customers, err := source.LoadCustomers(j.InputPath)
	if err != nil {
		return RunResult{}, fmt.Errorf("load input: %w", err)
	}
	res, journeys, err := j.ETL.Run(ctx, customers)
	if err != nil {
		return res, err
	}
	if j.OutputPath != "" {
		if err := source.WriteDocument(j.OutputPath, journeys); err != nil {
			return res, fmt.Errorf("write output: %w", err)
		}
		j.ETL.log.Info("document saved", slog.String("path", j.OutputPath), slog.String("run_id", res.RunID))
	}
	return res, nil
}
