package events

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogRecorder writes every record to a structured logger
type LogRecorder struct {
	logger logrus.FieldLogger
}

// NewLogRecorder returns a LogRecorder backed by the supplied logger
func NewLogRecorder(logger logrus.FieldLogger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// HandAction implements Recorder
func (l *LogRecorder) HandAction(_ context.Context, record *ActionRecord) error {
	entry := l.logger.WithFields(logrus.Fields{
		"table": record.TableUUID,
		"hand":  record.HandUUID,
		"seat":  record.Seat,
		"kind":  record.Kind,
		"state": record.State.String(),
	})

	if record.Amount != nil {
		entry = entry.WithField("amount", *record.Amount)
	}

	entry.Info("hand action")
	return nil
}

// HandCompleted implements Recorder
func (l *LogRecorder) HandCompleted(_ context.Context, record *CompletionRecord) error {
	l.logger.WithFields(logrus.Fields{
		"table":   record.TableUUID,
		"hand":    record.HandUUID,
		"winners": record.WinnerSeats,
		"pot":     ledgerPotTotal(record),
		"rake":    record.Rake,
		"seed":    record.Seed,
	}).Info("hand completed")
	return nil
}

func ledgerPotTotal(record *CompletionRecord) int64 {
	var total int64
	for _, pot := range record.Pots {
		total += pot.Amount
	}

	return total
}

// MultiRecorder fans records out to multiple recorders. The first error is
// returned but every recorder is attempted.
type MultiRecorder []Recorder

// HandAction implements Recorder
func (m MultiRecorder) HandAction(ctx context.Context, record *ActionRecord) error {
	var firstErr error
	for _, recorder := range m {
		if err := recorder.HandAction(ctx, record); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// HandCompleted implements Recorder
func (m MultiRecorder) HandCompleted(ctx context.Context, record *CompletionRecord) error {
	var firstErr error
	for _, recorder := range m {
		if err := recorder.HandCompleted(ctx, record); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
