package logger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	common_models "go-crm-reports/internal/common/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap/zapcore"
)

// LogEntry holds the data passed from Zap to our worker
type LogEntry struct {
	Level     zapcore.Level
	Message   string
	IpAddress string
	OrgID     string
	ReportID  string
	Caller    string
}

// LogSink is where log documents end up. *mongo.Collection satisfies it.
type LogSink interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// DBLogWriter handles the async writing
type DBLogWriter struct {
	sink    LogSink
	logChan chan LogEntry
	appId   string
	dropped atomic.Int64
	done    chan struct{}

	// mu orders sends against close: AddLog holds it shared, Close exclusive.
	mu     sync.RWMutex
	closed bool
}

func NewDBLogWriter(sink LogSink, appId string, buffer int) *DBLogWriter {
	if buffer <= 0 {
		buffer = 1000
	}
	writer := &DBLogWriter{
		sink:    sink,
		logChan: make(chan LogEntry, buffer),
		appId:   appId,
		done:    make(chan struct{}),
	}

	go writer.processLogs()

	return writer
}

// AddLog never blocks; entries are dropped while the buffer is full or
// after Close.
func (w *DBLogWriter) AddLog(entry LogEntry) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.dropped.Add(1)
		return
	}
	select {
	case w.logChan <- entry:
	default:
		w.dropped.Add(1)
	}
}

// Dropped is the number of entries lost to a full buffer or a closed writer.
func (w *DBLogWriter) Dropped() int64 {
	return w.dropped.Load()
}

// Close drains the buffer and stops the worker.
func (w *DBLogWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.logChan)
	}
	w.mu.Unlock()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *DBLogWriter) processLogs() {
	defer close(w.done)
	for entry := range w.logChan {
		record := common_models.Log{
			AppID:        w.appId,
			Message:      entry.Message,
			Caller:       entry.Caller,
			IpAddress:    entry.IpAddress,
			OrgID:        entry.OrgID,
			ReportID:     entry.ReportID,
			LogLevelId:   mapLevelToInt(entry.Level),
			CreatedOnUtc: time.Now().UTC(),
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		// A failed insert must not take the API down with it.
		_, _ = w.sink.InsertOne(ctx, record)
		cancel()
	}
}

func mapLevelToInt(l zapcore.Level) int {
	switch l {
	case zapcore.DebugLevel:
		return 10
	case zapcore.InfoLevel:
		return 20
	case zapcore.WarnLevel:
		return 30
	case zapcore.ErrorLevel:
		return 40
	case zapcore.FatalLevel:
		return 50
	default:
		return 20
	}
}
