package logger

import (
	"context"
	"sync"
	"testing"
	"time"

	common_models "go-crm-reports/internal/common/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memorySink struct {
	mu   sync.Mutex
	docs []common_models.Log
}

func (s *memorySink) InsertOne(_ context.Context, doc interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc.(common_models.Log))
	return &mongo.InsertOneResult{}, nil
}

func (s *memorySink) all() []common_models.Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]common_models.Log(nil), s.docs...)
}

func TestDBCore_TeesWarningsWithContext(t *testing.T) {
	sink := &memorySink{}
	writer := NewDBLogWriter(sink, "reports-test", 10)
	base, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(NewDBCore(base, writer, zapcore.WarnLevel))

	log.Info("not stored")
	log.With(zap.String("org_id", "org1")).Warn("slow preview", zap.String("report_id", "r1"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, writer.Close(ctx))

	assert.Equal(t, 2, logs.Len(), "all entries reach the base core")
	docs := sink.all()
	require.Len(t, docs, 1)
	assert.Equal(t, "slow preview", docs[0].Message)
	assert.Equal(t, "org1", docs[0].OrgID)
	assert.Equal(t, "r1", docs[0].ReportID)
	assert.Equal(t, "reports-test", docs[0].AppID)
	assert.Equal(t, 30, docs[0].LogLevelId)
}

type blockingSink struct{ release chan struct{} }

func (s *blockingSink) InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	<-s.release
	return &mongo.InsertOneResult{}, nil
}

func TestDBLogWriter_DropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	writer := NewDBLogWriter(sink, "x", 1)

	for i := 0; i < 10; i++ {
		writer.AddLog(LogEntry{Level: zapcore.ErrorLevel, Message: "boom"})
	}
	assert.Positive(t, writer.Dropped())

	close(sink.release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, writer.Close(ctx))
}

func TestDBLogWriter_AddLogAfterClose(t *testing.T) {
	sink := &memorySink{}
	writer := NewDBLogWriter(sink, "x", 4)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, writer.Close(ctx))
	require.NoError(t, writer.Close(ctx))

	assert.NotPanics(t, func() {
		writer.AddLog(LogEntry{Level: zapcore.ErrorLevel, Message: "late"})
	})
	assert.Equal(t, int64(1), writer.Dropped())
	assert.Empty(t, sink.all())
}
