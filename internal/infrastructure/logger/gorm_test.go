package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, threshold time.Duration) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, threshold), recorded
}

func sqlFunc(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_LogMode(t *testing.T) {
	l, _ := newObservedGormLogger(gormlogger.Info, DefaultSlowThreshold)
	changed, ok := l.LogMode(gormlogger.Error).(*GormLogger)
	require.True(t, ok)

	assert.Equal(t, gormlogger.Info, l.logLevel)
	assert.Equal(t, gormlogger.Error, changed.logLevel)
}

func TestGormLogger_Trace(t *testing.T) {
	t.Run("logs errors", func(t *testing.T) {
		l, recorded := newObservedGormLogger(gormlogger.Warn, DefaultSlowThreshold)
		l.Trace(context.Background(), time.Now(), sqlFunc("INSERT", 0), errors.New("duplicate key"))
		assert.Equal(t, 1, recorded.FilterMessage("SQL error").Len())
	})

	t.Run("ignores record not found", func(t *testing.T) {
		l, recorded := newObservedGormLogger(gormlogger.Warn, DefaultSlowThreshold)
		l.Trace(context.Background(), time.Now(), sqlFunc("SELECT", 0), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 0, recorded.Len())
	})

	t.Run("warns on slow queries", func(t *testing.T) {
		l, recorded := newObservedGormLogger(gormlogger.Warn, 10*time.Millisecond)
		l.Trace(context.Background(), time.Now().Add(-time.Second), sqlFunc("SELECT", 1), nil)
		require.Equal(t, 1, recorded.FilterMessage("Slow SQL").Len())
	})

	t.Run("debug logs queries at info level", func(t *testing.T) {
		l, recorded := newObservedGormLogger(gormlogger.Info, 0)
		ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-7")
		l.Trace(ctx, time.Now(), sqlFunc("SELECT 1", 1), nil)

		entries := recorded.FilterMessage("SQL query").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "req-7", entries[0].ContextMap()["request_id"])
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		l, recorded := newObservedGormLogger(gormlogger.Silent, DefaultSlowThreshold)
		l.Trace(context.Background(), time.Now(), sqlFunc("SELECT", 0), errors.New("x"))
		assert.Equal(t, 0, recorded.Len())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("info-ish"))
}
