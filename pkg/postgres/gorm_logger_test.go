package postgres

import (
	"context"
	"errors"
	"signalcrawler/config"
	"signalcrawler/pkg/logger"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	query := func() (string, int64) { return "SELECT 1", 1 }
	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		elapsed time.Duration
		err     error
		wantMsg string
		wantLvl zapcore.Level
	}{
		{name: "error", level: gormlogger.Warn, err: errors.New("boom"), wantMsg: "Query failed", wantLvl: zapcore.ErrorLevel},
		{name: "record not found ignored", level: gormlogger.Warn, err: gorm.ErrRecordNotFound},
		{name: "slow query", level: gormlogger.Warn, elapsed: time.Second, wantMsg: "Slow query", wantLvl: zapcore.WarnLevel},
		{name: "fast query below info", level: gormlogger.Warn},
		{name: "fast query at info", level: gormlogger.Info, wantMsg: "Query", wantLvl: zapcore.DebugLevel},
		{name: "silent", level: gormlogger.Silent, err: errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(&logger.Logger{Logger: zap.New(core)}, tt.level, 100*time.Millisecond)

			gl.Trace(context.Background(), time.Now().Add(-tt.elapsed), query, tt.err)

			if tt.wantMsg == "" {
				assert.Zero(t, logs.Len())
				return
			}
			entries := logs.All()
			if assert.Len(t, entries, 1) {
				assert.Equal(t, tt.wantMsg, entries[0].Message)
				assert.Equal(t, tt.wantLvl, entries[0].Level)
				assert.Equal(t, "SELECT 1", entries[0].ContextMap()["sql"])
			}
		})
	}
}

func TestGormLogger_LogMode(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := NewGormLogger(&logger.Logger{Logger: zap.New(core)}, gormlogger.Silent, 0)

	base.Warn(context.Background(), "pool %s", "exhausted")
	assert.Zero(t, logs.Len())

	base.LogMode(gormlogger.Warn).Warn(context.Background(), "pool %s", "exhausted")
	if assert.Equal(t, 1, logs.Len()) {
		assert.Equal(t, "pool exhausted", logs.All()[0].Message)
	}
}

func TestConnectionStrings(t *testing.T) {
	cfg := config.Database{Host: "db", Port: 5432, User: "crawler", Password: "secret", DBName: "signals", SSLMode: "disable"}

	assert.Equal(t, "host=db user=crawler password=secret dbname=signals port=5432 sslmode=disable", DSN(cfg))
	assert.Equal(t, "postgres://crawler:secret@db:5432/signals?sslmode=disable", MigrationURL(cfg))

	cfg.TimeZone = "UTC"
	assert.Equal(t, "host=db user=crawler password=secret dbname=signals port=5432 sslmode=disable TimeZone=UTC", DSN(cfg))
}
