package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/fixora/tasktrail/internal/requestctx"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_AddsContextFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	log := Wrap(base, "tasktrail")

	ctx := requestctx.WithCorrelationID(requestctx.BeginScope(context.Background()), "corr-1")
	requestctx.SetActor(ctx, 12)

	log.Info(ctx, "hello", map[string]interface{}{"k": "v"})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "hello", entry.Message)
	assert.Equal(t, "tasktrail", entry.Data["service"])
	assert.Equal(t, "corr-1", entry.Data["correlation_id"])
	assert.Equal(t, int64(12), entry.Data["actor_id"])
	assert.Equal(t, "v", entry.Data["k"])
}

func TestLogger_ErrorCarriesError(t *testing.T) {
	base, hook := test.NewNullLogger()
	log := Wrap(base, "")

	log.Error(context.Background(), "failed", errors.New("boom"), nil)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "boom", entry.Data[logrus.ErrorKey])
	assert.Contains(t, entry.Data, "caller")
}

func TestLogger_WithFieldsDoesNotMutateParent(t *testing.T) {
	base, hook := test.NewNullLogger()
	parent := Wrap(base, "")
	child := parent.WithFields(map[string]interface{}{"component": "audit"})

	child.Warn(context.Background(), "child", nil)
	assert.Equal(t, "audit", hook.LastEntry().Data["component"])

	parent.Warn(context.Background(), "parent", nil)
	assert.NotContains(t, hook.LastEntry().Data, "component")
}

func TestLogger_RespectsLevel(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.InfoLevel)
	log := Wrap(base, "")

	log.Debug(context.Background(), "hidden", nil)
	assert.Empty(t, hook.Entries)
}

func TestLogSecurityEvent(t *testing.T) {
	base, hook := test.NewNullLogger()
	log := Wrap(base, "")

	LogSecurityEvent(context.Background(), log, "login_failed", "MEDIUM", map[string]interface{}{"ip": "10.0.0.1"})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "login_failed", entry.Data["security_event"])
	assert.Equal(t, "10.0.0.1", entry.Data["ip"])
}
