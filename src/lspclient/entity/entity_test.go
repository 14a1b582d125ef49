package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestKey(t *testing.T) {
	t.Run("rootless", func(t *testing.T) {
		k := Key{ContentType: "yaml"}
		assert.False(t, k.Rooted())
		assert.Equal(t, "yaml", k.String())
	})

	t.Run("rooted", func(t *testing.T) {
		k := Key{ContentType: "YAML", Root: "/Work/Repo/"}
		assert.True(t, k.Rooted())
		assert.Equal(t, "YAML@/Work/Repo/", k.String())
		assert.Equal(t, Key{ContentType: "yaml", Root: "/Work/Repo"}, k.Normalized())
	})

	t.Run("log object", func(t *testing.T) {
		enc := zapcore.NewMapObjectEncoder()
		assert.NoError(t, Key{ContentType: "go", Root: "/repo"}.MarshalLogObject(enc))
		assert.Equal(t, map[string]interface{}{"contentType": "go", "root": "/repo"}, enc.Fields)
	})
}

func TestSessionStateString(t *testing.T) {
	tests := []struct {
		state SessionState
		want  string
	}{
		{StateNotStarted, "NotStarted"},
		{StateStarting, "Starting"},
		{StateStarted, "Started"},
		{StateStopping, "Stopping"},
		{StateStopped, "Stopped"},
		{SessionState(42), "Unknown"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestSyncModeString(t *testing.T) {
	assert.Equal(t, "None", SyncNone.String())
	assert.Equal(t, "Full", SyncFull.String())
	assert.Equal(t, "Incremental", SyncIncremental.String())
}

func TestClientHasConfigurationSections(t *testing.T) {
	assert.False(t, Client{}.HasConfigurationSections())
	assert.True(t, Client{ConfigurationSections: []string{"yaml"}}.HasConfigurationSections())
}
