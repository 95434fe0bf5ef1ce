package stream

import (
	"encoding/json"
	"testing"

	"github.com/lorrc/taskboard/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrame(t *testing.T) {
	t.Run("event struct", func(t *testing.T) {
		frame, err := EncodeFrame(domain.Event{Type: domain.EventTaskCreated, ID: "t1"})
		require.NoError(t, err)
		assert.Equal(t, "data: {\"type\":\"task_created\",\"id\":\"t1\"}\n\n", string(frame))
	})

	t.Run("raw json is compacted", func(t *testing.T) {
		frame, err := EncodeFrame(json.RawMessage("{\n  \"a\": 1,\n  \"b\": [1, 2]\n}"))
		require.NoError(t, err)
		assert.Equal(t, "data: {\"a\":1,\"b\":[1,2]}\n\n", string(frame))
	})

	t.Run("newlines inside strings stay on one line", func(t *testing.T) {
		frame, err := EncodeFrame(map[string]string{"title": "line1\nline2"})
		require.NoError(t, err)
		assert.Equal(t, "data: {\"title\":\"line1\\nline2\"}\n\n", string(frame))
	})

	t.Run("unencodable payload", func(t *testing.T) {
		_, err := EncodeFrame(map[string]any{"ch": make(chan int)})
		assert.Error(t, err)
	})
}
