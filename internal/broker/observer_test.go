package broker

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/brianly1003/pubd/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &line))
		lines = append(lines, line)
	}
	return lines
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	o := NewLogObserverWith(zerolog.New(&buf))

	o.ConnAccepted(1, "127.0.0.1:5000")
	o.MessageReceived(1, "127.0.0.1:5000", "+ news hi\r\n")
	o.ConnLost(1, "127.0.0.1:5000", domain.NewConnError("read", 1, domain.ErrConnClosed))
	o.ConnLost(2, "127.0.0.1:5001", errors.New("connection reset by peer"))
	o.SubscriberDropped(3, errors.New("broken pipe"))

	lines := logLines(t, &buf)
	require.Len(t, lines, 5)

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "connection accepted", lines[0]["message"])
	assert.Equal(t, float64(1), lines[0]["id"])

	assert.Equal(t, "+ news hi", lines[1]["text"])

	// A peer hang-up is routine; anything else is worth a warning.
	assert.Equal(t, "info", lines[2]["level"])
	assert.Equal(t, "warn", lines[3]["level"])

	assert.Equal(t, "warn", lines[4]["level"])
	assert.Equal(t, float64(3), lines[4]["id"])
}
