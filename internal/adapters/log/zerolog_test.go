package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/atdrive/internal/domain"
	"github.com/bft-labs/atdrive/internal/ports"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf)).Component("transmitter")

	z.Info("sent command",
		ports.Int("index", 2),
		ports.Action(domain.ActionRestart),
		ports.Payload([]byte("AT\r\n")),
		ports.Duration("delay", 100*time.Millisecond),
		ports.Bool("ok", true),
		ports.Err(errors.New("boom")),
	)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "info", got["level"])
	assert.Equal(t, "sent command", got["message"])
	assert.Equal(t, "transmitter", got["component"])
	assert.EqualValues(t, 2, got["index"])
	assert.Equal(t, "restart", got["action"])
	assert.Equal(t, `AT\r\n`, got["data"])
	assert.Equal(t, true, got["ok"])
	assert.Equal(t, "boom", got["error"])
}

func TestZerologAdapter_DisabledLevel(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	z.Debug("hidden", ports.String("k", "v"))
	z.Info("hidden")
	assert.Zero(t, buf.Len())

	z.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}
