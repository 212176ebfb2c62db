package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"cryptoagent/internal/logging"
)

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logging.New("debug", "JSON", &buf)
	require.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("symbol", "BTC").Debug("price fetched")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "BTC", entry["symbol"])
	require.Equal(t, "price fetched", entry["msg"])
}

func TestNew_UnknownLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logging.New("chatty", "text", &buf)
	require.Equal(t, logrus.InfoLevel, log.GetLevel())

	log.Debug("hidden")
	require.Empty(t, buf.String())
}
