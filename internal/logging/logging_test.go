package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorry-parking-backend/config"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LogConfig{Level: "debug", Format: "json"}, &buf)

	logger.WithField("token", 7).Debug("record created")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "record created", line["msg"])
	assert.Equal(t, float64(7), line["token"])
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestNewWithWriter_UnknownLevel(t *testing.T) {
	logger := NewWithWriter(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}
