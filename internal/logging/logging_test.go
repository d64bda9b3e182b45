package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/snapmed/internal/model"
)

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(model.LoggingConfig{Level: "debug", Format: "json"}, &buf)

	logger.WithField("drug", "ibuprofen").Debug("lookup")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "lookup", entry["msg"])
	assert.Equal(t, "ibuprofen", entry["drug"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNewWithOutput_UnknownLevel(t *testing.T) {
	logger := NewWithOutput(model.LoggingConfig{Level: "chatty"}, &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestOrDefault(t *testing.T) {
	assert.NotNil(t, OrDefault(nil))

	l := Discard()
	assert.Same(t, l, OrDefault(l))
}
