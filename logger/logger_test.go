package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger("debug"))
	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())

	require.NoError(t, InitLogger(""))
	assert.Equal(t, logrus.InfoLevel, Logger.GetLevel())
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	err := InitLogger("loud")
	assert.Error(t, err)
	assert.NotNil(t, Logger)
}
