package utils

import (
	"bytes"
	"image/color"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMath_MinMaxAbs(t *testing.T) {
	assert.Equal(t, 2, Min(2, 5))
	assert.Equal(t, 2, Min(5, 2))
	assert.Equal(t, 5, Max(2, 5))
	assert.Equal(t, 5.5, Max(5.5, -1))
	assert.Equal(t, 3, Abs(-3))
	assert.Equal(t, 0.25, Abs(0.25))
	assert.Equal(t, 10, Clamp(12, 0, 10))
	assert.Equal(t, 0, Clamp(-4, 0, 10))
	assert.Equal(t, 7, Clamp(7, 0, 10))
}

func TestFormat_DecorateText(t *testing.T) {
	defer SetColor(colored)

	SetColor(true)
	s := DecorateText("done", SuccessMessage)
	assert.True(t, strings.HasPrefix(s, SuccessColor))
	assert.True(t, strings.HasSuffix(s, DefaultColor))
	assert.Equal(t, "raw", DecorateText("raw", MessageType(42)))

	SetColor(false)
	assert.Equal(t, "plain", DecorateText("plain", ErrorMessage))
}

func TestFormat_Faces(t *testing.T) {
	assert.Equal(t, "no faces", Faces(0))
	assert.Equal(t, "1 face", Faces(1))
	assert.Equal(t, "3 faces", Faces(3))
}

func TestFormat_FormatTime(t *testing.T) {
	assert.Equal(t, "1.50s", FormatTime(1500*time.Millisecond))
	assert.Equal(t, "2m 5.00s", FormatTime(2*time.Minute+5*time.Second))
	assert.Equal(t, "1h 1m 1.00s", FormatTime(time.Hour+time.Minute+time.Second))
	assert.Equal(t, "2d 0h 3m 0.00s", FormatTime(48*time.Hour+3*time.Minute))
}

func TestUtils_HexToRGBA(t *testing.T) {
	c, err := HexToRGBA("#ff0080")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0xff, G: 0x00, B: 0x80, A: 0xff}, c)

	c, err = HexToRGBA("00ff0040")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{G: 0xff, A: 0x40}, c)

	_, err = HexToRGBA("#zzz")
	assert.Error(t, err)
	_, err = HexToRGBA("#gg0000")
	assert.Error(t, err)
}

func TestLogger_Levels(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))

	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	logger := InitLogger(&buf, "warn", true)
	logger.Info("hidden")
	logger.Warn("shown", "faces", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"faces":2`)
}
