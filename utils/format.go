package utils

import (
	"fmt"
	"os"
	"time"
)

// MessageType selects the color of a CLI message.
type MessageType int

// The message types used by the command line tool.
const (
	DefaultMessage MessageType = iota
	SuccessMessage
	ErrorMessage
	StatusMessage
)

// ANSI escape sequences of the message colors.
const (
	DefaultColor = "\x1b[0m"
	StatusColor  = "\x1b[36m"
	SuccessColor = "\x1b[32m"
	ErrorColor   = "\x1b[31m"
)

var palette = map[MessageType]string{
	DefaultMessage: DefaultColor,
	SuccessMessage: SuccessColor,
	ErrorMessage:   ErrorColor,
	StatusMessage:  StatusColor,
}

// colored is false when the NO_COLOR environment variable is present.
var colored = os.Getenv("NO_COLOR") == ""

// SetColor turns the message decoration on or off.
func SetColor(enabled bool) {
	colored = enabled
}

// DecorateText wraps s in the color of the message type.
// Unknown types and disabled colors leave s untouched.
func DecorateText(s string, msgType MessageType) string {
	c, ok := palette[msgType]
	if !ok || !colored {
		return s
	}
	return c + s + DefaultColor
}

// Faces returns the face count as a human readable phrase.
func Faces(n int) string {
	switch n {
	case 0:
		return "no faces"
	case 1:
		return "1 face"
	}
	return fmt.Sprintf("%d faces", n)
}

// FormatTime prints a duration with the largest relevant units first, e.g. "1h 2m 3.40s".
func FormatTime(d time.Duration) string {
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d.Seconds()

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %.2fs", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %.2fs", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %.2fs", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", seconds)
}
