package log

import (
	"log/slog"
	"strconv"
	"strings"
)

// String returns the lowercase name of the level. Levels between the named
// constants are rendered relative to the nearest lower named level, as
// [slog.Level.String] does ("info+2").
func (l Level) String() string {
	if l < LevelDebug {
		if l == LevelTrace {
			return "trace"
		}

		return "trace" + strconv.Itoa(int(l-LevelTrace))
	}

	return strings.ToLower(slog.Level(l).String())
}

// MarshalText implements [encoding.TextMarshaler].
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// String returns the lowercase name of the format.
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	default:
		return "Format(" + strconv.Itoa(int(f)) + ")"
	}
}
