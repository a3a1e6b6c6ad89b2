package lang

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/ardnew/itom/program"
)

// Render converts a unit result into text using the conventions shared by
// the bundled dialects:
//
//   - nil renders as the empty string
//   - strings render verbatim, numbers and booleans in their shortest form
//   - an included [program.Output] renders its payload; binary image
//     payloads become a markdown data-URI image and failures render as
//     "ERROR: <message>"
//   - mappings render as sorted "key: value" lines
//   - sequences render as "[a, b]"
//
// Functions and channels cannot be rendered and yield [ErrUnconvertible].
func Render(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil

	case string:
		return t, nil

	case *program.Output:
		return RenderOutput(t), nil

	case map[string]any:
		lines := make([]string, 0, len(t))

		for _, k := range slices.Sorted(maps.Keys(t)) {
			s, err := Render(t[k])
			if err != nil {
				return "", err
			}

			lines = append(lines, k+": "+s)
		}

		return strings.Join(lines, "\n"), nil

	case []any:
		items := make([]string, 0, len(t))

		for _, e := range t {
			s, err := Render(e)
			if err != nil {
				return "", err
			}

			items = append(items, s)
		}

		return "[" + strings.Join(items, ", ") + "]", nil
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return "", ErrUnconvertible.With(slog.String("type", fmt.Sprintf("%T", v)))
	default:
		return render(v), nil
	}
}

// RenderOutput renders an included output inline.
func RenderOutput(out *program.Output) string {
	if out == nil {
		return ""
	}

	if !out.Succeeded() {
		return "ERROR: " + out.Err()
	}

	if out.VisualType() == program.VisualPNG {
		return "![png](data:image/png;base64," +
			base64.StdEncoding.EncodeToString(out.Bytes()) + ")"
	}

	return out.Text()
}

// render formats scalars.
func render(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	default:
		if n := program.Normalize(v); reflect.TypeOf(n) != reflect.TypeOf(v) {
			if s, err := Render(n); err == nil {
				return s
			}
		}

		return fmt.Sprint(v)
	}
}

func formatFloat(f float64) string {
	if math.Abs(f) >= 1e21 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}
