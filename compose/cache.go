package compose

import (
	"context"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/ardnew/itom/program"
)

// ForceRefreshInput is the control input that bypasses the [Cache].
const ForceRefreshInput = "_forceRefresh"

// Cache stores rendered outputs by [Key].
type Cache interface {
	Get(ctx context.Context, key string) (*program.Output, bool, error)
	Put(ctx context.Context, key string, out *program.Output) error
}

// Key returns the cache key of req. Requests with equal keys render
// identical outputs for a deterministic backend.
func Key(req Request) string {
	fp := program.Fingerprint(req.Inputs, req.Config, req.Outputs)
	body := strconv.FormatUint(xxh3.HashString(req.Body), 36)

	return strings.Join([]string{req.DSL, string(req.VisualType), fp, body}, "-")
}

// forceRefresh reports whether inputs ask to bypass the cache.
func forceRefresh(inputs map[string]any) bool {
	switch v := inputs[ForceRefreshInput].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)

		return b
	case int:
		return v != 0
	default:
		return false
	}
}
