package lang

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/zeebo/xxh3"
)

// programCache stores compiled expressions keyed by the expression source
// and the shape of the environment it was checked against.
var programCache sync.Map

// compiled is one programCache entry.
type compiled struct {
	once sync.Once
	prog *vm.Program
	err  error
}

// signature describes the names and dynamic types bound in vars. Two
// environments with the same signature type-check an expression the same way.
func signature(vars map[string]any) string {
	var sb strings.Builder

	for _, k := range slices.Sorted(maps.Keys(vars)) {
		fmt.Fprintf(&sb, "%s:%T;", k, vars[k])
	}

	return sb.String()
}

// cacheKey hashes an expression together with an environment signature and
// any evaluator-specific salt.
func cacheKey(source, sig, salt string) string {
	return strconv.FormatUint(xxh3.HashString(source+"\x00"+sig+"\x00"+salt), 36)
}

// compile returns the compiled form of source checked against vars,
// compiling it at most once per distinct (source, signature, salt).
//
// Evaluators configured with extra expr options pass a unique salt so their
// programs are never shared with evaluators that lack them.
func compile(source string, vars map[string]any, salt string, opts []expr.Option) (*vm.Program, error) {
	key := cacheKey(source, signature(vars), salt)

	v, _ := programCache.LoadOrStore(key, new(compiled))

	entry, ok := v.(*compiled)
	if !ok {
		return expr.Compile(source, opts...)
	}

	entry.once.Do(func() {
		entry.prog, entry.err = expr.Compile(source, opts...)
	})

	return entry.prog, entry.err
}

// ClearCache removes all compiled expressions.
func ClearCache() {
	programCache.Clear()
}
