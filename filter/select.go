package filter

import (
	"context"

	"github.com/s0up4200/watcharr/media"
)

var defaultCompiler = NewExprCompiler(WithCache(64))

// Compile compiles expression with the shared caching compiler
func Compile(expression string) (CompiledFilter, error) {
	return defaultCompiler.Compile(expression)
}

// Select returns the entries matching f in their original order. A nil
// filter matches everything.
func Select(ctx context.Context, f Filter, entries []media.Entry) ([]media.Entry, error) {
	if f == nil {
		return entries, nil
	}

	matches := make([]media.Entry, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Evaluate(entry) {
			matches = append(matches, entry)
		}
	}
	return matches, nil
}
