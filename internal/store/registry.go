package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/cache/redisstore"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/mongostore"
)

// Deps carries shared clients a backend may need; unused ones may be nil.
type Deps struct {
	Mongo   *mongostore.Client
	Redis   *redisstore.Client
	Options Options
}

type Factory func(ctx context.Context, d Deps) (Store, error)

var reg = map[string]Factory{}

// Register is called from backend init functions.
func Register(name string, f Factory) {
	reg[name] = f
}

// Open builds the named backend and wraps it with operation metrics.
func Open(ctx context.Context, name string, d Deps) (Store, error) {
	f, ok := reg[name]
	if !ok {
		return nil, fmt.Errorf("no store backend %q registered (have %v)", name, Names())
	}
	s, err := f(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", name, err)
	}
	return Instrument(name, s), nil
}

func Names() []string {
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
