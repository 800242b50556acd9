package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmynk/tabsettle/internal/address"
)

var _ Resolver = (*StaticResolver)(nil)

// StaticResolver resolves members from a fixed directory. Names match
// case-insensitively.
type StaticResolver struct {
	addrs map[string]string
	names map[string]string
}

// NewStaticResolver builds a resolver from member name -> address.
func NewStaticResolver(members map[string]string) *StaticResolver {
	r := &StaticResolver{
		addrs: make(map[string]string, len(members)),
		names: make(map[string]string, len(members)),
	}
	for name, addr := range members {
		r.addrs[strings.ToLower(strings.TrimSpace(name))] = addr
		r.names[address.Normalize(addr)] = name
	}
	return r
}

func (r *StaticResolver) ResolveAddress(_ context.Context, name string) (string, error) {
	addr, ok := r.addrs[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("no address known for %q", name)
	}
	return addr, nil
}

func (r *StaticResolver) DisplayName(_ context.Context, addr string) string {
	return r.names[address.Normalize(addr)]
}
