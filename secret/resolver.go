package secret

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// Ref names a secret held by a provider.
type Ref struct {
	Provider string
	Key      string
}

// String returns the full-value form, secretref:<provider>:<key>.
func (r Ref) String() string {
	return "secretref:" + r.Provider + ":" + r.Key
}

// ParseRef parses a full-value reference. Everything after the second colon
// is the key, so file paths and URLs survive intact.
func ParseRef(value string) (Ref, bool) {
	rest, ok := strings.CutPrefix(value, "secretref:")
	if !ok {
		return Ref{}, false
	}
	provider, key, ok := strings.Cut(rest, ":")
	if !ok || provider == "" || key == "" {
		return Ref{}, false
	}
	return Ref{Provider: provider, Key: key}, true
}

// inlineRef matches {secretref:<provider>:<key>} inside a larger value. The
// braces keep the key from swallowing the rest of a URL.
var inlineRef = regexp.MustCompile(`\{secretref:([^:\s{}]+):([^\s{}]+)\}`)

// Resolver replaces secret references with the values their providers
// return. It is safe for concurrent use once built.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver returns a resolver over providers, keyed by Provider.Name. A
// strict resolver treats an empty secret as an error.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: map[string]Provider{}, strict: strict}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// NewDefaultResolver returns a strict resolver with the env provider and a
// file provider anchored at fileDir.
func NewDefaultResolver(fileDir string) (*Resolver, error) {
	providers, err := DefaultRegistry.Open(Settings{FileDir: fileDir}, "env", "file")
	if err != nil {
		return nil, err
	}
	return NewResolver(true, providers...), nil
}

// Register adds or replaces a provider. Call it before the resolver is
// shared.
func (r *Resolver) Register(p Provider) {
	if r == nil || p == nil {
		return
	}
	if r.providers == nil {
		r.providers = map[string]Provider{}
	}
	r.providers[p.Name()] = p
}

// ResolveValue expands ${VAR} references and then resolves the value as a
// whole-value reference or, failing that, each inline reference in it.
// Errors name the reference but never a resolved value.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil || r == nil {
		return expanded, err
	}
	if ref, ok := ParseRef(expanded); ok {
		return r.lookup(ctx, ref)
	}
	return r.resolveInline(ctx, expanded)
}

// ResolveMap resolves every value of input into a new map. A nil input
// yields nil.
func (r *Resolver) ResolveMap(ctx context.Context, input map[string]string) (map[string]string, error) {
	if input == nil {
		return nil, nil
	}
	out := make(map[string]string, len(input))
	for _, k := range slices.Sorted(maps.Keys(input)) {
		v, err := r.ResolveValue(ctx, input[k])
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// Close closes the providers in name order.
func (r *Resolver) Close() error {
	if r == nil {
		return nil
	}
	var err error
	for _, name := range slices.Sorted(maps.Keys(r.providers)) {
		if e := r.providers[name].Close(); e != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", name, e))
		}
	}
	return err
}

func (r *Resolver) lookup(ctx context.Context, ref Ref) (string, error) {
	p, ok := r.providers[ref.Provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, ref.Provider)
	}
	v, err := p.Resolve(ctx, ref.Key)
	if err != nil {
		return "", err
	}
	if v == "" && r.strict {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, ref)
	}
	return v, nil
}

func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	var (
		b    strings.Builder
		last int
	)
	for _, m := range inlineRef.FindAllStringSubmatchIndex(value, -1) {
		v, err := r.lookup(ctx, Ref{Provider: value[m[2]:m[3]], Key: value[m[4]:m[5]]})
		if err != nil {
			return "", err
		}
		b.WriteString(value[last:m[0]])
		b.WriteString(v)
		last = m[1]
	}
	if last == 0 {
		return value, nil
	}
	b.WriteString(value[last:])
	return b.String(), nil
}
