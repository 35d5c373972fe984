package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type stubProvider struct {
	name     string
	values   map[string]string
	resolve  func(ref string) (string, error)
	closeErr error
	closed   bool
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	if s.resolve != nil {
		return s.resolve(ref)
	}
	return s.values[ref], nil
}

func (s *stubProvider) Close() error {
	s.closed = true
	return s.closeErr
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		ref      string
		ok       bool
	}{
		{"secretref:env:DB_URL", "env", "DB_URL", true},
		{"secretref:file:/run/secrets/db", "file", "/run/secrets/db", true},
		{"secretref:file:c:/weird", "file", "c:/weird", true},
		{"secretref:env:", "", "", false},
		{"secretref::x", "", "", false},
		{"postgres://localhost", "", "", false},
	}
	for _, tt := range tests {
		ref, ok := ParseRef(tt.in)
		if ref.Provider != tt.provider || ref.Key != tt.ref || ok != tt.ok {
			t.Errorf("ParseRef(%q) = %+v, %v", tt.in, ref, ok)
		}
		if ok && ref.String() != tt.in {
			t.Errorf("Ref.String() = %q, want %q", ref.String(), tt.in)
		}
	}
}

func TestResolver_ResolveValue(t *testing.T) {
	t.Setenv("CACHE_HOST", "cache.internal")
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{
		"alpha": "one",
		"pass":  "p@ss",
	}})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full", "secretref:stub:alpha", "one"},
		{"inline in url", "redis://:{secretref:stub:pass}@${CACHE_HOST}:6379/0", "redis://:p@ss@cache.internal:6379/0"},
		{"two inline", "{secretref:stub:alpha}-{secretref:stub:alpha}", "one-one"},
		{"bare inline is literal", "Bearer secretref:stub:alpha", "Bearer secretref:stub:alpha"},
		{"plain", "http://api.internal/health", "http://api.internal/health"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveValue(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("ResolveValue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_Errors(t *testing.T) {
	boom := errors.New("explode")
	r := NewResolver(true, &stubProvider{name: "stub", resolve: func(ref string) (string, error) {
		switch ref {
		case "boom":
			return "", boom
		case "empty":
			return "", nil
		}
		return "ok", nil
	}})

	tests := []struct {
		name string
		in   string
		want error
	}{
		{"provider error", "secretref:stub:boom", boom},
		{"strict empty", "secretref:stub:empty", ErrEmptySecret},
		{"unknown provider", "secretref:vault:x", ErrUnknownProvider},
		{"inline error", "x{secretref:stub:boom}", boom},
		{"missing env", "${PULSECHECK_NEVER_SET}", ErrMissingEnv},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.ResolveValue(context.Background(), tt.in); !errors.Is(err, tt.want) {
				t.Errorf("ResolveValue() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResolver_NonStrictAllowsEmpty(t *testing.T) {
	r := NewResolver(false, &stubProvider{name: "stub", values: map[string]string{}})

	got, err := r.ResolveValue(context.Background(), "secretref:stub:anything")
	if err != nil || got != "" {
		t.Errorf("ResolveValue() = %q, %v", got, err)
	}
}

func TestResolver_Nil(t *testing.T) {
	t.Setenv("X", "y")
	var r *Resolver

	got, err := r.ResolveValue(context.Background(), "${X}")
	if err != nil || got != "y" {
		t.Errorf("ResolveValue() = %q, %v", got, err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestResolver_ResolveMap(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"token": "abc"}})

	m, err := r.ResolveMap(context.Background(), map[string]string{"Authorization": "Bearer {secretref:stub:token}"})
	if err != nil {
		t.Fatalf("ResolveMap() error = %v", err)
	}
	if m["Authorization"] != "Bearer abc" {
		t.Errorf("ResolveMap() = %v", m)
	}

	if m, err := r.ResolveMap(context.Background(), nil); m != nil || err != nil {
		t.Errorf("ResolveMap(nil) = %v, %v", m, err)
	}

	_, err = r.ResolveMap(context.Background(), map[string]string{"X-Key": "secretref:missing:k"})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("ResolveMap() error = %v, want ErrUnknownProvider", err)
	}
}

func TestResolver_Close(t *testing.T) {
	closeErr := errors.New("close failed")
	r := NewResolver(true, &stubProvider{name: "a"}, &stubProvider{name: "b", closeErr: closeErr})

	if err := r.Close(); !errors.Is(err, closeErr) {
		t.Errorf("Close() error = %v, want %v", err, closeErr)
	}
}

func TestNewDefaultResolver(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mongo"), []byte("m0ngo\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MONGO_USER", "app")

	r, err := NewDefaultResolver(dir)
	if err != nil {
		t.Fatalf("NewDefaultResolver() error = %v", err)
	}

	got, err := r.ResolveValue(context.Background(),
		"mongodb://{secretref:env:MONGO_USER}:{secretref:file:mongo}@db:27017")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "mongodb://app:m0ngo@db:27017" {
		t.Errorf("ResolveValue() = %q", got)
	}
}
