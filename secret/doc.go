// Package secret resolves secret references in dependency settings.
//
// Values are first expanded with ExpandEnvStrict, then secret references are
// replaced by the value their provider returns:
//   - Full value:  secretref:env:DATABASE_URL
//   - Inline use:  redis://:{secretref:file:/run/secrets/redis}@cache:6379/0
//
// The env and file providers are registered in DefaultRegistry;
// NewDefaultResolver wires both.
package secret
