package environment

import "context"

// Provider looks up configuration values such as API keys.
type Provider interface {
	// Get returns the value of name, or "" when it is not set.
	Get(ctx context.Context, name string) string
}

// NewDefaultProvider reads the process environment first and falls back
// to the given .env files.
func NewDefaultProvider(envFiles ...string) Provider {
	return NewMultiProvider(
		NewOsEnvProvider(),
		NewDotEnvProvider(envFiles...),
	)
}

// Require returns the values of all names, or a *RequiredEnvError listing
// the ones that are missing.
func Require(ctx context.Context, p Provider, names ...string) (map[string]string, error) {
	values := make(map[string]string, len(names))
	var missing []string
	for _, name := range names {
		v := p.Get(ctx, name)
		if v == "" {
			missing = append(missing, name)
			continue
		}
		values[name] = v
	}

	if len(missing) > 0 {
		return nil, &RequiredEnvError{Missing: missing}
	}
	return values, nil
}

// FirstOf returns the first non-empty value among names. Names are tried
// in order, so a preferred key can shadow its legacy alias.
func FirstOf(ctx context.Context, p Provider, names ...string) (string, error) {
	for _, name := range names {
		if v := p.Get(ctx, name); v != "" {
			return v, nil
		}
	}
	return "", &RequiredEnvError{Missing: names, AnyOf: true}
}
