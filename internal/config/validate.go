package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/leapstack-labs/erdview/internal/introspect"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every section of c. The source section is only checked
// when a source type is set, since most commands never introspect.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", configPath(fe.Namespace()), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Source.Type != "" && !introspect.IsRegistered(c.Source.Type) {
		return &introspect.UnknownSourceError{Type: c.Source.Type, Available: introspect.ListSources()}
	}
	return nil
}

// configPath turns "Config.Cache.TTL" into "cache.ttl".
func configPath(namespace string) string {
	_, rest, ok := strings.Cut(namespace, ".")
	if !ok {
		rest = namespace
	}
	return strings.ToLower(rest)
}
