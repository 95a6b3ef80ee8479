// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Config holds a backend configuration parsed from a "key=value,key=value" string.
type Config map[string]string

// ParseConfig parses a backend configuration string of comma-separated "key=value" pairs,
// accepting only the given keys. An empty string returns an empty Config.
func ParseConfig(config string, validKeys ...string) (Config, error) {
	c := make(Config)
	if strings.TrimSpace(config) == "" {
		return c, nil
	}
	for _, part := range strings.Split(config, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, errors.Wrapf(ErrInvalidConfig, "expected \"key=value\", got %q in configuration %q", part, config)
		}
		if !slices.Contains(validKeys, key) {
			return nil, errors.Wrapf(ErrInvalidConfig, "unknown key %q in configuration %q, valid keys are %q",
				key, config, validKeys)
		}
		c[key] = strings.TrimSpace(value)
	}
	return c, nil
}

// Int returns the value of key converted to int, or defaultValue if not set.
func (c Config) Int(key string, defaultValue int) (int, error) {
	value, found := c[key]
	if !found {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidConfig, "value %q for key %q is not an integer", value, key)
	}
	return v, nil
}
