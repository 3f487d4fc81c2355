package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/imdario/mergo"
	"gopkg.in/yaml.v3"

	"github.com/fystack/identity-minter/pkg/common/enum"
)

var validate = validator.New()

// Load reads a YAML config file. A missing file yields the defaults so the
// CLI works with environment variables alone.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	cfg.finalize()

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("struct validation failed: %w", err)
	}
	if _, ok := cfg.Networks[cfg.Network]; !ok {
		return nil, fmt.Errorf("network %s not configured", cfg.Network)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if err := mergo.Merge(c, Default()); err != nil {
		return fmt.Errorf("merge defaults: %w", err)
	}
	if c.Networks == nil {
		c.Networks = map[enum.Network]NetworkConfig{}
	}
	// user overrides win, presets fill the gaps
	for name, preset := range networkPresets {
		override := c.Networks[name]
		if err := mergo.Merge(&override, preset, mergo.WithTransformers(timeTransformer{})); err != nil {
			return fmt.Errorf("merge network %s: %w", name, err)
		}
		c.Networks[name] = override
	}
	return nil
}

// timeTransformer lets mergo fill zero time.Time values, which it otherwise
// skips because the struct has no exported fields.
type timeTransformer struct{}

func (timeTransformer) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ != reflect.TypeOf(time.Time{}) {
		return nil
	}
	return func(dst, src reflect.Value) error {
		if dst.CanSet() && dst.Interface().(time.Time).IsZero() {
			dst.Set(src)
		}
		return nil
	}
}
