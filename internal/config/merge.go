package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names used for shallow merge.
const (
	keyData      = "data"
	keyScaling   = "scaling"
	keyClimate   = "climate"
	keyLogging   = "logging"
	keyServer    = "server"
	keyDashboard = "dashboard"
)

// ShallowMergeYAML loads a YAML file and merges its top-level keys onto
// target. A section present in the overlay replaces the whole section,
// starting from its defaults; absent sections are left unchanged. Unknown
// keys are ignored.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay file %s: %w", overlayPath, err)
	}

	var overlay map[string]yaml.Node
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing overlay YAML from %s: %w", overlayPath, err)
	}

	for key, node := range overlay {
		if err = mergeSection(target, key, &node); err != nil {
			return fmt.Errorf("applying overlay section %q: %w", key, err)
		}
	}
	return nil
}

// mergeSection decodes node into a fresh default section so fields omitted
// in the overlay fall back to defaults, not to the target's previous values.
func mergeSection(target *Config, key string, node *yaml.Node) error {
	defaults := Default()
	switch key {
	case keyData:
		v := defaults.Data
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Data = v
	case keyScaling:
		v := defaults.Scaling
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Scaling = v
	case keyClimate:
		v := defaults.Climate
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Climate = v
	case keyLogging:
		v := defaults.Logging
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Logging = v
	case keyServer:
		v := defaults.Server
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Server = v
	case keyDashboard:
		v := defaults.Dashboard
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Dashboard = v
	}
	return nil
}
