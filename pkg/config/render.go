package config

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/stubd/pkg/stub"
)

// ToYAML renders lifecycles as a stub document that Parse accepts.
func ToYAML(lifecycles []*stub.Lifecycle) ([]byte, error) {
	data, err := yaml.Marshal(fieldsOf(lifecycles))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	return data, nil
}

// ToJSON renders lifecycles as indented JSON.
func ToJSON(lifecycles []*stub.Lifecycle) ([]byte, error) {
	data, err := json.MarshalIndent(fieldsOf(lifecycles), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ProxyConfigsToYAML renders proxy configs as proxy-config entries.
func ProxyConfigsToYAML(configs []*stub.ProxyConfig) ([]byte, error) {
	entries := make([]map[string]*stub.ProxyConfig, 0, len(configs))
	for _, pc := range configs {
		entries = append(entries, map[string]*stub.ProxyConfig{"proxy-config": pc})
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	return data, nil
}

func fieldsOf(lifecycles []*stub.Lifecycle) []map[string]any {
	out := make([]map[string]any, 0, len(lifecycles))
	for _, lc := range lifecycles {
		out = append(out, lc.Fields())
	}
	return out
}
