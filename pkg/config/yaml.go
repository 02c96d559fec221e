package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// scalar accepts any YAML scalar as its literal text, so `latency: 100` and
// `latency: "100"` decode the same.
type scalar string

func (s *scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", node.Line)
	}
	*s = scalar(node.Value)
	return nil
}

// scalarList accepts either a single scalar or a sequence of scalars.
type scalarList []string

func (l *scalarList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = splitMethods(node.Value)
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: expected a scalar list item", item.Line)
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("line %d: expected a scalar or a list", node.Line)
	}
}

// splitMethods accepts "GET" as well as "GET, HEAD".
func splitMethods(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type scalarMap map[string]scalar

func (m scalarMap) strings() map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = string(v)
	}
	return out
}

type requestYAML struct {
	URL     scalar     `yaml:"url"`
	Method  scalarList `yaml:"method"`
	Headers scalarMap  `yaml:"headers"`
	Query   scalarMap  `yaml:"query"`
	Post    scalar     `yaml:"post"`
	File    scalar     `yaml:"file"`
}

type responseYAML struct {
	Status  scalar    `yaml:"status"`
	Body    scalar    `yaml:"body"`
	File    scalar    `yaml:"file"`
	Headers scalarMap `yaml:"headers"`
	Latency scalar    `yaml:"latency"`
}

// responseList accepts a single response mapping or a sequence of them.
type responseList []responseYAML

func (l *responseList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var r responseYAML
		if err := node.Decode(&r); err != nil {
			return err
		}
		*l = responseList{r}
		return nil
	case yaml.SequenceNode:
		var rs []responseYAML
		if err := node.Decode(&rs); err != nil {
			return err
		}
		*l = rs
		return nil
	default:
		return fmt.Errorf("line %d: response must be a mapping or a list of mappings", node.Line)
	}
}

type proxyConfigYAML struct {
	UUID        scalar    `yaml:"uuid"`
	Description scalar    `yaml:"description"`
	Strategy    scalar    `yaml:"strategy"`
	Properties  scalarMap `yaml:"properties"`
	Headers     scalarMap `yaml:"headers"`
}

type entryYAML struct {
	Description scalar           `yaml:"description"`
	UUID        scalar           `yaml:"uuid"`
	Request     *requestYAML     `yaml:"request"`
	Response    responseList     `yaml:"response"`
	ProxyConfig *proxyConfigYAML `yaml:"proxy-config"`
}

// Property names accepted at each level of a stub document. resourceid is
// emitted when stubs are rendered and ignored on load.
var (
	entryKeys    = keySet("description", "uuid", "request", "response", "proxy-config", "resourceid")
	requestKeys  = keySet("url", "method", "headers", "query", "post", "file")
	responseKeys = keySet("status", "body", "file", "headers", "latency")
	proxyKeys    = keySet("uuid", "description", "strategy", "properties", "headers")
	documentKeys = keySet("includes")
)

func keySet(keys ...string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// checkKeys rejects unknown and repeated property names in a mapping node.
func checkKeys(node *yaml.Node, allowed map[string]bool, where string) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: %s must be a mapping", node.Line, where)
	}
	seen := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if !allowed[key.Value] {
			return fmt.Errorf("line %d: unknown %s property %q (allowed: %s)", key.Line, where, key.Value, joinKeys(allowed))
		}
		if seen[key.Value] {
			return fmt.Errorf("line %d: duplicate %s property %q", key.Line, where, key.Value)
		}
		seen[key.Value] = true
	}
	return nil
}

func joinKeys(set map[string]bool) string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

// mappingValue returns the value node for key, or nil.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// checkEntry validates property names throughout one top-level entry.
func checkEntry(node *yaml.Node) error {
	if err := checkKeys(node, entryKeys, "stub"); err != nil {
		return err
	}
	if pc := mappingValue(node, "proxy-config"); pc != nil {
		if err := checkKeys(pc, proxyKeys, "proxy-config"); err != nil {
			return err
		}
	}
	if req := mappingValue(node, "request"); req != nil {
		if err := checkKeys(req, requestKeys, "request"); err != nil {
			return err
		}
	}
	resp := mappingValue(node, "response")
	if resp == nil {
		return nil
	}
	if resp.Kind == yaml.SequenceNode {
		for _, item := range resp.Content {
			if err := checkKeys(item, responseKeys, "response"); err != nil {
				return err
			}
		}
		return nil
	}
	return checkKeys(resp, responseKeys, "response")
}
