package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/stub"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("configuration file is empty")
	ErrDuplicateUUID    = errors.New("duplicate uuid")
	ErrIncludeCycle     = errors.New("include cycle")
)

// Result is the content of a loaded stub document and everything it
// includes.
type Result struct {
	Lifecycles   []*stub.Lifecycle
	ProxyConfigs []*stub.ProxyConfig
	// Files lists every file read, in load order.
	Files []string
}

// Loader parses stub YAML.
type Loader struct {
	log *slog.Logger
}

// NewLoader creates a Loader. A nil logger discards output.
func NewLoader(log *slog.Logger) *Loader {
	if log == nil {
		log = logging.Nop()
	}
	return &Loader{log: log}
}

// LoadFile reads a stub document and the files it includes.
func (l *Loader) LoadFile(path string) (*Result, error) {
	res := &Result{}
	if err := l.loadFile(path, res, map[string]bool{}); err != nil {
		return nil, err
	}
	if err := checkUniqueUUIDs(res); err != nil {
		return nil, err
	}
	return res, nil
}

// Parse decodes a stub document. Relative file references and includes are
// resolved against baseDir.
func (l *Loader) Parse(data []byte, baseDir string) (*Result, error) {
	res := &Result{}
	if err := l.parse(data, baseDir, res, map[string]bool{}); err != nil {
		return nil, err
	}
	if err := checkUniqueUUIDs(res); err != nil {
		return nil, err
	}
	return res, nil
}

// ParseLifecycle decodes a document holding exactly one stub, given either as
// a bare mapping or as a single-element list.
func (l *Loader) ParseLifecycle(data []byte, baseDir string) (*stub.Lifecycle, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	doc := documentNode(&root)
	if doc == nil {
		return nil, ErrEmptyFile
	}
	if doc.Kind == yaml.SequenceNode {
		if len(doc.Content) != 1 {
			return nil, fmt.Errorf("expected exactly one stub, got %d", len(doc.Content))
		}
		doc = doc.Content[0]
	}
	lc, pc, err := l.decodeEntry(doc, baseDir)
	if err != nil {
		return nil, err
	}
	if pc != nil {
		return nil, errors.New("expected a stub, got a proxy-config")
	}
	return lc, nil
}

// ParseProxyConfig decodes a document holding exactly one proxy-config entry.
func (l *Loader) ParseProxyConfig(data []byte) (*stub.ProxyConfig, error) {
	res, err := l.Parse(data, "")
	if err != nil {
		return nil, err
	}
	if len(res.Lifecycles) > 0 || len(res.ProxyConfigs) != 1 {
		return nil, fmt.Errorf("expected exactly one proxy-config, got %d", len(res.ProxyConfigs))
	}
	return res.ProxyConfigs[0], nil
}

func (l *Loader) loadFile(path string, res *Result, visiting map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if visiting[abs] {
		return fmt.Errorf("%w: %s", ErrIncludeCycle, path)
	}
	visiting[abs] = true
	defer delete(visiting, abs)

	data, err := readFile(path)
	if err != nil {
		return err
	}
	res.Files = append(res.Files, path)

	if err := l.parse(data, filepath.Dir(path), res, visiting); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (l *Loader) parse(data []byte, baseDir string, res *Result, visiting map[string]bool) error {
	expanded := ExpandEnvVars(string(data))

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(expanded), &root); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	doc := documentNode(&root)
	if doc == nil {
		return nil
	}

	switch doc.Kind {
	case yaml.MappingNode:
		return l.parseIncludes(doc, baseDir, res, visiting)
	case yaml.SequenceNode:
		for i, item := range doc.Content {
			lc, pc, err := l.decodeEntry(item, baseDir)
			if err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
			if pc != nil {
				res.ProxyConfigs = append(res.ProxyConfigs, pc)
				continue
			}
			res.Lifecycles = append(res.Lifecycles, lc)
		}
		return nil
	default:
		return fmt.Errorf("line %d: stub document must be a list or an includes mapping", doc.Line)
	}
}

func (l *Loader) parseIncludes(doc *yaml.Node, baseDir string, res *Result, visiting map[string]bool) error {
	if err := checkKeys(doc, documentKeys, "document"); err != nil {
		return err
	}
	var includes struct {
		Includes []string `yaml:"includes"`
	}
	if err := doc.Decode(&includes); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	for _, pattern := range includes.Includes {
		matches, err := expandInclude(ResolvePath(baseDir, pattern))
		if err != nil {
			return fmt.Errorf("include %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			l.log.Warn("include matched no files", "pattern", pattern)
		}
		for _, m := range matches {
			if err := l.loadFile(m, res, visiting); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Loader) decodeEntry(node *yaml.Node, baseDir string) (*stub.Lifecycle, *stub.ProxyConfig, error) {
	if err := checkEntry(node); err != nil {
		return nil, nil, err
	}
	var e entryYAML
	if err := node.Decode(&e); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	if e.ProxyConfig != nil {
		if e.Request != nil || len(e.Response) > 0 {
			return nil, nil, fmt.Errorf("line %d: proxy-config cannot be combined with request or response", node.Line)
		}
		pc := &stub.ProxyConfig{
			UUID:        string(e.ProxyConfig.UUID),
			Description: string(e.ProxyConfig.Description),
			Strategy:    stub.ProxyStrategy(e.ProxyConfig.Strategy),
			Properties:  e.ProxyConfig.Properties.strings(),
			Headers:     e.ProxyConfig.Headers.strings(),
		}
		if err := pc.Validate(); err != nil {
			return nil, nil, err
		}
		return nil, pc, nil
	}

	if e.Request == nil {
		return nil, nil, fmt.Errorf("line %d: stub is missing a request", node.Line)
	}

	lc := &stub.Lifecycle{
		Description: string(e.Description),
		UUID:        strings.TrimSpace(string(e.UUID)),
		Request:     l.buildRequest(e.Request, baseDir),
	}
	for i, r := range e.Response {
		resp, err := l.buildResponse(r, baseDir)
		if err != nil {
			return nil, nil, fmt.Errorf("response %d: %w", i, err)
		}
		lc.Responses = append(lc.Responses, resp)
	}
	return lc, nil, nil
}

func (l *Loader) buildRequest(r *requestYAML, baseDir string) *stub.Request {
	req := &stub.Request{
		URL:     string(r.URL),
		Methods: []string(r.Method),
		Headers: r.Headers.strings(),
		Query:   r.Query.strings(),
		Post:    string(r.Post),
	}
	if r.File != "" {
		req.File = l.readReferenced(string(r.File), baseDir)
	}
	req.Normalize()
	normalizeAuthorization(req.Headers)
	return req
}

func (l *Loader) buildResponse(r responseYAML, baseDir string) (*stub.Response, error) {
	status := 0
	if s := strings.TrimSpace(string(r.Status)); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 100 || n > 999 {
			return nil, fmt.Errorf("invalid status %q", s)
		}
		status = n
	}
	resp := stub.NewResponse(status, string(r.Body))
	resp.Latency = strings.TrimSpace(string(r.Latency))
	if headers := r.Headers.strings(); headers != nil {
		resp.Headers = make(map[string]string, len(headers))
		for k, v := range headers {
			resp.Headers[strings.ToLower(k)] = v
		}
	}
	if r.File != "" {
		resp.FilePath = string(r.File)
		resp.File = l.readReferenced(resp.FilePath, baseDir)
	}
	return resp, nil
}

// readReferenced loads a file named by a stub. A missing or unreadable file
// yields empty content.
func (l *Loader) readReferenced(name, baseDir string) []byte {
	path := ResolvePath(baseDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		l.log.Warn("could not load file from stub, using empty content", "file", path, "error", err)
		return nil
	}
	return data
}

// normalizeAuthorization turns authorization pseudo-header values into the
// exact Authorization header value a request must carry. Values that already
// carry their scheme are kept, so rendered stubs load back unchanged.
func normalizeAuthorization(headers map[string]string) {
	if v, ok := headers[stub.HeaderAuthorizationBasic]; ok {
		v = strings.TrimSpace(v)
		if !strings.HasPrefix(v, "Basic ") {
			v = "Basic " + base64.StdEncoding.EncodeToString([]byte(v))
		}
		headers[stub.HeaderAuthorizationBasic] = v
	}
	if v, ok := headers[stub.HeaderAuthorizationBearer]; ok {
		v = strings.TrimSpace(v)
		if !strings.HasPrefix(v, "Bearer ") {
			v = "Bearer " + v
		}
		headers[stub.HeaderAuthorizationBearer] = v
	}
	if v, ok := headers[stub.HeaderAuthorizationCustom]; ok {
		headers[stub.HeaderAuthorizationCustom] = strings.TrimSpace(v)
	}
}

func checkUniqueUUIDs(res *Result) error {
	seen := make(map[string]bool)
	for i, lc := range res.Lifecycles {
		if lc.UUID == "" {
			continue
		}
		if seen[lc.UUID] {
			return fmt.Errorf("%w: stub #%d uses uuid %q", ErrDuplicateUUID, i, lc.UUID)
		}
		seen[lc.UUID] = true
	}
	proxies := make(map[string]bool)
	for _, pc := range res.ProxyConfigs {
		if proxies[pc.UUID] {
			return fmt.Errorf("%w: proxy-config %q", ErrDuplicateUUID, pc.UUID)
		}
		proxies[pc.UUID] = true
	}
	return nil
}

func documentNode(root *yaml.Node) *yaml.Node {
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil
		}
		return root.Content[0]
	}
	if root.Kind == 0 {
		return nil
	}
	return root
}

// readFile reads a stub document with wrapped errors for the common failures.
func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	return data, nil
}

// expandInclude expands an include pattern to matching files in lexical
// order. Uses doublestar for ** support, falls back to filepath.Glob for
// simple patterns.
func expandInclude(pattern string) ([]string, error) {
	var (
		matches []string
		err     error
	)
	if strings.Contains(pattern, "**") {
		matches, err = doublestar.FilepathGlob(pattern)
	} else {
		matches, err = filepath.Glob(pattern)
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnvVars replaces ${VAR} and ${VAR:-default} references.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		if val := os.Getenv(submatch[1]); val != "" {
			return val
		}
		if len(submatch) >= 3 {
			return submatch[2]
		}
		return ""
	})
}

// ResolvePath resolves targetPath against basePath unless it is absolute.
func ResolvePath(basePath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	if strings.HasPrefix(targetPath, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, targetPath[2:])
		}
	}
	return filepath.Join(basePath, targetPath)
}
