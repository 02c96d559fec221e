package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/getmockd/stubd/internal/matching"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/stub"
)

// Errors returned by repository operations.
var (
	ErrIndexOutOfRange     = errors.New("stub index out of range")
	ErrUUIDNotFound        = errors.New("stub uuid not found")
	ErrDuplicateUUID       = errors.New("duplicate stub uuid")
	ErrProxyConfigNotFound = errors.New("proxy config not found")
)

// Store is the set of operations the HTTP layers need from the repository.
type Store interface {
	Search(req *stub.Request) (*Match, bool)
	List() []*stub.Lifecycle
	Count() int
	Get(index int) (*stub.Lifecycle, error)
	GetByUUID(uuid string) (*stub.Lifecycle, error)
	ReplaceAll(lifecycles []*stub.Lifecycle) error
	Reload(lifecycles []*stub.Lifecycle, proxies []*stub.ProxyConfig) error
	Append(lifecycles ...*stub.Lifecycle) error
	Update(index int, lc *stub.Lifecycle) error
	UpdateByUUID(uuid string, lc *stub.Lifecycle) error
	Delete(index int) (*stub.Lifecycle, error)
	DeleteByUUID(uuid string) (*stub.Lifecycle, error)
	Clear()
	Stats() map[int]int64
	StatsCSV() string
	ProxyConfig(uuid string) (*stub.ProxyConfig, bool)
	ProxyConfigs() []*stub.ProxyConfig
	PutProxyConfig(cfg *stub.ProxyConfig) error
	DeleteProxyConfig(uuid string) error
}

// Match is the result of a successful Search.
type Match struct {
	// Lifecycle is a copy of the matched lifecycle as it was at match time.
	Lifecycle *stub.Lifecycle

	// Response is the response selected for this hit.
	Response *stub.Response

	// ResourceID is the matched lifecycle's position.
	ResourceID int

	// Captures holds the values captured while matching.
	Captures matching.Captures

	// Unauthorized explains why the request failed the lifecycle's
	// authorization requirement. Response is nil when it is set.
	Unauthorized string
}

// Repository is the in-memory Store.
type Repository struct {
	mu         sync.Mutex
	lifecycles []*stub.Lifecycle
	cache      map[string]*stub.Lifecycle
	hits       map[int]int64
	proxies    map[string]*stub.ProxyConfig
	matcher    *matching.Matcher
	log        *slog.Logger
}

var _ Store = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Repository) {
		if log != nil {
			r.log = log
		}
	}
}

// WithMatcher sets the matcher used by Search.
func WithMatcher(m *matching.Matcher) Option {
	return func(r *Repository) {
		if m != nil {
			r.matcher = m
		}
	}
}

// NewRepository creates an empty repository.
func NewRepository(opts ...Option) *Repository {
	r := &Repository{
		cache:   make(map[string]*stub.Lifecycle),
		hits:    make(map[int]int64),
		proxies: make(map[string]*stub.ProxyConfig),
		matcher: matching.NewMatcher(nil),
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search finds the first lifecycle whose request matches req, counts the hit
// and selects the response for it. A request that fails the lifecycle's
// authorization check does not advance its sequence.
func (r *Repository) Search(req *stub.Request) (*Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := req.FullURL()
	lc, captures := r.fromCache(key, req)
	if lc == nil {
		lc, captures = r.scan(req)
		if lc == nil {
			return nil, false
		}
		r.cache[key] = lc
	}

	r.hits[lc.ResourceID]++
	snapshot := *lc
	m := &Match{
		Lifecycle:  &snapshot,
		ResourceID: lc.ResourceID,
		Captures:   captures,
	}
	if msg, ok := lc.Request.Authorize(req); !ok {
		m.Unauthorized = msg
		return m, true
	}
	m.Response = lc.NextResponse()
	return m, true
}

func (r *Repository) fromCache(key string, req *stub.Request) (*stub.Lifecycle, matching.Captures) {
	cached, ok := r.cache[key]
	if !ok {
		return nil, nil
	}
	captures := matching.Captures{}
	if r.matcher.Matches(cached.Request, req, captures) {
		// The key ignores headers and body, so an earlier lifecycle may
		// still claim this request.
		if lc, earlier := r.scanBefore(cached.ResourceID, req); lc != nil {
			r.cache[key] = lc
			return lc, earlier
		}
		return cached, captures
	}
	r.log.Debug("cached stub no longer matches, rescanning", "url", key, "index", cached.ResourceID)
	delete(r.cache, key)
	return nil, nil
}

func (r *Repository) scan(req *stub.Request) (*stub.Lifecycle, matching.Captures) {
	return r.scanBefore(len(r.lifecycles), req)
}

// scanBefore returns the first lifecycle below index n that matches req.
func (r *Repository) scanBefore(n int, req *stub.Request) (*stub.Lifecycle, matching.Captures) {
	for _, lc := range r.lifecycles[:min(n, len(r.lifecycles))] {
		captures := matching.Captures{}
		if r.matcher.Matches(lc.Request, req, captures) {
			return lc, captures
		}
	}
	return nil, nil
}

// List returns copies of all lifecycles in order.
func (r *Repository) List() []*stub.Lifecycle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*stub.Lifecycle, len(r.lifecycles))
	for i, lc := range r.lifecycles {
		c := *lc
		out[i] = &c
	}
	return out
}

// Count returns the number of lifecycles.
func (r *Repository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lifecycles)
}

// Get returns a copy of the lifecycle at index.
func (r *Repository) Get(index int) (*stub.Lifecycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkIndex(index); err != nil {
		return nil, err
	}
	c := *r.lifecycles[index]
	return &c, nil
}

// GetByUUID returns a copy of the lifecycle with the given uuid.
func (r *Repository) GetByUUID(uuid string) (*stub.Lifecycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	index, err := r.indexOf(uuid)
	if err != nil {
		return nil, err
	}
	c := *r.lifecycles[index]
	return &c, nil
}

// ReplaceAll swaps in a new list of lifecycles, keeping proxy configs.
func (r *Repository) ReplaceAll(lifecycles []*stub.Lifecycle) error {
	return r.reload(lifecycles, nil, false)
}

// Reload swaps in new lifecycles and proxy configs together.
func (r *Repository) Reload(lifecycles []*stub.Lifecycle, proxies []*stub.ProxyConfig) error {
	return r.reload(lifecycles, proxies, true)
}

func (r *Repository) reload(lifecycles []*stub.Lifecycle, proxies []*stub.ProxyConfig, replaceProxies bool) error {
	if err := checkUUIDs(lifecycles); err != nil {
		return err
	}
	proxyMap := make(map[string]*stub.ProxyConfig, len(proxies))
	for _, p := range proxies {
		if _, dup := proxyMap[p.UUID]; dup {
			return fmt.Errorf("proxy config %q: %w", p.UUID, ErrDuplicateUUID)
		}
		proxyMap[p.UUID] = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lifecycles = slices.Clone(lifecycles)
	r.hits = make(map[int]int64)
	if replaceProxies {
		r.proxies = proxyMap
	}
	r.renumber()
	r.log.Info("stubs reloaded", "stubs", len(r.lifecycles), "proxyConfigs", len(r.proxies))
	return nil
}

// Append adds lifecycles to the end of the list.
func (r *Repository) Append(lifecycles ...*stub.Lifecycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	combined := append(slices.Clone(r.lifecycles), lifecycles...)
	if err := checkUUIDs(combined); err != nil {
		return err
	}
	r.lifecycles = combined
	r.renumber()
	return nil
}

// Update replaces the lifecycle at index. Its hit counter starts over.
func (r *Repository) Update(index int, lc *stub.Lifecycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkIndex(index); err != nil {
		return err
	}
	return r.replaceAt(index, lc)
}

// UpdateByUUID replaces the lifecycle with the given uuid.
func (r *Repository) UpdateByUUID(uuid string, lc *stub.Lifecycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	index, err := r.indexOf(uuid)
	if err != nil {
		return err
	}
	return r.replaceAt(index, lc)
}

func (r *Repository) replaceAt(index int, lc *stub.Lifecycle) error {
	updated := slices.Clone(r.lifecycles)
	updated[index] = lc
	if err := checkUUIDs(updated); err != nil {
		return err
	}
	r.lifecycles = updated
	delete(r.hits, index)
	r.renumber()
	return nil
}

// Delete removes and returns the lifecycle at index.
func (r *Repository) Delete(index int) (*stub.Lifecycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkIndex(index); err != nil {
		return nil, err
	}
	return r.deleteAt(index), nil
}

// DeleteByUUID removes and returns the lifecycle with the given uuid.
func (r *Repository) DeleteByUUID(uuid string) (*stub.Lifecycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	index, err := r.indexOf(uuid)
	if err != nil {
		return nil, err
	}
	return r.deleteAt(index), nil
}

func (r *Repository) deleteAt(index int) *stub.Lifecycle {
	removed := r.lifecycles[index]
	r.lifecycles = slices.Delete(slices.Clone(r.lifecycles), index, index+1)

	// Counters follow their lifecycles to the new positions.
	shifted := make(map[int]int64, len(r.hits))
	for id, n := range r.hits {
		switch {
		case id < index:
			shifted[id] = n
		case id > index:
			shifted[id-1] = n
		}
	}
	r.hits = shifted
	r.renumber()
	return removed
}

// Clear removes every lifecycle. Proxy configs are kept.
func (r *Repository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lifecycles = nil
	r.hits = make(map[int]int64)
	r.renumber()
}

// Stats returns a copy of the hit counters keyed by resource id.
func (r *Repository) Stats() map[int]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.hits)
}

// StatsCSV renders hit counters as resourceId,hits lines ordered by id.
func (r *Repository) StatsCSV() string {
	stats := r.Stats()
	ids := slices.Sorted(maps.Keys(stats))

	var b strings.Builder
	b.WriteString("resourceId,hits\n")
	for _, id := range ids {
		b.WriteString(strconv.Itoa(id))
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(stats[id], 10))
		b.WriteByte('\n')
	}
	return b.String()
}

// ProxyConfig returns the proxy config with the given uuid.
func (r *Repository) ProxyConfig(uuid string) (*stub.ProxyConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proxies[uuid]
	return p, ok
}

// ProxyConfigs returns all proxy configs ordered by uuid.
func (r *Repository) ProxyConfigs() []*stub.ProxyConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*stub.ProxyConfig, 0, len(r.proxies))
	for _, uuid := range slices.Sorted(maps.Keys(r.proxies)) {
		out = append(out, r.proxies[uuid])
	}
	return out
}

// PutProxyConfig adds or replaces a proxy config.
func (r *Repository) PutProxyConfig(cfg *stub.ProxyConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proxies[cfg.UUID] = cfg
	return nil
}

// DeleteProxyConfig removes a proxy config.
func (r *Repository) DeleteProxyConfig(uuid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.proxies[uuid]; !ok {
		return fmt.Errorf("%w: %s", ErrProxyConfigNotFound, uuid)
	}
	delete(r.proxies, uuid)
	return nil
}

// renumber re-derives resource ids and drops the lookup cache. Callers hold mu.
func (r *Repository) renumber() {
	for i, lc := range r.lifecycles {
		lc.ResourceID = i
	}
	clear(r.cache)
}

func (r *Repository) checkIndex(index int) error {
	if index < 0 || index >= len(r.lifecycles) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return nil
}

func (r *Repository) indexOf(uuid string) (int, error) {
	if uuid != "" {
		for i, lc := range r.lifecycles {
			if lc.UUID == uuid {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrUUIDNotFound, uuid)
}

func checkUUIDs(lifecycles []*stub.Lifecycle) error {
	seen := make(map[string]struct{}, len(lifecycles))
	for _, lc := range lifecycles {
		if lc.UUID == "" {
			continue
		}
		if _, dup := seen[lc.UUID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateUUID, lc.UUID)
		}
		seen[lc.UUID] = struct{}{}
	}
	return nil
}
