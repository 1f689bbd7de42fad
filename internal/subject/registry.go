package subject

import (
	"strings"
	"sync"
	"time"

	"github.com/mythosmud/mudserver/internal/apperr"
	"golang.org/x/sync/singleflight"
)

// Registry is the registry-wide, single-writer source of truth for subject
// addressing. Many readers, one writer (administrative registration); the
// validate cache is invalidated on every write.
type Registry struct {
	maxLength      int
	strictAlphabet bool
	cacheEnabled   bool
	metricsEnabled bool

	mu       sync.RWMutex
	byName   map[string]*Pattern
	order    []string // registration order, for all_patterns()

	cacheMu sync.RWMutex
	cache   map[string]bool

	group singleflight.Group
	metrics *Metrics
}

// Option configures a new Registry.
type Option func(*Registry)

func WithMaxLength(n int) Option        { return func(r *Registry) { r.maxLength = n } }
func WithStrictAlphabet(b bool) Option  { return func(r *Registry) { r.strictAlphabet = b } }
func WithCacheEnabled(b bool) Option    { return func(r *Registry) { r.cacheEnabled = b } }
func WithMetricsEnabled(b bool) Option  { return func(r *Registry) { r.metricsEnabled = b } }

// New builds a Registry seeded with the built-in pattern table.
func New(opts ...Option) *Registry {
	r := &Registry{
		maxLength:      255,
		strictAlphabet: false,
		cacheEnabled:   true,
		metricsEnabled: true,
		byName:         make(map[string]*Pattern),
		cache:          make(map[string]bool),
		metrics:        newMetrics(),
	}
	for _, o := range opts {
		o(r)
	}
	for _, bp := range loadBuiltins() {
		if err := r.register(bp.Name, bp.Template, bp.Required, bp.Description); err != nil {
			panic("subject: invalid built-in pattern " + bp.Name + ": " + err.Error())
		}
	}
	return r
}

// Register adds a new pattern. New patterns may be added at runtime via
// the admin interface; patterns are never removed.
func (r *Registry) Register(name, template string, required []string, description string) error {
	return r.register(name, template, required, description)
}

func (r *Registry) register(name, template string, required []string, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := validateTemplate(name, template, required, r.byName); err != nil {
		r.recordError("invalid_pattern")
		return err
	}

	r.byName[name] = &Pattern{
		Name:           name,
		Template:       template,
		RequiredParams: append([]string(nil), required...),
		Description:    description,
	}
	r.order = append(r.order, name)
	r.invalidateCache()
	return nil
}

func validateTemplate(name, template string, required []string, existing map[string]*Pattern) *apperr.Error {
	if _, dup := existing[name]; dup {
		return apperr.New(apperr.InvalidPattern, "pattern %q already registered", name)
	}
	if template == "" || strings.HasPrefix(template, ".") || strings.HasSuffix(template, ".") {
		return apperr.New(apperr.InvalidPattern, "pattern %q: leading/trailing dot", name)
	}
	toks := tokens(template)
	placeholders := make(map[string]bool, len(toks))
	for _, t := range toks {
		if t == "" {
			return apperr.New(apperr.InvalidPattern, "pattern %q: empty token (double dot)", name)
		}
		if pn, ok := isPlaceholder(t); ok {
			if pn == "" {
				return apperr.New(apperr.InvalidPattern, "pattern %q: empty placeholder name", name)
			}
			placeholders[pn] = true
		}
	}
	for _, req := range required {
		if !placeholders[req] {
			return apperr.New(apperr.InvalidPattern, "pattern %q: required parameter %q has no placeholder", name, req)
		}
	}
	return nil
}

func (r *Registry) invalidateCache() {
	r.cacheMu.Lock()
	r.cache = make(map[string]bool)
	r.cacheMu.Unlock()
}

func (r *Registry) recordError(kind string) {
	if r.metricsEnabled {
		r.metrics.recordError(kind)
	}
}

// Build substitutes every placeholder in the named pattern's template and
// validates the result.
func (r *Registry) Build(name string, params map[string]string) (string, error) {
	start := time.Now()
	defer func() {
		if r.metricsEnabled {
			r.metrics.recordBuild(time.Since(start))
		}
	}()

	r.mu.RLock()
	p, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		r.recordError("pattern_not_found")
		return "", apperr.New(apperr.PatternNotFound, "no pattern registered as %q", name)
	}

	toks := tokens(p.Template)
	alphabet := alphabetFor(r.strictAlphabet)

	var missing []string
	out := make([]string, len(toks))
	for i, t := range toks {
		pn, isPH := isPlaceholder(t)
		if !isPH {
			out[i] = t
			continue
		}
		v, present := params[pn]
		if !present || v == "" {
			missing = append(missing, pn)
			continue
		}
		if !alphabet.MatchString(v) {
			r.recordError("invalid_value")
			return "", apperr.NewInvalidValue(pn)
		}
		out[i] = v
	}
	if len(missing) > 0 {
		r.recordError("missing_parameter")
		return "", apperr.NewMissingParameter(name, missing)
	}

	subj := strings.Join(out, ".")
	if len(subj) > r.maxLength {
		r.recordError("subject_too_long")
		return "", apperr.New(apperr.SubjectTooLong, "subject %q exceeds max length %d", subj, r.maxLength)
	}
	return subj, nil
}

// Validate reports whether subject structurally matches at least one
// registered pattern. Results are cached by subject string; the cache is
// invalidated on any registration.
func (r *Registry) Validate(subj string) bool {
	start := time.Now()

	if r.cacheEnabled {
		r.cacheMu.RLock()
		v, ok := r.cache[subj]
		r.cacheMu.RUnlock()
		if ok {
			if r.metricsEnabled {
				r.metrics.recordValidation(time.Since(start), true)
			}
			return v
		}
	}

	// singleflight collapses concurrent validations of the same subject
	// into one computation; readers that arrive while it is in flight
	// share the result instead of repeating the tokenisation work.
	res, _, _ := r.group.Do(subj, func() (any, error) {
		return r.computeValidate(subj), nil
	})
	valid := res.(bool)

	if r.cacheEnabled {
		r.cacheMu.Lock()
		r.cache[subj] = valid
		r.cacheMu.Unlock()
	}
	if r.metricsEnabled {
		r.metrics.recordValidation(time.Since(start), false)
	}
	return valid
}

func (r *Registry) computeValidate(subj string) bool {
	subjTokens := tokens(subj)
	alphabet := alphabetFor(r.strictAlphabet).MatchString

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		p := r.byName[name]
		if matchesTemplate(subjTokens, tokens(p.Template), alphabet) {
			return true
		}
	}
	return false
}

// SubscriptionPattern substitutes every placeholder in the named pattern's
// template with "*", rejecting subscription patterns that would be overly
// broad.
func (r *Registry) SubscriptionPattern(name string) (string, error) {
	r.mu.RLock()
	p, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		r.recordError("pattern_not_found")
		return "", apperr.New(apperr.PatternNotFound, "no pattern registered as %q", name)
	}

	toks := tokens(p.Template)
	wildcards := 0
	out := make([]string, len(toks))
	for i, t := range toks {
		if _, isPH := isPlaceholder(t); isPH {
			out[i] = "*"
			wildcards++
		} else {
			out[i] = t
		}
	}

	if len(toks) == 1 && wildcards == 1 {
		return "", apperr.New(apperr.InvalidPattern, "subscription pattern %q: single-token wildcard", name)
	}
	if wildcards == len(toks) {
		return "", apperr.New(apperr.InvalidPattern, "subscription pattern %q: all-wildcard", name)
	}
	if wildcards > 2 {
		return "", apperr.New(apperr.InvalidPattern, "subscription pattern %q: more than two wildcards", name)
	}
	if out[0] == "*" {
		return "", apperr.New(apperr.InvalidPattern, "subscription pattern %q: leading wildcard", name)
	}
	return strings.Join(out, "."), nil
}

// AllPatterns returns every registered pattern in registration order.
func (r *Registry) AllPatterns() []Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Pattern, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.byName[name])
	}
	return out
}

// Metrics returns a point-in-time snapshot of registry metrics.
func (r *Registry) Metrics() Snapshot {
	return r.metrics.snapshot()
}
