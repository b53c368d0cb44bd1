package converter

import (
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/bnema/webkit-content-blocker/internal/models"
	"go.uber.org/zap"
)

// Converter turns parsed filters into WebKit rules
type Converter struct {
	stats            Stats
	log              *zap.Logger
	selectorsPerRule int

	rules     []models.Rule
	important []models.Rule // $important rules, written after everything else
	pending   []string      // generic cosmetic selectors waiting to be grouped
}

// Stats tracks conversion statistics
type Stats struct {
	Converted   int // filters that ended up in a rule
	Rules       int
	Skipped     int
	SkipReasons map[string]int
}

// Skip reason constants
const (
	SkipInvalidRegex      = "invalid-regex"
	SkipCosmeticException = "cosmetic-exception"
	SkipEmptySelector     = "empty-selector"
	SkipInvalidTrigger    = "invalid-trigger"
	SkipInvalidAction     = "invalid-action"
)

// Option configures a Converter
type Option func(*Converter)

// WithLogger sets the logger used to report skipped filters
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) { c.log = l }
}

// WithSelectorsPerRule groups up to n generic cosmetic selectors into one
// css-display-none rule.  Values below 2 disable grouping.
func WithSelectorsPerRule(n int) Option {
	return func(c *Converter) { c.selectorsPerRule = n }
}

// New creates a new converter
func New(opts ...Option) *Converter {
	c := &Converter{
		stats: Stats{
			SkipReasons: make(map[string]int),
		},
		log:              zap.NewNop(),
		selectorsPerRule: 1,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// skip records a skipped filter with reason
func (c *Converter) skip(f models.Filter, reason string, err error) {
	c.stats.Skipped++
	c.stats.SkipReasons[reason]++
	c.log.Debug("skipped filter", zap.String("filter", f.Raw), zap.String("reason", reason), zap.Error(err))
}

// Stats returns conversion statistics
func (c *Converter) Stats() Stats {
	return c.stats
}

// Convert transforms filters into rules, keeping their relative order.
// Rules from $important filters are moved to the end of the list so that no
// ignore-previous-rules exception can lift them.
func (c *Converter) Convert(filters []models.Filter) []models.Rule {
	c.rules, c.important = nil, nil

	for _, f := range filters {
		var (
			rule   models.Rule
			reason string
			err    error
		)

		switch f.Type {
		case models.FilterTypeNetwork:
			rule, reason, err = c.convertNetwork(f, false)
		case models.FilterTypeException:
			rule, reason, err = c.convertNetwork(f, true)
		case models.FilterTypeCosmetic:
			if f.Selector != "" && len(f.Domains) == 0 && c.selectorsPerRule > 1 {
				c.group(f.Selector)
				continue
			}
			rule, reason, err = convertCosmetic(f)
		case models.FilterTypeCosmeticException:
			reason = SkipCosmeticException
		default:
			continue
		}

		if reason != "" {
			c.skip(f, reason, err)
			continue
		}

		c.stats.Converted++
		if f.Type == models.FilterTypeNetwork && f.Options.Important {
			c.important = append(c.important, rule)
			c.stats.Rules++

			continue
		}

		c.emit(rule)
	}

	c.flush()

	return append(c.rules, c.important...)
}

// emit appends a rule after any pending selector group, so that grouped
// rules never move past rules that followed them in the list
func (c *Converter) emit(r models.Rule) {
	c.flush()
	c.rules = append(c.rules, r)
	c.stats.Rules++
}

func (c *Converter) group(selector string) {
	c.pending = append(c.pending, selector)
	c.stats.Converted++
	if len(c.pending) >= c.selectorsPerRule {
		c.flush()
	}
}

func (c *Converter) flush() {
	if len(c.pending) == 0 {
		return
	}

	// A trigger without options cannot fail validation
	trigger := errors.Must(models.NewTrigger())
	c.rules = append(c.rules, models.NewRule(trigger, models.NewCSSHideActions(c.pending...)))
	c.stats.Rules++
	c.pending = nil
}

// convertNetwork converts a network filter to a block or
// ignore-previous-rules rule
func (c *Converter) convertNetwork(f models.Filter, isException bool) (models.Rule, string, error) {
	regex := PatternToRegex(f.Pattern)
	if issues := CheckPattern(regex); len(issues) > 0 {
		return models.Rule{}, SkipInvalidRegex, errors.Error(DescribeIssues(issues))
	}

	opts := []models.TriggerOption{models.WithURLFilter(regex)}
	if f.Options.MatchCase {
		opts = append(opts, models.WithCaseSensitive(true))
	}
	if f.Options.ResourceTypes != nil {
		opts = append(opts, models.WithResourceTypes(f.Options.ResourceTypes...))
	}
	if f.Options.LoadType != nil {
		opts = append(opts, models.WithLoadTypes(*f.Options.LoadType))
	}
	if len(f.Options.Domains) > 0 {
		opts = append(opts, models.WithIfDomain(normalizeDomains(f.Options.Domains)...))
	}
	if len(f.Options.ExcludeDomains) > 0 {
		opts = append(opts, models.WithUnlessDomain(normalizeDomains(f.Options.ExcludeDomains)...))
	}

	trigger, err := models.NewTrigger(opts...)
	if err != nil {
		return models.Rule{}, SkipInvalidTrigger, err
	}

	actionType := models.ActionBlock
	if isException {
		actionType = models.ActionIgnorePreviousRules
	}

	action, err := models.NewAction(actionType)
	if err != nil {
		return models.Rule{}, SkipInvalidAction, err
	}

	return models.NewRule(trigger, action), "", nil
}

// convertCosmetic converts a cosmetic filter to a css-display-none rule
func convertCosmetic(f models.Filter) (models.Rule, string, error) {
	if f.Selector == "" {
		return models.Rule{}, SkipEmptySelector, nil
	}

	var include, exclude []string
	for _, d := range f.Domains {
		if rest, ok := strings.CutPrefix(d, "~"); ok {
			exclude = append(exclude, normalizeDomain(rest))
		} else {
			include = append(include, normalizeDomain(d))
		}
	}

	var opts []models.TriggerOption
	if len(include) > 0 {
		opts = append(opts, models.WithIfDomain(include...))
	}
	if len(exclude) > 0 {
		opts = append(opts, models.WithUnlessDomain(exclude...))
	}

	trigger, err := models.NewTrigger(opts...)
	if err != nil {
		return models.Rule{}, SkipInvalidTrigger, err
	}

	action, err := models.NewAction(models.ActionCSSDisplayNone, models.WithSelector(f.Selector))
	if err != nil {
		return models.Rule{}, SkipInvalidAction, err
	}

	return models.NewRule(trigger, action), "", nil
}

// normalizeDomains adds * prefix for wildcard matching
func normalizeDomains(domains []string) []string {
	result := make([]string, len(domains))
	for i, d := range domains {
		result[i] = normalizeDomain(d)
	}
	return result
}

// normalizeDomain lowercases d and adds the * prefix WebKit needs to match
// subdomains
func normalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	if !strings.HasPrefix(d, "*") && !strings.HasPrefix(d, ".") {
		return "*" + d
	}
	return d
}
