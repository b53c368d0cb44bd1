package models

import (
	"fmt"
	"strings"
)

// ResourceType is a WebKit resource type.  Its value is the wire literal.
type ResourceType string

// Resource types known to WebKit.
const (
	ResourceDocument    ResourceType = "document"
	ResourceImage       ResourceType = "image"
	ResourceStyleSheet  ResourceType = "style-sheet"
	ResourceScript      ResourceType = "script"
	ResourceFont        ResourceType = "font"
	ResourceRaw         ResourceType = "raw"
	ResourceSVGDocument ResourceType = "svg-document"
	ResourceMedia       ResourceType = "media"
	ResourcePopup       ResourceType = "popup"
)

// ResourceTypes returns the whole resource type vocabulary in declaration
// order.
func ResourceTypes() []ResourceType {
	return []ResourceType{
		ResourceDocument,
		ResourceImage,
		ResourceStyleSheet,
		ResourceScript,
		ResourceFont,
		ResourceRaw,
		ResourceSVGDocument,
		ResourceMedia,
		ResourcePopup,
	}
}

// Valid reports whether rt belongs to the vocabulary.
func (rt ResourceType) Valid() bool {
	switch rt {
	case ResourceDocument, ResourceImage, ResourceStyleSheet, ResourceScript, ResourceFont,
		ResourceRaw, ResourceSVGDocument, ResourceMedia, ResourcePopup:
		return true
	default:
		return false
	}
}

// LoadType tells whether a resource is loaded from the page's own domain.
type LoadType string

// Load types known to WebKit.
const (
	LoadFirstParty LoadType = "first-party"
	LoadThirdParty LoadType = "third-party"
)

// Valid reports whether lt belongs to the vocabulary.
func (lt LoadType) Valid() bool {
	return lt == LoadFirstParty || lt == LoadThirdParty
}

// ActionType is the effect a rule has on the requests it matches.
type ActionType string

// Action types known to WebKit.
const (
	ActionBlock               ActionType = "block"
	ActionBlockCookies        ActionType = "block-cookies"
	ActionCSSDisplayNone      ActionType = "css-display-none"
	ActionIgnorePreviousRules ActionType = "ignore-previous-rules"
)

// Valid reports whether at belongs to the vocabulary.
func (at ActionType) Valid() bool {
	switch at {
	case ActionBlock, ActionBlockCookies, ActionCSSDisplayNone, ActionIgnorePreviousRules:
		return true
	default:
		return false
	}
}

// MatchAllFilter is the url-filter used when a trigger is built without one.
const MatchAllFilter = ".*"

// Trigger describes the requests a rule applies to.  Only NewTrigger builds
// a usable Trigger; the zero value is rejected by the encoder.
type Trigger struct {
	urlFilter     string
	caseSensitive *bool
	resourceTypes Set[ResourceType]
	loadTypes     Set[LoadType]
	ifDomain      Set[string]
	unlessDomain  Set[string]
	built         bool
}

// triggerParams collects the caller's input before validation.
type triggerParams struct {
	urlFilter     *string
	caseSensitive *bool
	resourceTypes []ResourceType
	loadTypes     []LoadType
	ifDomain      []string
	unlessDomain  []string

	hasResourceTypes bool
	hasLoadTypes     bool
	hasIfDomain      bool
	hasUnlessDomain  bool
}

// TriggerOption sets one field of a trigger being built.  Passing an option
// marks its field as supplied, even when it carries no values.
type TriggerOption func(*triggerParams)

// WithURLFilter sets the url-filter regular expression.
func WithURLFilter(pattern string) TriggerOption {
	return func(p *triggerParams) { p.urlFilter = &pattern }
}

// WithCaseSensitive sets url-filter-is-case-sensitive.  It requires
// WithURLFilter.
func WithCaseSensitive(caseSensitive bool) TriggerOption {
	return func(p *triggerParams) { p.caseSensitive = &caseSensitive }
}

// WithResourceTypes restricts the trigger to the given resource types.
func WithResourceTypes(types ...ResourceType) TriggerOption {
	return func(p *triggerParams) {
		p.resourceTypes = append(p.resourceTypes, types...)
		p.hasResourceTypes = true
	}
}

// WithLoadTypes restricts the trigger to the given load types.
func WithLoadTypes(types ...LoadType) TriggerOption {
	return func(p *triggerParams) {
		p.loadTypes = append(p.loadTypes, types...)
		p.hasLoadTypes = true
	}
}

// WithIfDomain restricts the trigger to pages on the given domains.  It
// cannot be combined with WithUnlessDomain.
func WithIfDomain(domains ...string) TriggerOption {
	return func(p *triggerParams) {
		p.ifDomain = append(p.ifDomain, domains...)
		p.hasIfDomain = true
	}
}

// WithUnlessDomain excludes pages on the given domains.  It cannot be combined
// with WithIfDomain.
func WithUnlessDomain(domains ...string) TriggerOption {
	return func(p *triggerParams) {
		p.unlessDomain = append(p.unlessDomain, domains...)
		p.hasUnlessDomain = true
	}
}

// NewTrigger validates opts and builds a Trigger.  Errors wrap
// ErrInvalidTrigger.  Supplied collections are deduplicated keeping the first
// occurrence of each value; collections that were not supplied stay absent.
func NewTrigger(opts ...TriggerOption) (t Trigger, err error) {
	p := &triggerParams{}
	for _, opt := range opts {
		opt(p)
	}

	if p.caseSensitive != nil && p.urlFilter == nil {
		return Trigger{}, fmt.Errorf("%w: url-filter-is-case-sensitive without url-filter", ErrInvalidTrigger)
	}

	if p.hasIfDomain && p.hasUnlessDomain {
		return Trigger{}, fmt.Errorf("%w: if-domain and unless-domain are mutually exclusive", ErrInvalidTrigger)
	}

	for _, rt := range p.resourceTypes {
		if !rt.Valid() {
			return Trigger{}, fmt.Errorf("%w: unknown resource type %q", ErrInvalidTrigger, rt)
		}
	}

	for _, lt := range p.loadTypes {
		if !lt.Valid() {
			return Trigger{}, fmt.Errorf("%w: unknown load type %q", ErrInvalidTrigger, lt)
		}
	}

	t = Trigger{
		urlFilter: MatchAllFilter,
		built:     true,
	}

	if p.urlFilter != nil {
		t.urlFilter = *p.urlFilter
	}

	if p.caseSensitive != nil {
		cs := *p.caseSensitive
		t.caseSensitive = &cs
	}

	if p.hasResourceTypes {
		t.resourceTypes = NewSet(p.resourceTypes...)
	}

	if p.hasLoadTypes {
		t.loadTypes = NewSet(p.loadTypes...)
	}

	if p.hasIfDomain {
		t.ifDomain = NewSet(p.ifDomain...)
	}

	if p.hasUnlessDomain {
		t.unlessDomain = NewSet(p.unlessDomain...)
	}

	return t, nil
}

// URLFilter returns the url-filter pattern.
func (t Trigger) URLFilter() string { return t.urlFilter }

// CaseSensitive returns url-filter-is-case-sensitive and whether it was set.
func (t Trigger) CaseSensitive() (caseSensitive, ok bool) {
	if t.caseSensitive == nil {
		return false, false
	}

	return *t.caseSensitive, true
}

// ResourceTypes returns the resource-type set.
func (t Trigger) ResourceTypes() Set[ResourceType] { return t.resourceTypes }

// LoadTypes returns the load-type set.
func (t Trigger) LoadTypes() Set[LoadType] { return t.loadTypes }

// IfDomain returns the if-domain set.
func (t Trigger) IfDomain() Set[string] { return t.ifDomain }

// UnlessDomain returns the unless-domain set.
func (t Trigger) UnlessDomain() Set[string] { return t.unlessDomain }

// Built reports whether t was produced by NewTrigger.
func (t Trigger) Built() bool { return t.built }

// Action is what happens to a request matched by a trigger.  Only NewAction and
// the CSS hide constructors build a usable Action.
type Action struct {
	actionType  ActionType
	selector    string
	hasSelector bool
}

// actionParams collects the optional parts of an action.
type actionParams struct {
	selector *string
}

// ActionOption sets an optional field of an action being built.
type ActionOption func(*actionParams)

// WithSelector sets the CSS selector of a css-display-none action.
func WithSelector(selector string) ActionOption {
	return func(p *actionParams) { p.selector = &selector }
}

// NewAction validates the combination of at and opts.  A selector is required
// for css-display-none and forbidden for every other type.  Errors wrap
// ErrInvalidAction.
func NewAction(at ActionType, opts ...ActionOption) (a Action, err error) {
	p := &actionParams{}
	for _, opt := range opts {
		opt(p)
	}

	switch {
	case !at.Valid():
		return Action{}, fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, at)
	case at == ActionCSSDisplayNone && p.selector == nil:
		return Action{}, fmt.Errorf("%w: %s requires a selector", ErrInvalidAction, at)
	case at != ActionCSSDisplayNone && p.selector != nil:
		return Action{}, fmt.Errorf("%w: selector is only allowed for %s, got %s", ErrInvalidAction, ActionCSSDisplayNone, at)
	}

	a = Action{actionType: at}
	if p.selector != nil {
		a.selector = *p.selector
		a.hasSelector = true
	}

	return a, nil
}

// NewCSSHideAction returns a css-display-none action hiding selector.
func NewCSSHideAction(selector string) Action {
	return Action{
		actionType:  ActionCSSDisplayNone,
		selector:    selector,
		hasSelector: true,
	}
}

// NewCSSHideActions returns a css-display-none action hiding every selector.
// The selectors are joined with ", " in the given order.
func NewCSSHideActions(selectors ...string) Action {
	return NewCSSHideAction(strings.Join(selectors, ", "))
}

// Type returns the action type.  It is empty for the zero Action.
func (a Action) Type() ActionType { return a.actionType }

// Selector returns the CSS selector and whether the action has one.
func (a Action) Selector() (selector string, ok bool) { return a.selector, a.hasSelector }

// Rule pairs a trigger with the action applied when it matches.
type Rule struct {
	trigger Trigger
	action  Action
}

// NewRule returns a rule applying a when t matches.
func NewRule(t Trigger, a Action) Rule {
	return Rule{trigger: t, action: a}
}

// Trigger returns the rule's trigger.
func (r Rule) Trigger() Trigger { return r.trigger }

// Action returns the rule's action.
func (r Rule) Action() Action { return r.action }
