package models

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrigger_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opts []TriggerOption
	}{
		{
			name: "case sensitive true without url filter",
			opts: []TriggerOption{WithCaseSensitive(true)},
		},
		{
			name: "case sensitive false without url filter",
			opts: []TriggerOption{WithCaseSensitive(false)},
		},
		{
			name: "if and unless domain together",
			opts: []TriggerOption{WithIfDomain("a.com"), WithUnlessDomain("b.com")},
		},
		{
			name: "if and unless domain both empty",
			opts: []TriggerOption{WithIfDomain(), WithUnlessDomain()},
		},
		{
			name: "unknown resource type",
			opts: []TriggerOption{WithResourceTypes(ResourceType("websocket"))},
		},
		{
			name: "unknown load type",
			opts: []TriggerOption{WithLoadTypes(LoadType("any-party"))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trig, err := NewTrigger(tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidTrigger)
			assert.False(t, trig.Built())
		})
	}
}

func TestNewTrigger_Defaults(t *testing.T) {
	trig, err := NewTrigger()
	require.NoError(t, err)

	assert.True(t, trig.Built())
	assert.Equal(t, MatchAllFilter, trig.URLFilter())

	_, ok := trig.CaseSensitive()
	assert.False(t, ok)
	assert.False(t, trig.ResourceTypes().Present())
	assert.False(t, trig.LoadTypes().Present())
	assert.False(t, trig.IfDomain().Present())
	assert.False(t, trig.UnlessDomain().Present())
}

func TestNewTrigger_Domains(t *testing.T) {
	ifCase, err := NewTrigger(WithIfDomain("a.com"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.com"}, ifCase.IfDomain().Values())
	assert.False(t, ifCase.UnlessDomain().Present())

	unlessCase, err := NewTrigger(WithUnlessDomain("b.com"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b.com"}, unlessCase.UnlessDomain().Values())
	assert.False(t, unlessCase.IfDomain().Present())
}

func TestNewTrigger_Dedup(t *testing.T) {
	trig, err := NewTrigger(
		WithURLFilter("a"),
		WithCaseSensitive(true),
		WithResourceTypes(ResourceFont, ResourceDocument, ResourceDocument),
		WithLoadTypes(LoadFirstParty, LoadFirstParty, LoadThirdParty),
	)
	require.NoError(t, err)

	assert.Equal(t, "a", trig.URLFilter())

	cs, ok := trig.CaseSensitive()
	assert.True(t, ok)
	assert.True(t, cs)

	assert.Equal(t, 2, trig.ResourceTypes().Len())
	assert.Equal(t, []ResourceType{ResourceFont, ResourceDocument}, trig.ResourceTypes().Values())
	assert.Equal(t, 2, trig.LoadTypes().Len())
	assert.Equal(t, []LoadType{LoadFirstParty, LoadThirdParty}, trig.LoadTypes().Values())
}

func TestNewTrigger_PresentEmpty(t *testing.T) {
	trig, err := NewTrigger(WithResourceTypes(), WithIfDomain())
	require.NoError(t, err)

	assert.True(t, trig.ResourceTypes().Present())
	assert.Zero(t, trig.ResourceTypes().Len())
	assert.True(t, trig.IfDomain().Present())
	assert.False(t, trig.LoadTypes().Present())
}

func TestTrigger_ValuesAreCopies(t *testing.T) {
	trig, err := NewTrigger(WithIfDomain("a.com", "b.com"))
	require.NoError(t, err)

	vals := trig.IfDomain().Values()
	vals[0] = "evil.com"

	assert.Equal(t, []string{"a.com", "b.com"}, trig.IfDomain().Values())
}

func TestNewAction(t *testing.T) {
	tests := []struct {
		name     string
		typ      ActionType
		opts     []ActionOption
		wantErr  bool
		selector string
	}{{
		name:    "css display none without selector",
		typ:     ActionCSSDisplayNone,
		wantErr: true,
	}, {
		name:    "block cookies with selector",
		typ:     ActionBlockCookies,
		opts:    []ActionOption{WithSelector("#a")},
		wantErr: true,
	}, {
		name:    "unknown action type",
		typ:     ActionType("make-coffee"),
		wantErr: true,
	}, {
		name: "block without selector",
		typ:  ActionBlock,
	}, {
		name: "ignore previous rules",
		typ:  ActionIgnorePreviousRules,
	}, {
		name:     "css display none with selector",
		typ:      ActionCSSDisplayNone,
		opts:     []ActionOption{WithSelector(".ad")},
		selector: ".ad",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAction(tt.typ, tt.opts...)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAction)
				assert.Empty(t, a.Type())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.typ, a.Type())

			sel, ok := a.Selector()
			assert.Equal(t, tt.selector != "", ok)
			assert.Equal(t, tt.selector, sel)
		})
	}
}

func TestNewCSSHideActions(t *testing.T) {
	single := NewCSSHideAction("#a")
	assert.Equal(t, ActionCSSDisplayNone, single.Type())

	a := NewCSSHideActions("#a", ".hide")
	assert.Equal(t, ActionCSSDisplayNone, a.Type())

	sel, ok := a.Selector()
	require.True(t, ok)
	assert.Equal(t, "#a, .hide", sel)

	// Order is kept and duplicates are not removed.
	sel, _ = NewCSSHideActions(".b", ".a", ".b").Selector()
	assert.Equal(t, ".b, .a, .b", sel)
}

func TestNewRule(t *testing.T) {
	trig, err := NewTrigger(WithURLFilter("ads"))
	require.NoError(t, err)

	r := NewRule(trig, NewCSSHideAction(".banner"))
	assert.Equal(t, "ads", r.Trigger().URLFilter())
	assert.Equal(t, ActionCSSDisplayNone, r.Action().Type())
}

func TestNewTrigger_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("case sensitivity without url filter always fails", prop.ForAll(
		func(cs bool, domains []string) bool {
			_, err := NewTrigger(WithCaseSensitive(cs), WithIfDomain(domains...))
			return errors.Is(err, ErrInvalidTrigger)
		},
		gen.Bool(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("if and unless domain together always fail", prop.ForAll(
		func(ifd, unless []string) bool {
			_, err := NewTrigger(WithIfDomain(ifd...), WithUnlessDomain(unless...))
			return errors.Is(err, ErrInvalidTrigger)
		},
		gen.SliceOfN(3, gen.Identifier()),
		gen.SliceOfN(3, gen.Identifier()),
	))

	properties.Property("a single domain list is kept deduplicated", prop.ForAll(
		func(domains []string, unless bool) bool {
			opt := WithIfDomain(domains...)
			if unless {
				opt = WithUnlessDomain(domains...)
			}

			trig, err := NewTrigger(opt)
			if err != nil {
				return false
			}

			kept, other := trig.IfDomain(), trig.UnlessDomain()
			if unless {
				kept, other = other, kept
			}

			if other.Present() || !kept.Present() {
				return false
			}

			distinct := map[string]struct{}{}
			for _, d := range domains {
				distinct[d] = struct{}{}
				if !kept.Contains(d) {
					return false
				}
			}

			return kept.Len() == len(distinct)
		},
		gen.SliceOf(gen.OneConstOf("a.com", "b.com", "c.org", "*d.net")),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestNewAction_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("selector is allowed only for css-display-none", prop.ForAll(
		func(at ActionType, sel string) bool {
			_, err := NewAction(at, WithSelector(sel))
			return (err == nil) == (at == ActionCSSDisplayNone)
		},
		gen.OneConstOf(ActionBlock, ActionBlockCookies, ActionCSSDisplayNone, ActionIgnorePreviousRules),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
