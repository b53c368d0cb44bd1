package encoder

import (
	"bytes"
	"encoding/json"
	"testing"
	"unicode/utf8"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/bnema/webkit-content-blocker/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTrigger(t testing.TB, opts ...models.TriggerOption) models.Trigger {
	t.Helper()

	trig, err := models.NewTrigger(opts...)
	require.NoError(t, err)

	return trig
}

func mustAction(t testing.TB, at models.ActionType, opts ...models.ActionOption) models.Action {
	t.Helper()

	a, err := models.NewAction(at, opts...)
	require.NoError(t, err)

	return a
}

func TestEncode_BlockCookies(t *testing.T) {
	rules := []models.Rule{
		models.NewRule(
			mustTrigger(t, models.WithURLFilter("http://")),
			mustAction(t, models.ActionBlockCookies),
		),
	}

	want := `[
  {
    "trigger" : {
      "url-filter" : "http:\/\/"
    },
    "action" : {
      "action" : "block-cookies"
    }
  }
]`

	got := string(Encode(rules))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_AllFields(t *testing.T) {
	rules := []models.Rule{
		models.NewRule(
			mustTrigger(t,
				models.WithURLFilter(`^https?://ads\.example\.com/`),
				models.WithCaseSensitive(false),
				models.WithResourceTypes(models.ResourceScript, models.ResourceStyleSheet, models.ResourceScript),
				models.WithLoadTypes(models.LoadThirdParty),
				models.WithUnlessDomain("*example.com"),
			),
			mustAction(t, models.ActionBlock),
		),
		models.NewRule(
			mustTrigger(t, models.WithIfDomain("news.example", "*blog.example")),
			models.NewCSSHideActions("#ad", "div[data-ad=\"1\"]"),
		),
	}

	want := `[
  {
    "trigger" : {
      "url-filter" : "^https?:\/\/ads\\.example\\.com\/",
      "url-filter-is-case-sensitive" : false,
      "resource-type" : [
        "script",
        "style-sheet"
      ],
      "load-type" : [
        "third-party"
      ],
      "unless-domain" : [
        "*example.com"
      ]
    },
    "action" : {
      "action" : "block"
    }
  },
  {
    "trigger" : {
      "url-filter" : ".*",
      "if-domain" : [
        "news.example",
        "*blog.example"
      ]
    },
    "action" : {
      "action" : "css-display-none",
      "selector" : "#ad, div[data-ad=\"1\"]"
    }
  }
]`

	got := string(Encode(rules))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_Empty(t *testing.T) {
	assert.Equal(t, "[]", string(Encode(nil)))
	assert.Equal(t, "[]", string(Encode([]models.Rule{})))
}

func TestEncode_PresentEmptyCollection(t *testing.T) {
	rules := []models.Rule{
		models.NewRule(
			mustTrigger(t, models.WithResourceTypes()),
			mustAction(t, models.ActionIgnorePreviousRules),
		),
	}

	want := `[
  {
    "trigger" : {
      "url-filter" : ".*",
      "resource-type" : []
    },
    "action" : {
      "action" : "ignore-previous-rules"
    }
  }
]`

	assert.Equal(t, want, string(Encode(rules)))
}

func TestEncode_Omission(t *testing.T) {
	rule := models.NewRule(
		mustTrigger(t, models.WithURLFilter("tracker")),
		mustAction(t, models.ActionBlock),
	)

	out := string(Encode([]models.Rule{rule}))
	for _, key := range []string{
		keyCaseSensitive, keyResourceType, keyLoadType, keyIfDomain, keyUnlessDomain, keySelector,
	} {
		assert.NotContains(t, out, `"`+key+`"`)
	}

	assert.NotContains(t, out, "null")
}

func TestEncode_Escaping(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "slash", in: "a/b", want: `"a\/b"`},
		{name: "quote and backslash", in: `"\`, want: `"\"\\"`},
		{name: "short escapes", in: "\b\f\n\r\t", want: `"\b\f\n\r\t"`},
		{name: "other control", in: "\x01\x1f", want: `"\u0001\u001f"`},
		{name: "html is kept", in: "<a&b>", want: `"<a&b>"`},
		{name: "non ascii", in: "пример.рф", want: `"пример.рф"`},
		{name: "line separator", in: "\u2028", want: "\"\u2028\""},
		{name: "invalid utf8", in: "a\xffb", want: "\"a\uFFFDb\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &writer{}
			w.quote(tt.in)
			assert.Equal(t, tt.want, w.buf.String())
		})
	}
}

func TestEncode_ValidJSON(t *testing.T) {
	rules := []models.Rule{
		models.NewRule(
			mustTrigger(t,
				models.WithURLFilter("http://\x00\"odd\"\\path\xfe"),
				models.WithIfDomain("a.com"),
			),
			models.NewCSSHideAction("a[href^=\"http://\"]"),
		),
	}

	out := Encode(rules)
	require.True(t, utf8.Valid(out))
	require.False(t, bytes.HasSuffix(out, []byte("\n")))

	var decoded []struct {
		Trigger map[string]any `json:"trigger"`
		Action  map[string]any `json:"action"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded, 1)

	assert.Equal(t, "http://\x00\"odd\"\\path\uFFFD", decoded[0].Trigger["url-filter"])
	assert.Equal(t, "a[href^=\"http://\"]", decoded[0].Action["selector"])
}

func TestEncode_PreservesOrder(t *testing.T) {
	var rules []models.Rule
	for _, f := range []string{"c", "a", "b"} {
		rules = append(rules, models.NewRule(
			mustTrigger(t, models.WithURLFilter(f)),
			mustAction(t, models.ActionBlock),
		))
	}

	var decoded []struct {
		Trigger struct {
			URLFilter string `json:"url-filter"`
		} `json:"trigger"`
	}
	require.NoError(t, json.Unmarshal(Encode(rules), &decoded))
	require.Len(t, decoded, 3)

	assert.Equal(t, "c", decoded[0].Trigger.URLFilter)
	assert.Equal(t, "a", decoded[1].Trigger.URLFilter)
	assert.Equal(t, "b", decoded[2].Trigger.URLFilter)
}

func TestEncode_PanicsOnUnbuilt(t *testing.T) {
	built := mustTrigger(t)

	assert.PanicsWithError(t, "trigger: "+string(errors.ErrNoValue), func() {
		Encode([]models.Rule{models.NewRule(models.Trigger{}, models.NewCSSHideAction("a"))})
	})

	assert.PanicsWithError(t, "action: "+string(errors.ErrNoValue), func() {
		Encode([]models.Rule{models.NewRule(built, models.Action{})})
	})
}

func TestEncodeRule(t *testing.T) {
	rule := models.NewRule(
		mustTrigger(t, models.WithLoadTypes(models.LoadFirstParty)),
		mustAction(t, models.ActionBlockCookies),
	)

	want := `{
  "trigger" : {
    "url-filter" : ".*",
    "load-type" : [
      "first-party"
    ]
  },
  "action" : {
    "action" : "block-cookies"
  }
}`

	assert.Equal(t, want, string(EncodeRule(rule)))
}

func TestEncode_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	build := func(filter string, domains []string, rts []models.ResourceType) []models.Rule {
		trig, err := models.NewTrigger(
			models.WithURLFilter(filter),
			models.WithIfDomain(domains...),
			models.WithResourceTypes(rts...),
		)
		if err != nil {
			panic(err)
		}

		return []models.Rule{
			models.NewRule(trig, models.NewCSSHideActions(domains...)),
		}
	}

	properties.Property("encoding is idempotent and deterministic", prop.ForAll(
		func(filter string, domains []string, rts []models.ResourceType) bool {
			first := build(filter, domains, rts)
			second := build(filter, domains, rts)

			a, b, c := Encode(first), Encode(first), Encode(second)

			return bytes.Equal(a, b) && bytes.Equal(a, c)
		},
		gen.AnyString(),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.OneConstOf(
			models.ResourceDocument,
			models.ResourceFont,
			models.ResourceScript,
			models.ResourcePopup,
		)),
	))

	properties.Property("output is valid json without unescaped slashes", prop.ForAll(
		func(filter string, domains []string) bool {
			out := Encode(build(filter, domains, nil))
			if !json.Valid(out) {
				return false
			}

			for i := range out {
				if out[i] == '/' && (i == 0 || out[i-1] != '\\') {
					return false
				}
			}

			return true
		},
		gen.AnyString(),
		gen.SliceOf(gen.AnyString()),
	))

	properties.TestingRun(t)
}
