package parser

import (
	"bufio"
	"io"
	"slices"
	"strings"

	"github.com/bnema/webkit-content-blocker/internal/models"
)

// Parser parses ABP/uBlock filter lists
type Parser struct {
	stats Stats
}

// Stats tracks parsing statistics
type Stats struct {
	Total       int
	Network     int
	Exception   int
	Cosmetic    int
	Comments    int
	Unsupported int
	SkipReasons map[string]int // Detailed breakdown of skipped filters
}

// SkipReason constants
const (
	SkipScriptlet          = "scriptlet (##+js)"
	SkipHTMLFilter         = "html-filter (##^)"
	SkipProcedural         = "procedural (:has, :xpath, etc)"
	SkipUnsupportedOpt     = "unsupported-option (redirect, csp, etc)"
	SkipUnknownType        = "unsupported-modifier (webrtc, elemhide, etc)"
	SkipNoResourceTypeLeft = "negated-all-resource-types"
)

// New creates a new parser
func New() *Parser {
	return &Parser{
		stats: Stats{
			SkipReasons: make(map[string]int),
		},
	}
}

// skip records a skipped filter with reason
func (p *Parser) skip(reason string) models.Filter {
	p.stats.SkipReasons[reason]++
	return models.Filter{Type: models.FilterTypeUnsupported}
}

// Stats returns parsing statistics
func (p *Parser) Stats() Stats {
	return p.stats
}

// Parse reads filter content and returns the filters that can become rules
func (p *Parser) Parse(r io.Reader) ([]models.Filter, error) {
	var filters []models.Filter
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		filter := p.parseLine(line)
		p.stats.Total++

		switch filter.Type {
		case models.FilterTypeComment:
			p.stats.Comments++
			continue
		case models.FilterTypeUnsupported:
			p.stats.Unsupported++
			continue
		case models.FilterTypeNetwork:
			p.stats.Network++
		case models.FilterTypeException:
			p.stats.Exception++
		case models.FilterTypeCosmetic, models.FilterTypeCosmeticException:
			p.stats.Cosmetic++
		}

		filters = append(filters, filter)
	}

	return filters, scanner.Err()
}

// parseLine classifies and parses a single filter line
func (p *Parser) parseLine(line string) models.Filter {
	switch {
	case strings.HasPrefix(line, "!"), strings.HasPrefix(line, "["):
		return models.Filter{Type: models.FilterTypeComment, Raw: line}
	case strings.Contains(line, "##+js("), strings.Contains(line, "#@#+js("):
		return p.skip(SkipScriptlet)
	case strings.Contains(line, "##^"), strings.Contains(line, "#@#^"):
		return p.skip(SkipHTMLFilter)
	case containsProcedural(line):
		return p.skip(SkipProcedural)
	}

	if idx := strings.Index(line, "#@#"); idx != -1 {
		return parseCosmetic(line, idx, true)
	}

	if idx := strings.Index(line, "##"); idx != -1 {
		return parseCosmetic(line, idx, false)
	}

	if rest, ok := strings.CutPrefix(line, "@@"); ok {
		return p.parseNetwork(line, rest, true)
	}

	return p.parseNetwork(line, line, false)
}

var proceduralOperators = []string{
	":has(", ":has-text(", ":xpath(", ":matches-css(",
	":matches-attr(", ":min-text-length(", ":not(",
	":upward(", ":remove(", ":style(",
}

// containsProcedural checks for procedural cosmetic filter syntax
func containsProcedural(line string) bool {
	for _, op := range proceduralOperators {
		if strings.Contains(line, op) {
			return true
		}
	}
	return false
}

// parseCosmetic parses a cosmetic (CSS) filter; sepIdx is the separator index
func parseCosmetic(line string, sepIdx int, isException bool) models.Filter {
	sepLen := len("##")
	filterType := models.FilterTypeCosmetic
	if isException {
		sepLen = len("#@#")
		filterType = models.FilterTypeCosmeticException
	}

	return models.Filter{
		Type:     filterType,
		Raw:      line,
		Selector: strings.TrimSpace(line[sepIdx+sepLen:]),
		Domains:  splitList(line[:sepIdx], ","),
	}
}

// parseNetwork parses a network filter body (without the @@ prefix)
func (p *Parser) parseNetwork(raw, body string, isException bool) models.Filter {
	filterType := models.FilterTypeNetwork
	if isException {
		filterType = models.FilterTypeException
	}

	pattern := body
	var options models.FilterOptions

	if idx := strings.LastIndex(body, "$"); idx != -1 && (idx == 0 || body[idx-1] != '\\') {
		optPart := body[idx+1:]
		// A $ followed by / belongs to a regex pattern, not to the options
		if !strings.HasPrefix(optPart, "/") {
			if hasUnsupportedOptions(optPart) {
				return p.skip(SkipUnsupportedOpt)
			}

			var reason string
			options, reason = parseOptions(optPart)
			if reason != "" {
				return p.skip(reason)
			}
			pattern = body[:idx]
		}
	}

	return models.Filter{
		Type:    filterType,
		Raw:     raw,
		Pattern: pattern,
		Options: options,
	}
}

// splitList splits s on sep, trimming and dropping empty items
func splitList(s, sep string) []string {
	if s == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(s, sep) {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// parseOptions parses network filter options.  A non-empty reason means the
// filter cannot be represented as a WebKit trigger.
func parseOptions(s string) (opts models.FilterOptions, reason string) {
	var include, exclude []models.ResourceType

	for _, part := range splitList(s, ",") {
		switch {
		case part == "third-party" || part == "3p" || part == "~first-party" || part == "~1p":
			lt := models.LoadThirdParty
			opts.LoadType = &lt
		case part == "~third-party" || part == "~3p" || part == "first-party" || part == "1p":
			lt := models.LoadFirstParty
			opts.LoadType = &lt
		case part == "match-case":
			opts.MatchCase = true
		case part == "important":
			opts.Important = true
		case strings.HasPrefix(part, "domain="):
			opts.Domains, opts.ExcludeDomains = parseDomainOption(part[len("domain="):])
		default:
			name, negated := strings.CutPrefix(part, "~")
			rt, ok := mapResourceType(name)
			if !ok {
				// Unknown modifiers are ignored, as uBlock does for cosmetic-only ones
				if isResourceKeyword(name) {
					return opts, SkipUnknownType
				}
				continue
			}
			if negated {
				exclude = append(exclude, rt)
			} else {
				include = append(include, rt)
			}
		}
	}

	types, ok := resolveResourceTypes(include, exclude)
	if !ok {
		return opts, SkipNoResourceTypeLeft
	}
	opts.ResourceTypes = types

	return opts, ""
}

// resolveResourceTypes combines listed and negated types.  WebKit has no
// negation, so negated types are subtracted from the listed ones, or from the
// request types when only negations are given.  Popups are never implied by a
// negation.  A nil result means any type; ok is false when nothing is left.
func resolveResourceTypes(include, exclude []models.ResourceType) (types []models.ResourceType, ok bool) {
	if len(include) == 0 && len(exclude) == 0 {
		return nil, true
	}

	base := include
	if len(base) == 0 {
		base = slices.DeleteFunc(models.ResourceTypes(), func(rt models.ResourceType) bool {
			return rt == models.ResourcePopup
		})
	}

	for _, rt := range base {
		if !slices.Contains(exclude, rt) && !slices.Contains(types, rt) {
			types = append(types, rt)
		}
	}

	return types, len(types) > 0
}

// parseDomainOption parses domain=example.com|~excluded.com
func parseDomainOption(s string) (include, exclude []string) {
	for _, d := range splitList(s, "|") {
		if rest, ok := strings.CutPrefix(d, "~"); ok {
			exclude = append(exclude, rest)
		} else {
			include = append(include, d)
		}
	}
	return include, exclude
}

// mapResourceType maps ABP resource types to WebKit types
func mapResourceType(s string) (models.ResourceType, bool) {
	switch s {
	case "script":
		return models.ResourceScript, true
	case "image", "img":
		return models.ResourceImage, true
	case "stylesheet", "css":
		return models.ResourceStyleSheet, true
	case "font":
		return models.ResourceFont, true
	case "media":
		return models.ResourceMedia, true
	case "subdocument", "frame", "document", "doc":
		return models.ResourceDocument, true
	case "popup":
		return models.ResourcePopup, true
	case "xmlhttprequest", "xhr", "object", "object-subrequest",
		"ping", "beacon", "other", "websocket":
		return models.ResourceRaw, true
	}
	return "", false
}

// isResourceKeyword reports modifiers that change what a filter matches in a
// way WebKit cannot express
func isResourceKeyword(s string) bool {
	switch s {
	case "webrtc", "webtransport", "genericblock", "generichide", "elemhide":
		return true
	}
	return false
}

// hasUnsupportedOptions checks for options that can't be converted
func hasUnsupportedOptions(s string) bool {
	unsupported := []string{
		"redirect=", "redirect-rule=",
		"csp=", "removeparam=", "replace=",
		"header=", "method=", "to=",
		"permissions=", "uritransform=",
	}
	for _, u := range unsupported {
		if strings.Contains(s, u) {
			return true
		}
	}
	return false
}
