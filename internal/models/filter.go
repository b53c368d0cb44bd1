package models

// FilterType is the kind of a parsed filter list line.
type FilterType int

const (
	FilterTypeComment FilterType = iota
	FilterTypeNetwork
	FilterTypeException
	FilterTypeCosmetic
	FilterTypeCosmeticException
	FilterTypeUnsupported // scriptlets, HTML filters, procedural
)

// Filter is a parsed ABP/uBlock filter
type Filter struct {
	Type     FilterType
	Raw      string        // Original filter line
	Pattern  string        // URL pattern for network filters
	Selector string        // CSS selector for cosmetic filters
	Domains  []string      // Cosmetic filter domains, ~ marks an exclusion
	Options  FilterOptions // Network filter options
}

// FilterOptions contains the network filter options that map onto a trigger
type FilterOptions struct {
	LoadType       *LoadType      // nil = any party
	ResourceTypes  []ResourceType // nil = any resource type
	Domains        []string       // domain= values (apply to these domains)
	ExcludeDomains []string       // ~domain values (exclude these domains)
	MatchCase      bool
	Important      bool
}
