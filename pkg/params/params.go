package params

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultMaxTokens bounds generation length when a config sets no token limit.
const DefaultMaxTokens = 1024

// Params is the final set of generation parameters, keyed by the vendor's
// own parameter names. Absent values are never stored.
type Params map[string]any

// Rule maps one logical parameter onto a vendor key.
type Rule struct {
	// Target is the key the vendor expects.
	Target string

	// Sources lists accepted config spellings in precedence order. The first
	// one holding a non-nil value wins.
	Sources []string

	// Default is used when no source is present. Nil means the parameter is
	// omitted.
	Default any
}

// Table is an ordered list of rules for one vendor.
type Table []Rule

// Map translates config defaults into vendor parameters. Null and absent
// values are skipped rather than forwarded, and a null in a higher-priority
// spelling falls through to the next spelling.
func Map(defaults map[string]any, table Table) Params {
	out := make(Params, len(table))
	for _, r := range table {
		if v, ok := r.lookup(defaults); ok {
			out[r.Target] = v
			continue
		}
		if r.Default != nil {
			out[r.Target] = r.Default
		}
	}
	return out
}

func (r Rule) lookup(defaults map[string]any) (any, bool) {
	for _, src := range r.Sources {
		if v, ok := defaults[src]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Unused returns the config keys that no rule in table reads, sorted.
func Unused(defaults map[string]any, table Table) []string {
	known := make(map[string]bool)
	for _, r := range table {
		for _, src := range r.Sources {
			known[src] = true
		}
	}
	var out []string
	for k := range defaults {
		if !known[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the parameters as {k: v, ...} with sorted keys.
func (p Params) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range p.Keys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %v", k, p[k])
	}
	sb.WriteByte('}')
	return sb.String()
}
