package statshandlers

import (
	datamodels "github.com/newrelic/nri-gridstat/src/query-statistics/stats-data-models"
)

// kindUnscoped keys rows and property facts when kind scoping is disabled,
// which is the grid's historical behavior: a scan query and a SQL query that
// happen to share an originating node and local id also share their row and
// property facts.
const kindUnscoped = datamodels.QueryKind(-1)

// scopedIdentity is a correlation key. Reads are always scoped by kind;
// rows and properties use kindUnscoped unless scoping is enabled.
type scopedIdentity struct {
	kind     datamodels.QueryKind
	identity datamodels.QueryIdentity
}

type readCounters struct {
	logical  int64
	physical int64
}

type propEntry struct {
	name  string
	value string
	count int64
}

// identityCorrelator accumulates per-identity partial facts from reads, rows
// and property events. Events for the same identity may arrive before or
// after the completion event they describe and in any order; every record
// operation is a commutative sum, so arrival order never changes the totals.
type identityCorrelator struct {
	scopeRowsByKind bool

	reads map[scopedIdentity]*readCounters
	rows  map[scopedIdentity]map[string]int64
	props map[scopedIdentity]map[string]*propEntry
}

func newIdentityCorrelator(scopeRowsByKind bool) *identityCorrelator {
	return &identityCorrelator{
		scopeRowsByKind: scopeRowsByKind,
		reads:           make(map[scopedIdentity]*readCounters),
		rows:            make(map[scopedIdentity]map[string]int64),
		props:           make(map[scopedIdentity]map[string]*propEntry),
	}
}

func (c *identityCorrelator) rowsScope(kind datamodels.QueryKind) datamodels.QueryKind {
	if c.scopeRowsByKind {
		return kind
	}
	return kindUnscoped
}

func (c *identityCorrelator) recordReads(kind datamodels.QueryKind, identity datamodels.QueryIdentity, logical, physical int64) {
	key := scopedIdentity{kind: kind, identity: identity}

	counters, ok := c.reads[key]
	if !ok {
		counters = &readCounters{}
		c.reads[key] = counters
	}

	counters.logical += logical
	counters.physical += physical
}

func (c *identityCorrelator) recordRows(kind datamodels.QueryKind, identity datamodels.QueryIdentity, action string, rows int64) {
	key := scopedIdentity{kind: c.rowsScope(kind), identity: identity}

	actions, ok := c.rows[key]
	if !ok {
		actions = make(map[string]int64)
		c.rows[key] = actions
	}

	actions[action] += rows
}

func (c *identityCorrelator) recordProperty(kind datamodels.QueryKind, identity datamodels.QueryIdentity, name, value string) {
	key := scopedIdentity{kind: c.rowsScope(kind), identity: identity}

	props, ok := c.props[key]
	if !ok {
		props = make(map[string]*propEntry)
		c.props[key] = props
	}

	// Distinct values of the same property name are tracked as separate
	// entries; the first insert fixes the display name and value.
	propKey := name + "=" + value
	prop, ok := props[propKey]
	if !ok {
		prop = &propEntry{name: name, value: value}
		props[propKey] = prop
	}

	prop.count++
}

// lookupReads returns the summed logical and physical reads reported for the
// identity under the given kind. Absence means no reads event arrived.
func (c *identityCorrelator) lookupReads(kind datamodels.QueryKind, identity datamodels.QueryIdentity) (logical, physical int64, ok bool) {
	counters, ok := c.reads[scopedIdentity{kind: kind, identity: identity}]
	if !ok {
		return 0, 0, false
	}
	return counters.logical, counters.physical, true
}

// lookupRows returns the per-action row totals for the identity, or nil.
func (c *identityCorrelator) lookupRows(kind datamodels.QueryKind, identity datamodels.QueryIdentity) map[string]int64 {
	return c.rows[scopedIdentity{kind: c.rowsScope(kind), identity: identity}]
}

// lookupProperties returns the accumulated property entries for the
// identity, keyed by "name=value", or nil.
func (c *identityCorrelator) lookupProperties(kind datamodels.QueryKind, identity datamodels.QueryIdentity) map[string]*propEntry {
	return c.props[scopedIdentity{kind: c.rowsScope(kind), identity: identity}]
}
