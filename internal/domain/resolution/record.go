// Package resolution merges raw entity mentions into canonical entities.
//
// A Resolver is generic over one raw record kind.  Given raw records known
// to denote the same real-world entity it votes their attributes into one
// canonical record, relinks every contributing raw record to it and retires
// the canonical records they pointed to before, all in one transaction.
package resolution

import "slices"

// Raw is implemented by every raw record kind that can be merged
// (schema.RawInventor, schema.RawAssignee, schema.RawLawyer,
// schema.RawLocation).
type Raw interface {
	// Identity is the record's unique key.  Identities are ordered
	// byte-wise; the smallest one among a merge group becomes the
	// canonical identity.
	Identity() string

	// CleanID returns the identity of the canonical record this raw record
	// is linked to, or "" when it has not been resolved yet.
	CleanID() string

	// Link points the record at a canonical identity ("" clears the link).
	Link(cleanID string)

	// LinkColumn is the column holding CleanID, used to load siblings.
	LinkColumn() string

	// Summarize returns the attribute values this record votes with.
	// Empty values do not vote.
	Summarize() map[string]string

	// Single returns this record's contribution to the canonical plural
	// fields, shaped like the canonical container.
	Single() Plural

	// Related builds a fresh canonical record with the given identity from
	// voted attribute values.  It fails when a required attribute is
	// missing.
	Related(id string, fields map[string]string) (Clean, error)

	// CleanStub returns a canonical record carrying only id, suitable for
	// deletion.
	CleanStub(id string) Clean
}

// Clean is implemented by every canonical record kind.
type Clean interface {
	Identity() string

	// Many exposes the plural-field container for in-place union.
	Many() *Plural

	// Attach records raw in the canonical's back-reference collection.
	Attach(raw Raw)
}

// ─────────────────────────────────────────────────────────────────────────────
// Plural
// ─────────────────────────────────────────────────────────────────────────────

// Plural holds multi-valued canonical attributes.  It is either keyed
// (field name to values, e.g. an inventor's patents and locations) or a
// single list (e.g. a location's address variants).  Values keep first-seen
// order and never repeat.
type Plural struct {
	Keyed map[string][]string `json:"keyed,omitempty"`
	List  []string            `json:"list,omitempty"`
}

// KeyedPlural returns an empty keyed container with the given keys.
func KeyedPlural(keys ...string) Plural {
	p := Plural{Keyed: make(map[string][]string, len(keys))}
	for _, k := range keys {
		p.Keyed[k] = []string{}
	}
	return p
}

// ListPlural returns a list-shaped container holding the non-empty values.
func ListPlural(values ...string) Plural {
	p := Plural{List: []string{}}
	p.List = appendMissing(p.List, values...)
	return p
}

// IsKeyed reports whether p is mapping-shaped.
func (p *Plural) IsKeyed() bool {
	return p.Keyed != nil
}

// Union folds other into p.  A keyed container unions other's values for
// each of its own keys and ignores keys it does not declare; a list
// container unions other's list.  Empty strings are never added.
func (p *Plural) Union(other Plural) {
	if p.IsKeyed() {
		for key, have := range p.Keyed {
			p.Keyed[key] = appendMissing(have, other.Keyed[key]...)
		}
		return
	}
	p.List = appendMissing(p.List, other.List...)
}

func appendMissing(have []string, values ...string) []string {
	for _, v := range values {
		if v == "" || slices.Contains(have, v) {
			continue
		}
		have = append(have, v)
	}
	return have
}

//Personal.AI order the ending
