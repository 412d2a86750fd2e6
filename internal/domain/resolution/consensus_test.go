package resolution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsensus_MajorityWins(t *testing.T) {
	got := Consensus([]map[string]string{
		{"name_last": "Smith", "name_first": "John"},
		{"name_last": "Smith", "name_first": "Jon"},
		{"name_last": "Smyth", "name_first": "John"},
	})
	assert.Equal(t, map[string]string{"name_last": "Smith", "name_first": "John"}, got)
}

func TestConsensus_BlankValuesDoNotVote(t *testing.T) {
	got := Consensus([]map[string]string{
		{"city": "", "country": "US"},
		{"city": "  ", "country": "US"},
		{"city": "Austin", "country": ""},
	})
	assert.Equal(t, "Austin", got["city"])
	assert.Equal(t, "US", got["country"])
}

func TestConsensus_FieldWithoutVotesIsAbsent(t *testing.T) {
	got := Consensus([]map[string]string{{"state": ""}, {"state": ""}})
	_, ok := got["state"]
	assert.False(t, ok)
}

func TestConsensus_TieGoesToSmallestValue(t *testing.T) {
	a := []map[string]string{{"org": "IBM"}, {"org": "Acme"}, {"org": "Zeta"}}
	b := []map[string]string{{"org": "Zeta"}, {"org": "IBM"}, {"org": "Acme"}}

	assert.Equal(t, "Acme", Consensus(a)["org"])
	assert.Equal(t, "Acme", Consensus(b)["org"])
}

func TestConsensus_Empty(t *testing.T) {
	assert.Empty(t, Consensus(nil))
}

type stubRaw struct {
	Raw
	id string
}

func (s stubRaw) Identity() string { return s.id }

func TestMinIdentity(t *testing.T) {
	recs := []stubRaw{{id: "b7"}, {id: "a9"}, {id: "c1"}}
	assert.Equal(t, "a9", MinIdentity(recs))
	assert.Equal(t, "", MinIdentity([]stubRaw{}))
}

//Personal.AI order the ending
