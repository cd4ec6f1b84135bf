// Package match implements partner selection for incoming job requests.
//
// Selection pipeline:
//
//	category filter ──► local / other split ──► per-bucket shuffle
//	                └──► take ≤2 local ++ ≤3 other ──► cap at 3
//
// The other bucket is appended before the cap is applied, so with two or
// more local candidates and at least one other candidate the result is
// always 2 local + 1 other, never 3 local. That ordering is relied on by
// callers and tests; do not "simplify" it into fill-remaining-slots.
package match

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// MaxMatches caps how many partners a single job request fans out to.
const MaxMatches = 3

// localTake is how many entries are drawn from the local bucket before the
// other bucket is appended.
const localTake = 2

// postalPrefixLen is the number of leading postal-code characters used as
// the coarse locality bucket.
const postalPrefixLen = 2

// Candidate is one directory entry eligible for matching.
type Candidate struct {
	ID              string
	Category        string
	ServiceAreaCode string
}

// Directory is the read-only candidate source the engine selects from.
type Directory interface {
	FindByCategory(ctx context.Context, category string) ([]Candidate, error)
}

// Engine selects partners for a job request. The random source is injected
// so tests can fix the seed and assert exact output ordering.
type Engine struct {
	rng *rand.Rand
}

// New returns an Engine using the given random source. A nil rng gets a
// time-seeded one.
func New(rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{rng: rng}
}

// SelectPartners picks up to MaxMatches partner ids from pool for a request
// in the given category and postal code. Candidates whose service-area code
// shares the request's postal prefix are favored, with an independent
// uniform shuffle inside each bucket so equally eligible partners get equal
// odds over time.
//
// Empty category is a caller precondition violation; callers validate input
// before reaching the engine.
func (e *Engine) SelectPartners(category, postalCode string, pool []Candidate) []string {
	var local, other []Candidate
	prefix := postalPrefix(postalCode)
	for _, c := range pool {
		if c.Category != category {
			continue
		}
		if prefix != "" && strings.HasPrefix(c.ServiceAreaCode, prefix) {
			local = append(local, c)
		} else {
			other = append(other, c)
		}
	}

	e.shuffle(local)
	e.shuffle(other)

	picked := append(take(local, localTake), take(other, MaxMatches)...)
	if len(picked) > MaxMatches {
		picked = picked[:MaxMatches]
	}

	ids := make([]string, 0, len(picked))
	for _, c := range picked {
		ids = append(ids, c.ID)
	}
	return ids
}

func (e *Engine) shuffle(cs []Candidate) {
	e.rng.Shuffle(len(cs), func(i, j int) {
		cs[i], cs[j] = cs[j], cs[i]
	})
}

func take(cs []Candidate, n int) []Candidate {
	if len(cs) < n {
		n = len(cs)
	}
	out := make([]Candidate, n)
	copy(out, cs[:n])
	return out
}

func postalPrefix(postalCode string) string {
	if len(postalCode) < postalPrefixLen {
		return postalCode
	}
	return postalCode[:postalPrefixLen]
}
