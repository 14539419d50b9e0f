// Package fuzzy ranks name/address pairs against a free-text query.
//
// Scoring is a pure function of its inputs: the same query over the same
// entries always produces the same ordering.
package fuzzy

import (
	"math"
	"sort"
)

type Config struct {
	MatchThreshold float64
	DedupThreshold float64
	NameWeight     float64
	AddressWeight  float64
	MaxCandidates  int
}

func DefaultConfig() Config {
	return Config{
		MatchThreshold: 0.70,
		DedupThreshold: 0.90,
		NameWeight:     0.6,
		AddressWeight:  0.4,
		MaxCandidates:  5,
	}
}

// Entry is one searchable pair. Its position in the slice passed to Search is
// its insertion order.
type Entry struct {
	Name    string
	Address string
}

type Result struct {
	Index        int     `json:"index"`
	Score        float64 `json:"score"`
	NameScore    float64 `json:"name_score"`
	AddressScore float64 `json:"address_score"`
}

type IMatcher interface {
	Search(name, address string, entries []Entry) []Result
	Matches(name, address string, entries []Entry) []Result
	Duplicates(name, address string, entries []Entry) []Result
	Config() Config
}

type matcher struct {
	cfg Config
}

func New(cfg Config) IMatcher {
	def := DefaultConfig()
	if cfg.NameWeight <= 0 && cfg.AddressWeight <= 0 {
		cfg.NameWeight, cfg.AddressWeight = def.NameWeight, def.AddressWeight
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = def.MaxCandidates
	}
	return &matcher{cfg: cfg}
}

func (m *matcher) Config() Config {
	return m.cfg
}

// Search scores every entry and sorts descending by composite score. Ties
// keep entry order.
func (m *matcher) Search(name, address string, entries []Entry) []Result {
	qName := Normalize(name)
	qAddr := NormalizeAddress(address)

	results := make([]Result, 0, len(entries))
	for i, e := range entries {
		nameScore := Similarity(qName, Normalize(e.Name))
		addrScore := Similarity(qAddr, NormalizeAddress(e.Address))

		results = append(results, Result{
			Index:        i,
			Score:        round4(m.composite(nameScore, addrScore)),
			NameScore:    round4(nameScore),
			AddressScore: round4(addrScore),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

func (m *matcher) Matches(name, address string, entries []Entry) []Result {
	results := above(m.Search(name, address, entries), m.cfg.MatchThreshold)
	if len(results) > m.cfg.MaxCandidates {
		results = results[:m.cfg.MaxCandidates]
	}
	return results
}

func (m *matcher) Duplicates(name, address string, entries []Entry) []Result {
	return above(m.Search(name, address, entries), m.cfg.DedupThreshold)
}

func (m *matcher) composite(nameScore, addrScore float64) float64 {
	total := m.cfg.NameWeight + m.cfg.AddressWeight
	return (nameScore*m.cfg.NameWeight + addrScore*m.cfg.AddressWeight) / total
}

func above(results []Result, threshold float64) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Score >= threshold {
			out = append(out, r)
		}
	}
	return out
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
