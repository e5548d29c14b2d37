// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package ranking

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// fingerprintPayload is the canonical identity of an aggregation request:
// resolved weights, engine set and candidate-ID set. All slices are sorted
// so the fingerprint is insensitive to input ordering.
type fingerprintPayload struct {
	Query    string       `json:"query"`
	Weights  []weightPair `json:"weights"`
	Engines  []string     `json:"engines"`
	IDs      []string     `json:"ids"`
	Techs    []string     `json:"techs"`
	Intent   int          `json:"intent"`
	Skill    int          `json:"skill"`
}

type weightPair struct {
	Signal string  `json:"s"`
	Weight float64 `json:"w"`
}

// Fingerprint computes the cache key identifying a (context, engine-set,
// candidate-set) combination. Permuting the candidate pool or the engine
// list does not change the fingerprint.
func Fingerprint(sctx *ScoringContext, engines []string, pool []Candidate) string {
	weights := make([]weightPair, 0, len(sctx.Weights))
	for signal, w := range sctx.Weights {
		weights = append(weights, weightPair{Signal: signal, Weight: w})
	}
	sort.Slice(weights, func(i, j int) bool { return weights[i].Signal < weights[j].Signal })

	names := append([]string(nil), engines...)
	sort.Strings(names)

	ids := make([]string, 0, len(pool))
	for _, c := range pool {
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)

	payload := fingerprintPayload{
		Query:   sctx.Query,
		Weights: weights,
		Engines: names,
		IDs:     ids,
		Techs:   sctx.Technologies,
		Intent:  int(sctx.Intent),
		Skill:   int(sctx.Skill),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// Marshaling plain structs cannot fail in practice; fall back to a
		// non-canonical key rather than panicking.
		return fmt.Sprintf("ens:%v", payload)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("ens:%x", hash[:16])
}
