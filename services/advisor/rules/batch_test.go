// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rules

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textmate-ai/textmate-backend/services/advisor/datatypes"
)

// makeRules builds n rules named rule-0..rule-n-1, all from the same
// source document.
func makeRules(n int, doc string) []datatypes.Rule {
	out := make([]datatypes.Rule, n)
	for i := range out {
		out[i] = datatypes.Rule{
			Name:           fmt.Sprintf("rule-%d", i),
			SourceFileName: doc,
		}
	}
	return out
}

func TestFilterRules_PreservesLoadOrder(t *testing.T) {
	all := []datatypes.Rule{
		{Name: "a", SourceFileName: "style.pdf"},
		{Name: "b", SourceFileName: "legal.pdf"},
		{Name: "c", SourceFileName: "style.pdf"},
		{Name: "d", SourceFileName: "tone.pdf"},
		{Name: "e", SourceFileName: "style.pdf"},
	}
	docs := map[string]struct{}{"style.pdf": {}, "tone.pdf": {}}

	matched := FilterRules(all, docs)

	require.Len(t, matched, 4)
	assert.Equal(t, "a", matched[0].Name)
	assert.Equal(t, "c", matched[1].Name)
	assert.Equal(t, "d", matched[2].Name)
	assert.Equal(t, "e", matched[3].Name)
}

func TestFilterRules_NoMatches(t *testing.T) {
	all := makeRules(3, "style.pdf")

	assert.Empty(t, FilterRules(all, map[string]struct{}{"other.pdf": {}}))
	assert.Empty(t, FilterRules(all, nil))
	assert.Empty(t, FilterRules(nil, map[string]struct{}{"style.pdf": {}}))
}

func TestBatch_PartitionsInOrder(t *testing.T) {
	ruleSet := makeRules(7, "style.pdf")

	batches := Batch(ruleSet, 3, 20)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 3)
	assert.Len(t, batches[1], 3)
	assert.Len(t, batches[2], 1)

	// Concatenating the batches must reproduce the input order.
	var flat []datatypes.Rule
	for _, b := range batches {
		flat = append(flat, b...)
	}
	assert.Equal(t, ruleSet, flat)
}

func TestBatch_CapAppliedBeforePartitioning(t *testing.T) {
	ruleSet := makeRules(7, "style.pdf")

	batches := Batch(ruleSet, 3, 5)

	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 3)
	assert.Len(t, batches[1], 2)
	assert.Equal(t, "rule-4", batches[1][1].Name)
}

func TestBatch_ExactMultiple(t *testing.T) {
	batches := Batch(makeRules(6, "style.pdf"), 3, 20)

	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 3)
	assert.Len(t, batches[1], 3)
}

func TestBatch_Empty(t *testing.T) {
	assert.Nil(t, Batch(nil, 3, 20))
	assert.Nil(t, Batch([]datatypes.Rule{}, 3, 20))
}

func TestBatch_DefaultsOnZeroKnobs(t *testing.T) {
	ruleSet := makeRules(25, "style.pdf")

	batches := Batch(ruleSet, 0, 0)

	// DefaultMaxRules caps at 20, DefaultBatchSize splits by 3.
	require.Len(t, batches, 7)
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	assert.Equal(t, DefaultMaxRules, total)
	assert.Len(t, batches[6], 2)
}
