// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rules

import (
	"github.com/textmate-ai/textmate-backend/services/advisor/datatypes"
)

// Default batching policy. Both knobs are configurable per engine; the
// defaults bound the cost and latency of one validation request to at
// most ceil(20/3) completion calls.
const (
	// DefaultBatchSize is the number of rules sent per completion call.
	DefaultBatchSize = 3

	// DefaultMaxRules caps the total rules considered per request,
	// regardless of how many matched the requested documents.
	DefaultMaxRules = 20
)

// FilterRules returns every rule whose source document is in docs,
// preserving the original load order. The stable order makes batch
// boundaries, and therefore streaming output, reproducible for a fixed
// rule set.
func FilterRules(all []datatypes.Rule, docs map[string]struct{}) []datatypes.Rule {
	var matched []datatypes.Rule
	for _, rule := range all {
		if _, ok := docs[rule.SourceFileName]; ok {
			matched = append(matched, rule)
		}
	}
	return matched
}

// Batch partitions ruleSet into consecutive slices of batchSize rules,
// the last possibly shorter. Only the first min(len(ruleSet), maxRules)
// rules are batched; rules beyond the cap are silently dropped for this
// request. That is a policy choice bounding completion cost, not an
// error.
//
// The returned batches are subslices of ruleSet, so batching allocates
// no rule copies. An empty or nil ruleSet yields zero batches.
func Batch(ruleSet []datatypes.Rule, batchSize, maxRules int) [][]datatypes.Rule {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if maxRules <= 0 {
		maxRules = DefaultMaxRules
	}

	capped := ruleSet
	if len(capped) > maxRules {
		capped = capped[:maxRules]
	}
	if len(capped) == 0 {
		return nil
	}

	batches := make([][]datatypes.Rule, 0, (len(capped)+batchSize-1)/batchSize)
	for start := 0; start < len(capped); start += batchSize {
		end := min(start+batchSize, len(capped))
		batches = append(batches, capped[start:end])
	}
	return batches
}
