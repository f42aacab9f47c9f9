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

// Catalog holds the loaded rules and document descriptions for the
// lifetime of the process.
//
// A Catalog is an explicitly constructed, injected value rather than a
// package-level singleton, so tests can build several catalogs in the
// same process. It is immutable after construction and safe for
// concurrent readers.
type Catalog struct {
	rules        []datatypes.Rule
	descriptions []datatypes.DocumentDescription
	docNames     map[string]struct{}
}

// NewCatalog builds a Catalog from already-loaded rules and
// descriptions. Use Load to build one from a docs directory.
func NewCatalog(ruleSet []datatypes.Rule, descriptions []datatypes.DocumentDescription) *Catalog {
	docNames := make(map[string]struct{}, len(descriptions))
	for _, rule := range ruleSet {
		docNames[rule.SourceFileName] = struct{}{}
	}
	return &Catalog{
		rules:        ruleSet,
		descriptions: descriptions,
		docNames:     docNames,
	}
}

// Load reads all rule and description files from dir and builds the
// process-wide Catalog. Any *LoadingFilesError is startup fatal.
func Load(dir string) (*Catalog, error) {
	ruleSet, err := LoadRules(dir)
	if err != nil {
		return nil, err
	}
	descriptions, err := LoadDescriptions(dir)
	if err != nil {
		return nil, err
	}
	return NewCatalog(ruleSet, descriptions), nil
}

// Rules returns all loaded rules in load order. Callers must not
// modify the returned slice.
func (c *Catalog) Rules() []datatypes.Rule {
	return c.rules
}

// Descriptions returns all loaded document descriptions. Callers must
// not modify the returned slice.
func (c *Catalog) Descriptions() []datatypes.DocumentDescription {
	return c.descriptions
}

// HasDocument reports whether at least one loaded rule references the
// named source document. Descriptions without rules are not advisable
// against and are excluded from listings via this check.
func (c *Catalog) HasDocument(name string) bool {
	_, ok := c.docNames[name]
	return ok
}

// DocumentNames returns the set of source document names that actually
// have rules. The set is derived from the rules, not stored.
func (c *Catalog) DocumentNames() map[string]struct{} {
	names := make(map[string]struct{}, len(c.docNames))
	for name := range c.docNames {
		names[name] = struct{}{}
	}
	return names
}
