// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the data model shared by the advisor service,
// its handlers, and the completion provider boundary.
package datatypes

// Rule is a single editorial guideline, scoped to one source document
// and page. Rules are loaded once at startup and immutable afterwards.
type Rule struct {
	// Name is a short descriptive name for the rule.
	Name string `json:"name"`

	// Description explains what the rule demands.
	Description string `json:"description"`

	// SourceFileName identifies the document the rule was extracted from.
	// It must match the File field of exactly one DocumentDescription.
	SourceFileName string `json:"source_file_name"`

	// SourcePageNumber is the 1-based page of the source document.
	SourcePageNumber int `json:"source_page_number"`

	// Example shows the rule applied correctly.
	Example string `json:"example"`
}

// DocumentDescription describes one rule source document, including the
// access tags that gate which user roles may use its rules.
//
// Descriptions double as access-control records, which is why the loader
// treats a duplicate File value as a fatal error rather than a merge.
type DocumentDescription struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Edition     string `json:"edition"`

	// File is the unique key of the document across all loaded
	// description files.
	File string `json:"file"`

	// Access lists the role tags allowed to use this document's rules.
	// The tag "all" marks the document as public.
	Access []string `json:"access"`
}

// AccessPublic is the access tag that marks a document as usable by
// every user regardless of role claims.
const AccessPublic = "all"

// IsPublic reports whether the document carries the "all" access tag.
func (d DocumentDescription) IsPublic() bool {
	for _, tag := range d.Access {
		if tag == AccessPublic {
			return true
		}
	}
	return false
}

// RuleViolation is a rule the completion provider judged the input text
// to break. It carries the full rule plus the provider's findings.
//
// RuleViolation values are produced exclusively by the provider; the
// engine never constructs them itself.
type RuleViolation struct {
	Rule

	// Reason explains why the text violates the rule.
	Reason string `json:"reason"`

	// Proposal is a suggested rewrite that fixes the violation while
	// keeping the author's intent.
	Proposal string `json:"proposal"`

	// Source is the excerpt of the input text where the violation occurs.
	Source string `json:"source"`
}

// ValidationResult is the outcome of checking input text against one
// batch of rules (streaming mode) or against all batches combined
// (aggregated mode).
//
// An empty Violations list is a valid result: it means either no
// qualifying violations were found or no rules matched the requested
// documents.
type ValidationResult struct {
	Violations []RuleViolation `json:"violations"`
}

// EmptyResult returns a ValidationResult with a non-nil, empty
// violation list so it serializes as {"violations": []} rather than
// {"violations": null}.
func EmptyResult() ValidationResult {
	return ValidationResult{Violations: []RuleViolation{}}
}
