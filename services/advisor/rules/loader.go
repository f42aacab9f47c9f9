// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package rules implements the rule repository, the access filter, and
// the rule batcher of the advisor service.
//
// Rule definitions and document descriptions live as plain JSON files in
// one directory. The loader merges them into an immutable Catalog at
// startup; nothing in this package mutates state after loading, so a
// Catalog is safe to share across concurrent requests without locks.
package rules

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/textmate-ai/textmate-backend/services/advisor/datatypes"
)

const (
	// RuleFileSuffix marks rule definition files in the docs directory.
	// Each file holds a {"rules": [...]} object.
	RuleFileSuffix = ".rules.json"

	// DescriptionFileSuffix marks document description files.
	// Each file holds a top-level JSON array of descriptions.
	DescriptionFileSuffix = ".docs.json"
)

// LoadingFilesError reports a fatal problem while loading rule or
// description files at startup. The process must not start with
// inconsistent rule or access-control data, so this error is never
// recovered from.
type LoadingFilesError struct {
	// Path is the file or directory that caused the failure.
	Path string

	// Reason describes what went wrong.
	Reason string

	cause error
}

func (e *LoadingFilesError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("loading rule files: %s: %s: %v", e.Path, e.Reason, e.cause)
	}
	return fmt.Sprintf("loading rule files: %s: %s", e.Path, e.Reason)
}

func (e *LoadingFilesError) Unwrap() error {
	return e.cause
}

// ruleFile mirrors the on-disk shape of a rule definition file.
type ruleFile struct {
	Rules []datatypes.Rule `json:"rules"`
}

// LoadRules reads every rule definition file in dir and concatenates
// their entries in file-name order.
//
// A missing or unreadable directory is a *LoadingFilesError: the service
// is misconfigured and must not start. A directory with zero rule files
// is deliberately different: it returns an empty slice and logs a
// warning, so a deployment without advisory rules still boots.
func LoadRules(dir string) ([]datatypes.Rule, error) {
	paths, err := listFiles(dir, RuleFileSuffix)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		slog.Warn("No rule definition files found", "dir", dir, "suffix", RuleFileSuffix)
		return []datatypes.Rule{}, nil
	}

	var all []datatypes.Rule
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadingFilesError{Path: path, Reason: "read failed", cause: err}
		}
		var file ruleFile
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, &LoadingFilesError{Path: path, Reason: "malformed rule file", cause: err}
		}
		all = append(all, file.Rules...)
	}

	slog.Info("Loaded rule definitions", "dir", dir, "files", len(paths), "rules", len(all))
	return all, nil
}

// LoadDescriptions reads every description file in dir and merges them.
//
// The File field is the access-control key, so a duplicate across the
// merged files would silently override access rules. Duplicates are
// therefore a *LoadingFilesError naming the offending file, not a merge.
func LoadDescriptions(dir string) ([]datatypes.DocumentDescription, error) {
	paths, err := listFiles(dir, DescriptionFileSuffix)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		slog.Warn("No document description files found", "dir", dir, "suffix", DescriptionFileSuffix)
		return []datatypes.DocumentDescription{}, nil
	}

	var all []datatypes.DocumentDescription
	seen := make(map[string]string) // description key -> defining path
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadingFilesError{Path: path, Reason: "read failed", cause: err}
		}
		var descs []datatypes.DocumentDescription
		if err := json.Unmarshal(data, &descs); err != nil {
			return nil, &LoadingFilesError{Path: path, Reason: "malformed description file", cause: err}
		}
		for _, desc := range descs {
			if firstPath, dup := seen[desc.File]; dup {
				return nil, &LoadingFilesError{
					Path: path,
					Reason: fmt.Sprintf("duplicate document description %q (first defined in %s)",
						desc.File, firstPath),
				}
			}
			seen[desc.File] = path
			all = append(all, desc)
		}
	}

	slog.Info("Loaded document descriptions", "dir", dir, "files", len(paths), "documents", len(all))
	return all, nil
}

// listFiles returns the matching files of dir sorted by name, so merge
// order is stable across runs.
func listFiles(dir string, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadingFilesError{Path: dir, Reason: "directory not readable", cause: err}
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
