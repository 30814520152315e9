// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package taxonomy holds the keyword tables that encode what counts as
// in-scope work for the target workspace.
//
// # Description
//
// The tables are static, versioned configuration rather than literals
// embedded in scoring logic, so they can be tested and tuned independently.
// A compiled-in default profile ships with the binary; deployments override
// it with a YAML file (see Load).
//
// All matching is case-insensitive substring matching over the normalized
// description, mirroring how the scoring model consumes the tables.
//
// # Thread Safety
//
// A Taxonomy is immutable after construction and safe for concurrent use.
package taxonomy

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is a named group of terms. Categories are matched in declaration
// order so that the first match wins deterministically.
type Category struct {
	// Name identifies the category (e.g. "personal_household").
	Name string `yaml:"name"`

	// Terms are lowercase substrings that place a description in this
	// category.
	Terms []string `yaml:"terms"`
}

// Taxonomy is one versioned set of keyword tables.
type Taxonomy struct {
	// Version identifies the table revision for auditing.
	Version string `yaml:"version"`

	// InScopeKeywords indicate valid workspace work. Each match adds
	// positive filter signal.
	InScopeKeywords []string `yaml:"in_scope_keywords"`

	// ExcludedKeywords indicate out-of-scope work. Each match subtracts
	// filter signal.
	ExcludedKeywords []string `yaml:"excluded_keywords"`

	// RedFlags are phrases that penalize scoring (hedging, empty markers).
	RedFlags []string `yaml:"red_flags"`

	// ExcludedCategories are the hard filter rules. A single category
	// match short-circuits the filter score to its floor.
	ExcludedCategories []Category `yaml:"excluded_categories"`

	// Domains map workspace areas to their identifying terms.
	Domains []Category `yaml:"domains"`

	// ProjectIndicators group terms that suggest real project work
	// (technical/business/development/architecture). At most one credit
	// per category regardless of how many terms match.
	ProjectIndicators []Category `yaml:"project_indicators"`

	// TechTags map tag names to their identifying terms.
	TechTags []Category `yaml:"tech_tags"`
}

// Load reads a Taxonomy from a YAML file.
//
// # Inputs
//
//   - path: Path to the YAML taxonomy profile.
//
// # Outputs
//
//   - Taxonomy: The parsed tables.
//   - error: Non-nil if the file is unreadable or not valid YAML.
func Load(path string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("read taxonomy file %s: %w", path, err)
	}

	var tx Taxonomy
	if err := yaml.Unmarshal(data, &tx); err != nil {
		return Taxonomy{}, fmt.Errorf("parse taxonomy file %s: %w", path, err)
	}
	return tx, nil
}

// FilterCategory returns the name of the first excluded category whose
// terms match the description, or false if none match.
func (t Taxonomy) FilterCategory(description string) (string, bool) {
	lower := strings.ToLower(description)
	for _, cat := range t.ExcludedCategories {
		for _, term := range cat.Terms {
			if strings.Contains(lower, term) {
				return cat.Name, true
			}
		}
	}
	return "", false
}

// Domain returns the first workspace domain whose terms match the
// description, or false if none match.
func (t Taxonomy) Domain(description string) (string, bool) {
	lower := strings.ToLower(description)
	for _, dom := range t.Domains {
		for _, term := range dom.Terms {
			if strings.Contains(lower, strings.ToLower(term)) {
				return dom.Name, true
			}
		}
	}
	return "", false
}

// DomainNames lists the workspace domain names in declaration order.
func (t Taxonomy) DomainNames() []string {
	names := make([]string, len(t.Domains))
	for i, dom := range t.Domains {
		names[i] = dom.Name
	}
	return names
}

// CountInScope returns how many in-scope keywords match the description.
func (t Taxonomy) CountInScope(description string) int {
	return countMatches(description, t.InScopeKeywords)
}

// CountExcluded returns how many excluded keywords match the description.
func (t Taxonomy) CountExcluded(description string) int {
	return countMatches(description, t.ExcludedKeywords)
}

// CountRedFlags returns how many red-flag phrases match the description.
func (t Taxonomy) CountRedFlags(description string) int {
	return countMatches(description, t.RedFlags)
}

// ProjectIndicatorCategories returns the names of indicator categories with
// at least one matching term. Each category contributes at most once.
func (t Taxonomy) ProjectIndicatorCategories(description string) []string {
	lower := strings.ToLower(description)
	var found []string
	for _, cat := range t.ProjectIndicators {
		for _, term := range cat.Terms {
			if strings.Contains(lower, term) {
				found = append(found, cat.Name)
				break
			}
		}
	}
	return found
}

// Tags derives the tag set for a description: the matched domain (if any)
// plus every matching tech tag. The result is sorted and duplicate-free.
func (t Taxonomy) Tags(description string) []string {
	lower := strings.ToLower(description)
	set := make(map[string]struct{})

	if domain, ok := t.Domain(lower); ok {
		set[domain] = struct{}{}
	}
	for _, tag := range t.TechTags {
		for _, term := range tag.Terms {
			if strings.Contains(lower, term) {
				set[tag.Name] = struct{}{}
				break
			}
		}
	}

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// countMatches counts the terms appearing in the lowercased description.
func countMatches(description string, terms []string) int {
	lower := strings.ToLower(description)
	count := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			count++
		}
	}
	return count
}
