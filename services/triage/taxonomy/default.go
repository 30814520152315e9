// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package taxonomy

// Default returns the compiled-in workspace profile.
//
// This is the reference profile for the mapache.app workspace: an AI
// operating system for SaaS orchestration. Deployments targeting other
// workspaces override it via Load.
func Default() Taxonomy {
	return Taxonomy{
		Version: "2025-08",

		InScopeKeywords: []string{
			"agent", "mcp", "a2ui", "a2a", "integration", "composio", "vertex ai",
			"linear semantic", "github mcp", "system of intelligence", "sub-agent",
			"deployment", "gcp", "firestore", "embeddings", "rag", "conversational",
			"oauth", "saas", "orchestration", "chief agent", "runtime", "gemini",
			"semantic", "duplicate detection", "gap detection", "slack", "hubspot",
		},

		ExcludedKeywords: []string{
			"personal", "learning", "shopping", "household", "meditation",
			"well-being", "asana", "monday.com", "furniture", "renovation",
			"home", "family", "hobby",
		},

		RedFlags: []string{
			"is this valid?",
			"[empty description]",
			"figure out",
			"not sure",
			"maybe",
			"digital well-being",
			"personal task",
			"home improvement",
			"shopping list",
		},

		ExcludedCategories: []Category{
			{
				Name: "personal_household",
				Terms: []string{
					"shopping", "furniture", "renovation", "home maintenance",
					"curtain", "door", "awning", "landscaping", "household",
				},
			},
			{
				Name: "learning_experiments",
				Terms: []string{
					"try out", "experiment", "learning", "study",
				},
			},
			{
				Name: "deprecated_platforms",
				Terms: []string{
					"mapache.solutions", "old n8n", "asana", "monday.com",
				},
			},
			{
				Name: "generic_vague",
				Terms: []string{
					"untitled", "fix stuff", "[empty description]",
					"improve stuff", "tbd",
				},
			},
			{
				Name: "outside_scope",
				Terms: []string{
					"general productivity", "meditation", "well-being",
					"digital detox", "phone addiction", "personal finance",
				},
			},
		},

		Domains: []Category{
			{
				Name: "core_platform",
				Terms: []string{
					"agent runtime", "linear integration", "github integration",
					"a2ui", "composio", "a2a protocol", "vertex ai",
				},
			},
			{
				Name: "saas_integrations",
				Terms: []string{
					"slack mcp", "hubspot mcp", "stripe mcp", "google cloud mcp",
					"linear mcp", "github mcp", "mcp server",
				},
			},
			{
				Name: "intelligence_features",
				Terms: []string{
					"semantic search", "gap detection", "duplication detection",
					"insights", "embeddings", "rag", "system of intelligence",
				},
			},
			{
				Name: "internal_ops",
				Terms: []string{
					"infrastructure", "development setup", "async coding",
					"dependency management", "gcp", "deployment", "docker",
					"kubernetes",
				},
			},
		},

		ProjectIndicators: []Category{
			{
				Name: "technical",
				Terms: []string{
					"api", "server", "database", "deployment", "integration",
					"sdk", "framework",
				},
			},
			{
				Name: "business",
				Terms: []string{
					"customer", "user", "revenue", "product", "feature",
					"requirement",
				},
			},
			{
				Name: "development",
				Terms: []string{
					"implement", "build", "create", "develop", "deploy",
					"setup", "configure",
				},
			},
			{
				Name: "architecture",
				Terms: []string{
					"system", "architecture", "design", "component", "service",
					"infrastructure",
				},
			},
		},

		TechTags: []Category{
			{Name: "mcp", Terms: []string{"mcp", "model context protocol"}},
			{Name: "agent", Terms: []string{"agent", "sub-agent"}},
			{Name: "a2ui", Terms: []string{"a2ui", "user interface"}},
			{Name: "integration", Terms: []string{"integration", "oauth"}},
			{Name: "embeddings", Terms: []string{"embeddings", "semantic", "rag"}},
			{Name: "deployment", Terms: []string{"deployment", "docker", "kubernetes"}},
			{Name: "gcp", Terms: []string{"gcp", "google cloud", "vertex ai"}},
		},
	}
}
