// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command triage runs the semantic task triage service.
//
// # Environment Variables
//
//   - TRIAGE_PORT: HTTP server port (default: 12230)
//   - TRACKER_API_URL: project tracker API root (required for serve)
//   - TRACKER_API_TOKEN: tracker bearer token (optional)
//   - TRIAGE_STORE_PATH: BadgerDB directory for the persistent cache tier (optional)
//   - TRIAGE_TAXONOMY_PATH: YAML taxonomy profile (optional)
//   - TRIAGE_AUTO_CREATE_ISSUES: "true" files a tracker issue after every Add decision
//   - OPENAI_API_KEY: embedding provider key
//   - OPENAI_EMBEDDING_MODEL: embedding model (default: text-embedding-3-small)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (optional, enables tracing)
//   - TRIAGE_LOG_DIR: JSON file logging directory (optional)
//
// # Usage
//
//	# Start the HTTP server
//	triage serve
//
//	# Evaluate one task from the command line
//	triage evaluate "Build Slack MCP server integration"
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/semantic-triage/services/triage"
	"github.com/AleutianAI/semantic-triage/services/triage/datatypes"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Semantic task triage service",
	Long: "Classifies incoming work items against the project catalog and decides " +
		"whether to add, filter, consolidate, or clarify.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the triage HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := triage.New(configFromEnv())
		if err != nil {
			return err
		}
		return svc.Run()
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [description]",
	Short: "Evaluate one task and print the decision as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := triage.New(configFromEnv())
		if err != nil {
			return err
		}
		defer svc.Close()

		task := datatypes.Task{
			Description: strings.Join(args, " "),
			Source:      "cli",
		}
		decision := svc.Evaluate(context.Background(), task)

		out, err := json.MarshalIndent(decision, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(evaluateCmd)
}

// configFromEnv builds the service configuration from environment
// variables.
func configFromEnv() triage.Config {
	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	return triage.Config{
		Port:             getEnvInt("TRIAGE_PORT", 12230),
		TrackerURL:       os.Getenv("TRACKER_API_URL"),
		TrackerToken:     os.Getenv("TRACKER_API_TOKEN"),
		StorePath:        os.Getenv("TRIAGE_STORE_PATH"),
		TaxonomyPath:     os.Getenv("TRIAGE_TAXONOMY_PATH"),
		AutoCreateIssues: os.Getenv("TRIAGE_AUTO_CREATE_ISSUES") == "true",
		EmbeddingModel:   getEnvString("OPENAI_EMBEDDING_MODEL", ""),
		OTelEndpoint:     otelEndpoint,
		EnableTracing:    otelEndpoint != "",
		LogDir:           os.Getenv("TRIAGE_LOG_DIR"),
		GinMode:          os.Getenv("GIN_MODE"),
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
