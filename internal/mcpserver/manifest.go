package mcpserver

import (
	"encoding/json"
	"strings"
)

const (
	manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	serverName     = "io.github.panbanda/spaces"
	repositoryURL  = "https://github.com/panbanda/spaces"
	imageName      = "ghcr.io/panbanda/spaces"
)

// Manifest is the registry entry (server.json) for the spaces MCP server.
type Manifest struct {
	Schema      string      `json:"$schema"`
	Name        string      `json:"name"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	WebsiteURL  string      `json:"websiteUrl,omitempty"`
	Repository  *Repository `json:"repository,omitempty"`
	Packages    []Package   `json:"packages,omitempty"`
}

type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package runs `spaces mcp` from the published container image.
type Package struct {
	RegistryType         string     `json:"registryType"`
	Identifier           string     `json:"identifier"`
	Version              string     `json:"version,omitempty"`
	PackageArguments     []Argument `json:"packageArguments,omitempty"`
	EnvironmentVariables []EnvVar   `json:"environmentVariables,omitempty"`
	Transport            Transport  `json:"transport"`
}

type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// EnvVar is a variable the client may set when launching the package.
type EnvVar struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsRequired  bool   `json:"isRequired"`
	IsSecret    bool   `json:"isSecret"`
}

type Transport struct {
	Type string `json:"type"`
}

// manifestVersion turns a build version into the semver the registry
// expects: a leading "v" is dropped and unreleased builds become 0.0.0.
func manifestVersion(version string) string {
	version = strings.TrimPrefix(version, "v")
	if version == "" || version == "dev" {
		return "0.0.0"
	}
	return version
}

// GenerateManifest renders server.json for the given build version.
func GenerateManifest(version string) ([]byte, error) {
	version = manifestVersion(version)

	manifest := Manifest{
		Schema:      manifestSchema,
		Name:        serverName,
		Title:       "Spaces",
		Description: "Cyclomatic complexity per file, class, function and closure, with thresholds",
		Version:     version,
		WebsiteURL:  repositoryURL,
		Repository:  &Repository{URL: repositoryURL, Source: "github"},
		Packages: []Package{{
			RegistryType:     "oci",
			Identifier:       imageName + ":" + version,
			PackageArguments: []Argument{{Type: "positional", Value: "mcp"}},
			EnvironmentVariables: []EnvVar{{
				Name:        "SPACES_CONFIG",
				Description: "Path to a spaces.toml, .yaml or .json with thresholds, exclusions and cache settings",
			}},
			Transport: Transport{Type: "stdio"},
		}},
	}
	return json.MarshalIndent(manifest, "", "  ")
}
