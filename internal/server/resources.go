package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"steward/internal/mcpserver"
)

func registerResources(registry *mcpserver.Registry, deps *Deps) error {
	resources := []struct {
		resource mcp.Resource
		handler  mcpserver.ResourceHandler
	}{
		{
			resource: mcp.Resource{
				URI:         "project://{project_id}",
				Name:        "project",
				Description: "Registered project record as JSON",
				MIMEType:    "application/json",
			},
			handler: func(ctx context.Context, uri string, params map[string]string) (string, error) {
				project, err := deps.Store.GetProject(ctx, params["project_id"])
				if err != nil {
					return "", err
				}
				return marshalJSON(project)
			},
		},
		{
			resource: mcp.Resource{
				URI:         "catalog://{framework}",
				Name:        "catalog",
				Description: "Framework requirement catalog as JSON",
				MIMEType:    "application/json",
			},
			handler: func(ctx context.Context, uri string, params map[string]string) (string, error) {
				engine, ok := deps.Runner.Engine(params["framework"])
				if !ok {
					return "", fmt.Errorf("unknown framework: %s", params["framework"])
				}
				cat, err := deps.Runner.LoadCatalog(engine.FrameworkID(), engine.CatalogFilename())
				if err != nil {
					return "", err
				}
				return marshalJSON(map[string]interface{}{
					"framework":    cat.FrameworkID,
					"version":      cat.Version,
					"requirements": cat.Requirements,
				})
			},
		},
		{
			resource: mcp.Resource{
				URI:         "report://{project_id}/{framework}",
				Name:        "report",
				Description: "Latest generated compliance report for a framework",
				MIMEType:    "text/markdown",
			},
			handler: func(ctx context.Context, uri string, params map[string]string) (string, error) {
				project, err := deps.Store.GetProject(ctx, params["project_id"])
				if err != nil {
					return "", err
				}
				return latestReport(project.Directory, params["framework"])
			},
		},
	}

	for _, r := range resources {
		if err := registry.RegisterResource(r.resource, r.handler); err != nil {
			return err
		}
	}
	return nil
}

func marshalJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize resource: %w", err)
	}
	return string(data), nil
}

// latestReport finds the highest-versioned report file a generator wrote
// for the framework under the project's compliance directory.
func latestReport(projectDir, framework string) (string, error) {
	pattern := filepath.Join(projectDir, "compliance", framework+"-report-v*.md")
	paths, err := filepath.Glob(pattern)
	if err != nil || len(paths) == 0 {
		return "", fmt.Errorf("no %s report generated for this project", framework)
	}

	best := ""
	bestVersion := -1
	for _, path := range paths {
		name := filepath.Base(path)
		v := strings.TrimSuffix(strings.TrimPrefix(name, framework+"-report-v"), ".md")
		major, _, _ := strings.Cut(v, ".")
		n, err := strconv.Atoi(major)
		if err != nil {
			continue
		}
		if n > bestVersion {
			bestVersion = n
			best = path
		}
	}
	if best == "" {
		return "", fmt.Errorf("no %s report generated for this project", framework)
	}
	data, err := os.ReadFile(best)
	if err != nil {
		return "", fmt.Errorf("failed to read report %s: %w", best, err)
	}
	return string(data), nil
}
