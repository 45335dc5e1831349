// Package server wires the compliance platform into MCP server
// processes: tool, resource and prompt registrations on top of the
// shared store, assessment runner, report generator and builders.
package server

import (
	"context"
	"fmt"
	"io"
	"os"

	"steward/internal/assess"
	"steward/internal/clarify"
	"steward/internal/cui"
	"steward/internal/mcpserver"
	"steward/internal/report"
	"steward/internal/rtm"
	"steward/internal/sbom"
	"steward/internal/store"
)

// Version is the fleet version advertised in initialize responses.
const Version = "1.0.0"

// Group is one registerable capability set. A server process exposes one
// or more groups; the default fleet member exposes all of them.
type Group string

const (
	GroupProjects Group = "projects"
	GroupAssess   Group = "assess"
	GroupReport   Group = "report"
	GroupClarify  Group = "clarify"
	GroupIntake   Group = "intake"
	GroupFindings Group = "findings"
	GroupRTM      Group = "rtm"
	GroupSBOM     Group = "sbom"
)

// AllGroups lists every capability group in registration order.
func AllGroups() []Group {
	return []Group{
		GroupProjects, GroupAssess, GroupReport, GroupClarify,
		GroupIntake, GroupFindings, GroupRTM, GroupSBOM,
	}
}

// Deps carries the shared backends one fleet process serves from.
type Deps struct {
	Store     *store.Store
	Runner    *assess.Runner
	Generator *report.Generator
	Clarifier *clarify.Engine
	RTM       *rtm.Builder
	SBOM      *sbom.Builder
	Marking   *cui.Config
}

// NewDeps assembles the standard dependency set over one store.
func NewDeps(st *store.Store, runner *assess.Runner, marking *cui.Config, templateDir string) *Deps {
	if marking == nil {
		marking = cui.DefaultConfig()
	}
	return &Deps{
		Store:     st,
		Runner:    runner,
		Generator: report.NewGenerator(st, runner, marking, templateDir),
		Clarifier: clarify.NewEngine(),
		RTM:       rtm.NewBuilder(marking),
		SBOM:      sbom.NewBuilder(st),
		Marking:   marking,
	}
}

// BuildRegistry registers the requested capability groups. Unknown group
// names are an error so misconfigured fleet members fail at startup.
func BuildRegistry(deps *Deps, groups ...Group) (*mcpserver.Registry, error) {
	if len(groups) == 0 {
		groups = AllGroups()
	}
	registry := mcpserver.NewRegistry()
	for _, group := range groups {
		switch group {
		case GroupProjects:
			registerProjectTools(registry, deps)
			if err := registerResources(registry, deps); err != nil {
				return nil, err
			}
		case GroupAssess:
			registerAssessTools(registry, deps)
		case GroupReport:
			registerReportTools(registry, deps)
		case GroupClarify:
			registerClarifyTools(registry, deps)
			registerPrompts(registry, deps)
		case GroupIntake:
			registerIntakeTools(registry, deps)
		case GroupFindings:
			registerFindingTools(registry, deps)
		case GroupRTM:
			registerRTMTools(registry, deps)
		case GroupSBOM:
			registerSBOMTools(registry, deps)
		default:
			return nil, fmt.Errorf("unknown server group: %s", group)
		}
	}
	return registry, nil
}

// Serve runs one MCP server over the given streams until EOF.
func Serve(ctx context.Context, name string, deps *Deps, in io.Reader, out io.Writer, groups ...Group) error {
	registry, err := BuildRegistry(deps, groups...)
	if err != nil {
		return err
	}
	return mcpserver.NewServer(name, Version, registry, in, out).Run(ctx)
}

// ServeStdio runs one MCP server on the process's stdio pair. stdout
// carries only framed protocol messages; all logging goes to stderr.
func ServeStdio(ctx context.Context, name string, deps *Deps, groups ...Group) error {
	return Serve(ctx, name, deps, os.Stdin, os.Stdout, groups...)
}
