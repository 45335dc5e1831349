package assess

import "steward/internal/catalog"

// ztaEngine derives zero-trust judgments from the project's Kubernetes
// and service-mesh manifests.
type ztaEngine struct{}

// NewZTAEngine returns the zero trust architecture engine. It is the one
// engine with fully automated checks: YAML manifests carry enough signal
// to judge the network, crypto and workload pillars.
func NewZTAEngine() Engine { return ztaEngine{} }

func (ztaEngine) FrameworkID() string     { return "zta" }
func (ztaEngine) CatalogFilename() string { return "zta_catalog.json" }

// ztaRules maps manifest keywords to the catalog requirement ids they
// satisfy. Requirement ids follow the zta_catalog.json numbering.
var ztaRules = []keywordRule{
	{
		requirementIDs: []string{"ZTA-NET-1"},
		keywords:       []string{"mtls", "PeerAuthentication"},
		evidence:       "mutual TLS enforced between services",
	},
	{
		requirementIDs: []string{"ZTA-NET-2"},
		keywords:       []string{"NetworkPolicy"},
		evidence:       "Kubernetes NetworkPolicy present",
	},
	{
		requirementIDs: []string{"ZTA-NET-3"},
		keywords:       []string{"default-deny"},
		evidence:       "default-deny network posture declared",
	},
	{
		requirementIDs: []string{"ZTA-CRY-1"},
		keywords:       []string{"FIPS 140"},
		evidence:       "FIPS 140 validated cryptography referenced",
	},
	{
		requirementIDs: []string{"ZTA-WKL-1"},
		keywords:       []string{"RunAsNonRoot", "runAsNonRoot"},
		evidence:       "workloads restricted to non-root execution",
	},
}

func (ztaEngine) AutomatedChecks(projectDir string, cat *catalog.Catalog) (map[string]Check, error) {
	checks, err := evaluateKeywordRules(projectDir, []string{".yaml", ".yml"}, ztaRules)
	if err != nil {
		return nil, err
	}
	// Catalogs evolve independently of the rule table; judgments for ids
	// the loaded catalog no longer carries are dropped.
	for id := range checks {
		if _, ok := cat.Lookup(id); !ok {
			delete(checks, id)
		}
	}
	return checks, nil
}
