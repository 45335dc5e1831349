package assess

// manualEngine is a declaration-only engine: its judgments arrive through
// the assessment tools, the runner only merges, scores and gates them.
type manualEngine struct {
	frameworkID     string
	catalogFilename string
}

func (e manualEngine) FrameworkID() string     { return e.frameworkID }
func (e manualEngine) CatalogFilename() string { return e.catalogFilename }

// NewNIST80053Engine assesses against the NIST SP 800-53 rev 5 control
// catalog, grouped by control family.
func NewNIST80053Engine() Engine {
	return manualEngine{frameworkID: "nist_800_53", catalogFilename: "nist_800_53_catalog.json"}
}

// NewFIPSEngine assesses FIPS 199 categorization and FIPS 200 minimum
// security requirements.
func NewFIPSEngine() Engine {
	return manualEngine{frameworkID: "fips", catalogFilename: "fips_catalog.json"}
}

// NewCMMCEngine assesses CMMC level 2 practices. Scoring uses the
// met-variant rule and the gate requires zero not_met practices.
func NewCMMCEngine() Engine {
	return manualEngine{frameworkID: "cmmc", catalogFilename: "cmmc_practices.json"}
}

// NewFedRAMPEngine assesses the FedRAMP moderate baseline. The gate
// additionally pins the five critical controls and family coverage.
func NewFedRAMPEngine() Engine {
	return manualEngine{frameworkID: "fedramp", catalogFilename: "fedramp_moderate.json"}
}

// NewATLASEngine assesses MITRE ATLAS mitigations for AI-enabled systems.
func NewATLASEngine() Engine {
	return manualEngine{frameworkID: "atlas", catalogFilename: "atlas_mitigations.json"}
}

// NewSbDEngine assesses CISA Secure by Design commitments.
func NewSbDEngine() Engine {
	return manualEngine{frameworkID: "sbd", catalogFilename: "sbd_commitments.json"}
}

// NewIVVEngine assesses IEEE 1012 verification and validation areas.
// Scoring splits 60/40 across the verification and validation area means.
func NewIVVEngine() Engine {
	return manualEngine{frameworkID: "ivv", catalogFilename: "ivv_areas.json"}
}

// NewCSSPEngine assesses Cyber Security Service Provider requirements.
func NewCSSPEngine() Engine {
	return manualEngine{frameworkID: "cssp", catalogFilename: "cssp_catalog.json"}
}

// DefaultEngines returns every framework engine the fleet ships.
func DefaultEngines() []Engine {
	return []Engine{
		NewNIST80053Engine(),
		NewFIPSEngine(),
		NewCMMCEngine(),
		NewFedRAMPEngine(),
		NewATLASEngine(),
		NewSbDEngine(),
		NewIVVEngine(),
		NewCSSPEngine(),
		NewZTAEngine(),
	}
}
