package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/internal/assess"
	"steward/internal/catalog"
	"steward/internal/mcpserver"
	"steward/internal/store"
)

type rpcResponse struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      json.RawMessage     `json:"id"`
	Result  json.RawMessage     `json:"result"`
	Error   *mcpserver.RPCError `json:"error"`
}

type toolEnvelope struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func newTestDeps(t *testing.T) *Deps {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "steward.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	catalogDir := t.TempDir()
	writeFile(t, filepath.Join(catalogDir, "zta_catalog.json"), `{
		"version": "1.0",
		"requirements": [
			{"id": "ZTA-NET-1", "title": "Mutual TLS between services", "domain": "network", "priority": "critical"},
			{"id": "ZTA-NET-2", "title": "Network segmentation policy", "domain": "network"},
			{"id": "ZTA-WKL-1", "title": "Non-root workloads", "domain": "workload"}
		]
	}`)
	loader := catalog.NewLoader(catalogDir)
	t.Cleanup(func() { _ = loader.Close() })

	runner := assess.NewRunner(s, loader, assess.DefaultEngines()...)
	return NewDeps(s, runner, nil, "")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// runFleet feeds framed request bodies through a full fleet server and
// returns the framed responses in order.
func runFleet(t *testing.T, deps *Deps, bodies ...string) []rpcResponse {
	t.Helper()
	var in bytes.Buffer
	w := mcpserver.NewFrameWriter(&in)
	for _, b := range bodies {
		require.NoError(t, w.Write([]byte(b)))
	}

	var out bytes.Buffer
	require.NoError(t, Serve(context.Background(), "steward", deps, &in, &out))

	var responses []rpcResponse
	r := mcpserver.NewFrameReader(&out)
	for {
		body, err := r.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		var resp rpcResponse
		require.NoError(t, json.Unmarshal(body, &resp))
		responses = append(responses, resp)
	}
	return responses
}

func toolCall(id int, name, argsJSON string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"tools/call","params":{"name":%q,"arguments":%s}}`,
		id, name, argsJSON)
}

// envelope decodes a tools/call result.
func envelope(t *testing.T, resp rpcResponse) toolEnvelope {
	t.Helper()
	require.Nil(t, resp.Error)
	var env toolEnvelope
	require.NoError(t, json.Unmarshal(resp.Result, &env))
	require.Len(t, env.Content, 1)
	return env
}

// envelopeJSON decodes the envelope text as a JSON object.
func envelopeJSON(t *testing.T, resp rpcResponse) map[string]interface{} {
	t.Helper()
	env := envelope(t, resp)
	require.False(t, env.IsError, env.Content[0].Text)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(env.Content[0].Text), &doc))
	return doc
}

func TestBuildRegistry_AllGroups(t *testing.T) {
	registry, err := BuildRegistry(newTestDeps(t))
	require.NoError(t, err)

	tools, resources, prompts := registry.Counts()
	assert.Equal(t, 14, tools)
	assert.Equal(t, 3, resources)
	assert.Equal(t, 2, prompts)
}

func TestBuildRegistry_UnknownGroup(t *testing.T) {
	_, err := BuildRegistry(newTestDeps(t), Group("telemetry"))
	assert.ErrorContains(t, err, "unknown server group")
}

func TestBuildRegistry_SubsetExposesOnlyItsTools(t *testing.T) {
	registry, err := BuildRegistry(newTestDeps(t), GroupSBOM)
	require.NoError(t, err)

	tools := registry.Tools()
	require.Len(t, tools, 1)
	assert.Equal(t, "generate_sbom", tools[0].Name)
}

func TestCreateProject_ToolAndResource(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()

	responses := runFleet(t, deps,
		toolCall(1, "create_project", fmt.Sprintf(`{"project_id":"p1","name":"demo","directory":%q}`, dir)),
		`{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"project://p1"}}`,
		toolCall(3, "list_projects", `{}`))
	require.Len(t, responses, 3)

	created := envelopeJSON(t, responses[0])
	assert.Equal(t, "demo", created["name"])
	// Defaults applied by the store.
	assert.Equal(t, "CUI", created["classification"])
	assert.Equal(t, "IL4", created["impact_level"])

	var read struct {
		Contents []struct {
			Text string `json:"text"`
		} `json:"contents"`
	}
	require.Nil(t, responses[1].Error)
	require.NoError(t, json.Unmarshal(responses[1].Result, &read))
	require.Len(t, read.Contents, 1)
	assert.Contains(t, read.Contents[0].Text, `"project_id": "p1"`)

	listed := envelopeJSON(t, responses[2])
	assert.Equal(t, float64(1), listed["count"])

	events, err := deps.Store.ListAuditEvents(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "project_created", events[0].EventType)
}

func TestToolError_SurfacesInEnvelope(t *testing.T) {
	responses := runFleet(t, newTestDeps(t),
		toolCall(1, "create_project", `{"project_id":"p1"}`),
		toolCall(2, "assess_framework", `{"framework":"zta","project_id":"ghost"}`))
	require.Len(t, responses, 2)

	missing := envelope(t, responses[0])
	assert.True(t, missing.IsError)
	assert.Contains(t, missing.Content[0].Text, "name argument is required")

	notFound := envelope(t, responses[1])
	assert.True(t, notFound.IsError)
	assert.Contains(t, notFound.Content[0].Text, "project not found")
}

func TestAssessFramework_EndToEnd(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mesh.yaml"),
		"kind: PeerAuthentication\nspec:\n  mtls:\n    mode: STRICT\n")

	responses := runFleet(t, deps,
		toolCall(1, "create_project", fmt.Sprintf(`{"project_id":"p1","name":"demo","directory":%q}`, dir)),
		toolCall(2, "assess_framework", `{"framework":"zta","project_id":"p1"}`))
	require.Len(t, responses, 2)

	summary := envelopeJSON(t, responses[1])
	assert.Equal(t, "zta", summary["framework"])
	assert.Equal(t, "p1", summary["project_id"])
	counts := summary["status_counts"].(map[string]interface{})
	assert.Equal(t, float64(1), counts["satisfied"])
}

func TestCatalogResource(t *testing.T) {
	responses := runFleet(t, newTestDeps(t),
		`{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"catalog://zta"}}`)
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)

	var read struct {
		Contents []struct {
			Text string `json:"text"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(responses[0].Result, &read))
	require.Len(t, read.Contents, 1)
	assert.Contains(t, read.Contents[0].Text, "ZTA-NET-1")
	assert.Contains(t, read.Contents[0].Text, `"framework": "zta"`)
}

func TestReportResource_ServesLatestVersion(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()

	responses := runFleet(t, deps,
		toolCall(1, "create_project", fmt.Sprintf(`{"project_id":"p1","name":"demo","directory":%q}`, dir)),
		toolCall(2, "generate_report", `{"framework":"zta","project_id":"p1"}`),
		toolCall(3, "generate_report", `{"framework":"zta","project_id":"p1"}`),
		`{"jsonrpc":"2.0","id":4,"method":"resources/read","params":{"uri":"report://p1/zta"}}`)
	require.Len(t, responses, 4)

	second := envelopeJSON(t, responses[2])
	assert.Equal(t, "2.0", second["version"])
	outputFile := second["output_file"].(string)

	want, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	var read struct {
		Contents []struct {
			Text string `json:"text"`
		} `json:"contents"`
	}
	require.Nil(t, responses[3].Error)
	require.NoError(t, json.Unmarshal(responses[3].Result, &read))
	require.Len(t, read.Contents, 1)
	assert.Equal(t, string(want), read.Contents[0].Text)
}

func TestIntakeFlow(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()

	responses := runFleet(t, deps,
		toolCall(1, "create_project", fmt.Sprintf(`{"project_id":"p1","name":"demo","directory":%q}`, dir)),
		toolCall(2, "intake_start_session", `{"project_id":"p1"}`))
	require.Len(t, responses, 2)

	session := envelopeJSON(t, responses[1])
	sessionID := session["session_id"].(string)
	require.NotEmpty(t, sessionID)
	assert.Equal(t, "active", session["status"])

	responses = runFleet(t, deps,
		toolCall(1, "intake_add_requirement", fmt.Sprintf(
			`{"session_id":%q,"text":"The system should probably encrypt stored records and log every change made by operators.","requirement_type":"security"}`, sessionID)),
		toolCall(2, "intake_analyze", fmt.Sprintf(`{"session_id":%q}`, sessionID)))
	require.Len(t, responses, 2)

	added := envelopeJSON(t, responses[0])
	// Hedge wording scores as an assumption.
	assert.Equal(t, 0.8, added["clarity_score"])

	analysis := envelopeJSON(t, responses[1])
	assert.Equal(t, "ok", analysis["status"])
	questions := analysis["questions"].([]interface{})
	require.NotEmpty(t, questions)
	first := questions[0].(map[string]interface{})
	assert.Equal(t, "compliance_required", first["impact"])
}

func TestIntakeAnalyze_SessionNotFound(t *testing.T) {
	responses := runFleet(t, newTestDeps(t),
		toolCall(1, "intake_analyze", `{"session_id":"nope"}`))
	require.Len(t, responses, 1)

	env := envelope(t, responses[0])
	assert.True(t, env.IsError)
	assert.Contains(t, env.Content[0].Text, "intake session not found")
}

func TestSetAssessment_Tool(t *testing.T) {
	deps := newTestDeps(t)
	responses := runFleet(t, deps,
		toolCall(1, "create_project", `{"project_id":"p1","name":"demo","directory":"/tmp/p1"}`),
		toolCall(2, "set_assessment", `{"project_id":"p1","framework":"zta","requirement_id":"ZTA-NET-2","status":"risk_accepted","notes":"segmentation enforced upstream"}`),
		toolCall(3, "set_assessment", `{"project_id":"p1","framework":"zta","requirement_id":"ZTA-NET-2","status":"mostly fine"}`),
		toolCall(4, "set_assessment", `{"project_id":"p1","framework":"zta","requirement_id":"ZTA-XXX-9","status":"satisfied"}`))
	require.Len(t, responses, 4)

	doc := envelopeJSON(t, responses[1])
	assert.Equal(t, "risk_accepted", doc["status"])
	assert.Equal(t, "manual", doc["assessor"])

	env := envelope(t, responses[2])
	assert.True(t, env.IsError)
	assert.Contains(t, env.Content[0].Text, "unknown assessment status")

	env = envelope(t, responses[3])
	assert.True(t, env.IsError)
	assert.Contains(t, env.Content[0].Text, "unknown zta requirement")

	row, err := deps.Store.GetAssessment(context.Background(), "zta", "p1", "ZTA-NET-2")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "risk_accepted", row.Status)
	assert.Equal(t, "segmentation enforced upstream", row.Notes)

	events, err := deps.Store.ListAuditEvents(context.Background(), "p1")
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, "assessment_updated")
}

func TestStigScan_PreservesAdjudicatedFindings(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "auth.go"),
		"package auth\n\n// passwords are hashed with bcrypt\n")

	responses := runFleet(t, deps,
		toolCall(1, "create_project", fmt.Sprintf(`{"project_id":"p1","name":"demo","directory":%q}`, dir)),
		toolCall(2, "stig_set_finding",
			`{"project_id":"p1","vuln_id":"V-222542","status":"NotAFinding","severity":"CAT1","comments":"bcrypt verified"}`),
		toolCall(3, "stig_scan", `{"project_id":"p1"}`))
	require.Len(t, responses, 3)

	scan := envelopeJSON(t, responses[2])
	findings := scan["findings"].([]interface{})
	// Adjudication survives the scan; the rest of the checklist lands as
	// Not_Reviewed.
	byID := map[string]map[string]interface{}{}
	for _, f := range findings {
		m := f.(map[string]interface{})
		byID[m["vuln_id"].(string)] = m
	}
	assert.Equal(t, "NotAFinding", byID["V-222542"]["status"])
	assert.Equal(t, "Not_Reviewed", byID["V-222596"]["status"])

	gate := scan["gate"].(map[string]interface{})
	assert.Equal(t, true, gate["passed"])
}

func TestIVVRecordFinding(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()

	responses := runFleet(t, deps,
		toolCall(1, "create_project", fmt.Sprintf(`{"project_id":"p1","name":"demo","directory":%q}`, dir)),
		toolCall(2, "ivv_record_finding",
			`{"project_id":"p1","finding_id":"IVV-001","severity":"critical","status":"open","area":"code_verification","title":"Unvalidated input path"}`))
	require.Len(t, responses, 2)

	recorded := envelopeJSON(t, responses[1])
	assert.Equal(t, "IVV-001", recorded["finding_id"])

	findings, err := deps.Store.ListIVVFindings(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "critical", findings[0].Severity)
}

func TestBuildRTM_Tool(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "features", "user_login.feature"),
		"Feature: User login\n  Scenario: valid credentials\n")
	writeFile(t, filepath.Join(dir, "tests", "test_user_login.py"),
		"def test_user_login():\n    pass\n")

	responses := runFleet(t, deps,
		toolCall(1, "create_project", fmt.Sprintf(`{"project_id":"p1","name":"demo","directory":%q}`, dir)),
		toolCall(2, "build_rtm", `{"project_id":"p1"}`))
	require.Len(t, responses, 2)

	result := envelopeJSON(t, responses[1])
	assert.FileExists(t, result["report_file"].(string))
	assert.FileExists(t, result["data_file"].(string))
	matrix := result["matrix"].(map[string]interface{})
	assert.Equal(t, float64(100), matrix["coverage"])
}

func TestGenerateSBOM_Tool(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "requirements.txt"), "requests==2.31.0\nflask>=2.0\n")

	responses := runFleet(t, deps,
		toolCall(1, "create_project", fmt.Sprintf(`{"project_id":"p1","name":"demo","directory":%q}`, dir)),
		toolCall(2, "generate_sbom", `{"project_id":"p1"}`))
	require.Len(t, responses, 2)

	result := envelopeJSON(t, responses[1])
	assert.Equal(t, float64(1), result["version"])
	assert.Equal(t, float64(2), result["component_count"])
	assert.FileExists(t, result["output_file"].(string))
}

func TestClarifySpec_Tool(t *testing.T) {
	responses := runFleet(t, newTestDeps(t),
		toolCall(1, "clarify_spec",
			`{"spec_text":"## Feature Description\nThe system should be fast and user-friendly with appropriate error handling.\n"}`))
	require.Len(t, responses, 1)

	analysis := envelopeJSON(t, responses[0])
	assert.Equal(t, "ok", analysis["status"])
	assert.NotEmpty(t, analysis["questions"])
}

func TestClarifyRequirements_Prompt(t *testing.T) {
	responses := runFleet(t, newTestDeps(t),
		`{"jsonrpc":"2.0","id":1,"method":"prompts/get","params":{"name":"clarify_requirements","arguments":{"spec_text":"## Feature Description\nTBD\n"}}}`)
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)

	var result struct {
		Messages []struct {
			Role    string `json:"role"`
			Content struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(responses[0].Result, &result))
	require.Len(t, result.Messages, 1)
	assert.Equal(t, "user", result.Messages[0].Role)
	assert.Contains(t, result.Messages[0].Content.Text, "clarification questions")
}

func TestGateSummary_Prompt(t *testing.T) {
	deps := newTestDeps(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mesh.yaml"),
		"kind: PeerAuthentication\nspec:\n  mtls:\n    mode: STRICT\n")

	responses := runFleet(t, deps,
		toolCall(1, "create_project", fmt.Sprintf(`{"project_id":"p1","name":"demo","directory":%q}`, dir)),
		toolCall(2, "assess_framework", `{"framework":"zta","project_id":"p1"}`),
		`{"jsonrpc":"2.0","id":3,"method":"prompts/get","params":{"name":"gate_summary","arguments":{"project_id":"p1","framework":"zta"}}}`)
	require.Len(t, responses, 3)
	require.Nil(t, responses[2].Error)

	var result struct {
		Messages []struct {
			Content struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(responses[2].Result, &result))
	require.Len(t, result.Messages, 1)
	assert.Contains(t, result.Messages[0].Content.Text, "zta")
	assert.Contains(t, result.Messages[0].Content.Text, "gate")
}
