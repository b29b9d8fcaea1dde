package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/thisme/internal/ir"
)

// GoldenDir is where golden commit logs live, relative to the test's
// package directory.
const GoldenDir = "testdata/golden"

// LogSnapshot captures a scenario's commit log for golden comparison.
type LogSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	SessionID    string       `json:"session_id"`
	Thoughts     []ir.Thought `json:"thoughts"`
}

// toCanonicalMap converts a LogSnapshot to a map[string]any for canonical
// JSON serialization. A plain write's operator is null; undefined
// expressions and values are omitted.
func (s *LogSnapshot) toCanonicalMap() map[string]any {
	thoughts := make([]any, len(s.Thoughts))
	for i, t := range s.Thoughts {
		m := map[string]any{
			"seq":              t.Seq,
			"path":             t.Path,
			"operator":         ir.IRNull{},
			"effective_secret": t.EffectiveSecret,
			"hash":             t.Hash,
			"timestamp":        t.Timestamp,
		}
		if t.Operator != "" {
			m["operator"] = t.Operator
		}
		if t.Expression != nil {
			m["expression"] = t.Expression
		}
		if t.Value != nil {
			m["value"] = t.Value
		}
		thoughts[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"session_id":    s.SessionID,
		"thoughts":      thoughts,
	}
}

// GoldenBytes renders a result's commit log as canonical JSON.
func GoldenBytes(scenarioName string, result *Result) ([]byte, error) {
	snapshot := LogSnapshot{
		ScenarioName: scenarioName,
		SessionID:    result.Session.ID,
		Thoughts:     result.Thoughts,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its commit log against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the log doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result's commit log against
// its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := GoldenBytes(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
