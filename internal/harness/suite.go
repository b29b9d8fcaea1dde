package harness

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total    int            `json:"total"`
	Passed   int            `json:"passed"`
	Failed   int            `json:"failed"`
	Results  []SuiteEntry   `json:"results"`
	Failures []SuiteFailure `json:"failures,omitempty"`
}

// SuiteEntry is the outcome of one scenario file.
type SuiteEntry struct {
	Path   string  `json:"path"`
	Name   string  `json:"name"`
	Result *Result `json:"-"`
}

// SuiteFailure represents a scenario that failed to load, run or pass.
type SuiteFailure struct {
	ScenarioPath string `json:"scenario_path"`
	Error        string `json:"error"`
}

// FindScenarios returns the .yaml and .yml files under root in lexical
// order. A filter, if given, is a glob matched against the base name
// without extension. root may also be a single file.
func FindScenarios(root, filter string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scenarios: %w", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(filepath.Base(path), ext))
			if err != nil {
				return fmt.Errorf("invalid filter %q: %w", filter, err)
			}
			if !matched {
				return nil
			}
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scenarios: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// RunSuite loads and runs each scenario file. Scenarios run concurrently,
// each against its own kernel and in-memory database; results are reported
// in path order.
func RunSuite(paths []string) *SuiteResult {
	type outcome struct {
		scenario *Scenario
		result   *Result
		failure  string
	}
	outcomes := make([]outcome, len(paths))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			scenario, err := LoadScenario(path)
			if err != nil {
				outcomes[i].failure = fmt.Sprintf("failed to load scenario: %v", err)
				return nil
			}
			runResult, err := Run(scenario)
			if err != nil {
				outcomes[i].failure = fmt.Sprintf("scenario execution failed: %v", err)
				return nil
			}
			outcomes[i] = outcome{scenario: scenario, result: runResult}
			return nil
		})
	}
	_ = g.Wait()

	result := &SuiteResult{Total: len(paths), Results: []SuiteEntry{}}
	for i, o := range outcomes {
		path := paths[i]
		if o.failure != "" {
			result.Failed++
			result.Failures = append(result.Failures, SuiteFailure{ScenarioPath: path, Error: o.failure})
			continue
		}

		result.Results = append(result.Results, SuiteEntry{Path: path, Name: o.scenario.Name, Result: o.result})
		if !o.result.Pass {
			result.Failed++
			result.Failures = append(result.Failures, SuiteFailure{
				ScenarioPath: path,
				Error:        fmt.Sprintf("scenario assertions failed: %v", o.result.Errors),
			})
			continue
		}
		result.Passed++
	}

	return result
}
