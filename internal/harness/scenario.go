package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a sequence of kernel calls and reads with assertions on the
// resulting log, index and branches.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Profile is an optional CUE operator profile applied before the steps.
	// Relative paths resolve against the scenario file's directory.
	Profile string `yaml:"profile,omitempty"`

	// Identity makes the kernel identity-bearing.
	Identity *IdentitySpec `yaml:"identity,omitempty"`

	// SessionID fixes the session id. Defaults to "test-session-default".
	SessionID string `yaml:"session_id,omitempty"`

	// Steps run in order against one kernel.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// IdentitySpec configures an identity-bearing kernel.
type IdentitySpec struct {
	Username string `yaml:"username"`
	Secret   string `yaml:"secret"`
}

// Step is either a call or a read.
type Step struct {
	// Call is the accessor path as labels. Labels may be dotted.
	Call []string `yaml:"call,omitempty"`

	// Args are the call arguments.
	Args []any `yaml:"args,omitempty"`

	// Read is a dotted path read through the kernel.
	Read string `yaml:"read,omitempty"`

	// Expect is the value a read (or a value-returning call) must yield.
	Expect any `yaml:"expect,omitempty"`

	// Hidden requires the read to be hidden.
	Hidden bool `yaml:"hidden,omitempty"`

	// Null requires the cannot-decrypt null.
	Null bool `yaml:"null,omitempty"`

	// Error is the validation code the call must fail with.
	Error string `yaml:"error,omitempty"`
}

// IsCall reports whether the step is a call.
func (s Step) IsCall() bool {
	return s.Call != nil
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Path is the dotted path (branch_exists, index_excludes, index_equals).
	Path string `yaml:"path,omitempty"`

	// Value is the expected index value (index_equals).
	Value any `yaml:"value,omitempty"`

	// Count is the expected number of log records (log_count).
	Count int `yaml:"count,omitempty"`

	// Operators is the expected operator sequence (log_operators).
	Operators []string `yaml:"operators,omitempty"`
}

// Assertion type constants.
const (
	AssertBranchExists  = "branch_exists"
	AssertIndexExcludes = "index_excludes"
	AssertIndexEquals   = "index_equals"
	AssertLogCount      = "log_count"
	AssertLogOperators  = "log_operators"
)

// LoadScenario reads and parses a scenario YAML file. A relative profile
// path is resolved against the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Profile != "" && !filepath.IsAbs(scenario.Profile) {
		scenario.Profile = filepath.Join(filepath.Dir(path), scenario.Profile)
	}
	if scenario.Profile != "" {
		if _, err := os.Stat(scenario.Profile); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: profile not found: %s", scenario.Profile)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field validation
// (catches typos like "assertion:" vs "assertions:").
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.Identity != nil && s.Identity.Username == "" {
		return fmt.Errorf("identity: username is required")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s Step) error {
	switch {
	case s.IsCall() && s.Read != "":
		return fmt.Errorf("steps[%d]: call and read are mutually exclusive", index)
	case !s.IsCall() && s.Read == "":
		return fmt.Errorf("steps[%d]: call or read is required", index)
	case !s.IsCall() && (len(s.Args) > 0 || s.Error != ""):
		return fmt.Errorf("steps[%d]: args and error only apply to calls", index)
	}

	checks := 0
	for _, set := range []bool{s.Expect != nil, s.Hidden, s.Null} {
		if set {
			checks++
		}
	}
	if checks > 1 {
		return fmt.Errorf("steps[%d]: expect, hidden and null are mutually exclusive", index)
	}
	if s.Error != "" && checks > 0 {
		return fmt.Errorf("steps[%d]: a failing call has no value to check", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertBranchExists, AssertIndexExcludes:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for %s", index, a.Type)
		}
	case AssertIndexEquals:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for %s", index, a.Type)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for %s", index, a.Type)
		}
	case AssertLogCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for log_count", index)
		}
	case AssertLogOperators:
		if a.Operators == nil {
			return fmt.Errorf("assertions[%d]: operators list is required for log_operators", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
