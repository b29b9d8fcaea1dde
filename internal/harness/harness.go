package harness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/thisme/internal/compiler"
	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/kernel"
	"github.com/roach88/thisme/internal/operator"
	"github.com/roach88/thisme/internal/store"
	"github.com/roach88/thisme/internal/testutil"
)

// Harness executes one scenario against one kernel.
type Harness struct {
	kernel *kernel.Kernel
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh kernel and a fresh in-memory
// database. Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create a kernel with deterministic clock, time and session id
// 2. Apply the profile, if any
// 3. Execute steps, checking expectations as they run
// 4. Persist the session and evaluate assertions
// 5. Return result with pass/fail, trace, and errors
//
// An error is returned only when the scenario cannot run at all; failed
// checks are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	logger := testutil.DiscardLogger()

	opts := []kernel.Option{
		kernel.WithLogger(logger),
		kernel.WithClock(testutil.NewDeterministicClock()),
		kernel.WithNow(testutil.FixedTime(testutil.Epoch)),
		kernel.WithSessionIDGenerator(testutil.NewFixedSessionGenerator(scenario.SessionID)),
	}
	if scenario.Identity != nil {
		opts = append(opts, kernel.WithIdentity(scenario.Identity.Username, scenario.Identity.Secret))
	}

	k, err := kernel.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kernel: %w", err)
	}

	if scenario.Profile != "" {
		p, err := compiler.LoadProfile(scenario.Profile)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
		if err := k.Apply(*p); err != nil {
			return nil, fmt.Errorf("failed to apply profile: %w", err)
		}
	}

	h := &Harness{kernel: k, logger: logger}
	result := NewResult()
	h.executeSteps(scenario.Steps, result)

	result.Session = k.Session()
	result.Thoughts = k.Thoughts()
	result.Index = k.Index()
	result.Branches = k.Branches()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if _, err := st.Save(ctx, k); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	actx := &AssertionContext{
		Store:     st,
		Ctx:       ctx,
		SessionID: result.Session.ID,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeSteps runs every step; a failed check does not stop the run.
func (h *Harness) executeSteps(steps []Step, result *Result) {
	for i, step := range steps {
		if step.IsCall() {
			h.executeCall(i, step, result)
		} else {
			h.executeRead(i, step, result)
		}
	}
}

func (h *Harness) executeCall(i int, step Step, result *Result) {
	path := ir.ParsePath(strings.Join(step.Call, "."))
	ev := TraceEvent{Type: TraceCall, Path: path.String(), Args: step.Args}

	reply, err := h.kernel.Dispatch(path, step.Args...)
	if err != nil {
		ev.Error = string(operator.ErrorCode(err))
		if ev.Error == "" {
			ev.Error = err.Error()
		}
		result.AddTrace(ev)

		if step.Error == "" {
			result.AddError(fmt.Sprintf("steps[%d]: call %s failed: %v", i, ev.Path, err))
		} else if ev.Error != step.Error {
			result.AddError(fmt.Sprintf("steps[%d]: call %s failed with %s, expected %s", i, ev.Path, ev.Error, step.Error))
		}
		return
	}

	if reply.Thought != nil {
		ev.Seq = reply.Thought.Seq
	}
	if reply.Kind != kernel.ReplyAccessor {
		ev.Value = reply.Value
		ev.Found = reply.Found
	}
	result.AddTrace(ev)

	if step.Error != "" {
		result.AddError(fmt.Sprintf("steps[%d]: call %s succeeded, expected %s", i, ev.Path, step.Error))
		return
	}
	if err := checkValue(step, reply.Value, reply.Found); err != nil {
		result.AddError(fmt.Sprintf("steps[%d]: call %s: %v", i, ev.Path, err))
	}

	h.logger.Debug("call step completed", "step", i, "path", ev.Path, "seq", ev.Seq)
}

func (h *Harness) executeRead(i int, step Step, result *Result) {
	v, found := h.kernel.Read(ir.ParsePath(step.Read))
	result.AddTrace(TraceEvent{Type: TraceRead, Path: step.Read, Value: v, Found: found})

	if err := checkValue(step, v, found); err != nil {
		result.AddError(fmt.Sprintf("steps[%d]: read %s: %v", i, step.Read, err))
	}
}

// checkValue applies a step's hidden, null or expect check.
func checkValue(step Step, v ir.IRValue, found bool) error {
	switch {
	case step.Hidden:
		if found {
			return fmt.Errorf("expected hidden, got %s", describe(v))
		}
	case step.Null:
		if _, isNull := v.(ir.IRNull); !found || !isNull {
			return fmt.Errorf("expected null, got %s", describeFound(v, found))
		}
	case step.Expect != nil:
		want, err := convertToIRValue(step.Expect)
		if err != nil {
			return fmt.Errorf("expect: %w", err)
		}
		if !found || !ir.Equal(v, want) {
			return fmt.Errorf("expected %s, got %s", describe(want), describeFound(v, found))
		}
	}
	return nil
}

func describeFound(v ir.IRValue, found bool) string {
	if !found {
		return "hidden"
	}
	return describe(v)
}

// describe renders a value as canonical JSON for messages.
func describe(v ir.IRValue) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// convertToIRValue converts a YAML-parsed value to an IRValue. YAML null
// becomes IRNull and marker maps such as {__id: name} become markers.
func convertToIRValue(val any) (ir.IRValue, error) {
	if val == nil {
		return ir.IRNull{}, nil
	}
	norm, err := normalizeNumbers(val)
	if err != nil {
		return nil, err
	}
	return ir.FromGo(norm)
}

// normalizeNumbers turns whole YAML floats (1.0) into ints and rejects
// fractional ones.
func normalizeNumbers(val any) (any, error) {
	switch v := val.(type) {
	case float64:
		if v == float64(int64(v)) {
			return int64(v), nil
		}
		return nil, fmt.Errorf("floats are not supported: %v", v)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			n, err := normalizeNumbers(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			n, err := normalizeNumbers(elem)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			out[key] = n
		}
		return out, nil
	}
	return val, nil
}
