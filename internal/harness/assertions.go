package harness

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// AssertionError is a failed expectation of one step.
type AssertionError struct {
	Step     string
	Type     string
	Expected string
	Actual   string

	// Executed is the step's execution order, for context.
	Executed []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "step %q: %s\n", e.Step, e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Executed) > 0 {
		fmt.Fprintf(&buf, "  Executed: %s\n", strings.Join(e.Executed, ", "))
	}
	return buf.String()
}

// CheckStep compares one build with its expectations. outDir is the
// project's output root.
func CheckStep(outDir string, step Step, trace StepTrace, buildErr error) []error {
	exp := step.Expect
	fail := func(typ, expected, actual string) error {
		return &AssertionError{
			Step:     step.Name,
			Type:     typ,
			Expected: expected,
			Actual:   actual,
			Executed: trace.Executed,
		}
	}

	var errs []error
	switch {
	case exp.Error == "" && buildErr != nil:
		return []error{fail("error", "success", buildErr.Error())}
	case exp.Error != "" && buildErr == nil:
		return []error{fail("error", exp.Error, "success")}
	case exp.Error != "":
		if trace.Error != exp.Error {
			errs = append(errs, fail("error", exp.Error, fmt.Sprintf("%s (%v)", trace.Error, buildErr)))
		}
	}

	if exp.Executed != nil && !slices.Equal(*exp.Executed, trace.Executed) {
		errs = append(errs, fail("executed", formatList(*exp.Executed), formatList(trace.Executed)))
	}
	for _, id := range exp.Contains {
		if !slices.Contains(trace.Executed, id) {
			errs = append(errs, fail("contains", id+" executed", "not executed"))
		}
	}
	for _, id := range exp.Absent {
		if slices.Contains(trace.Executed, id) {
			errs = append(errs, fail("absent", id+" not executed", "executed"))
		}
	}
	if exp.Waves != 0 && exp.Waves != trace.Waves {
		errs = append(errs, fail("waves", fmt.Sprint(exp.Waves), fmt.Sprint(trace.Waves)))
	}

	for _, rel := range slices.Sorted(maps.Keys(exp.Outputs)) {
		want := exp.Outputs[rel]
		data, err := os.ReadFile(filepath.Join(outDir, filepath.FromSlash(rel)))
		switch {
		case err != nil:
			errs = append(errs, fail("output "+rel, fmt.Sprintf("%q", want), err.Error()))
		case string(data) != want:
			errs = append(errs, fail("output "+rel, fmt.Sprintf("%q", want), fmt.Sprintf("%q", data)))
		}
	}
	for _, rel := range exp.Missing {
		_, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(rel)))
		if !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fail("missing "+rel, "no file", "file exists"))
		}
	}
	return errs
}

func formatList(ids []string) string {
	return "[" + strings.Join(ids, " ") + "]"
}
