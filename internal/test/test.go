// Package test holds assertion helpers for tests that compare printed WGSL.
package test

import (
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

// AssertEqualWithDiff reports a unified diff when actual and expected differ.
func AssertEqualWithDiff(t *testing.T, actual, expected string) {
	t.Helper()
	if actual != expected {
		t.Errorf("\n%s", Diff(expected, actual))
	}
}

// Diff returns a unified diff from expected to actual.
func Diff(expected, actual string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}
