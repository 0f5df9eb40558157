package harness

import "strings"

// Match compares an expected outcome with what was observed. It returns
// "PASS" when the expectation appears in the observation ignoring case,
// "FAIL" when it does not, and "" when there was no expectation.
func Match(expected, observed string) string {
	want := strings.ToLower(strings.TrimSpace(expected))
	if want == "" {
		return ""
	}
	return passFail(strings.Contains(strings.ToLower(observed), want))
}
