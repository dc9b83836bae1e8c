package workflow

import (
	"fmt"
	"strings"
)

// QCResult is a normalized inspection outcome.
type QCResult string

const (
	ResultPassed QCResult = "passed"
	ResultFailed QCResult = "failed"
)

// NormalizeResult maps the accepted raw result tokens onto the two stored
// outcomes. Inspection clients historically sent both the short and the past
// forms; this is the single place the synonyms are collapsed.
func NormalizeResult(raw string) (QCResult, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pass", "passed":
		return ResultPassed, nil
	case "fail", "failed":
		return ResultFailed, nil
	}
	return "", fmt.Errorf("unrecognized qc result %q", raw)
}

// CycleStatus is the cycle status a result moves the cycle into.
func (r QCResult) CycleStatus() CycleStatus {
	if r == ResultPassed {
		return StatusQCPassed
	}
	return StatusQCFailed
}

// ValidScore reports whether an overall score is in range. The score is
// advisory; it never gates the pass/fail outcome.
func ValidScore(score int) bool { return score >= 0 && score <= 100 }
