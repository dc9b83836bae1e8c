package workflow

import (
	"errors"
	"testing"
)

func TestValidateTransitionAllowedEdges(t *testing.T) {
	testCases := []struct {
		name  string
		from  CycleStatus
		to    CycleStatus
		actor Role
	}{
		{"supervisor assigns", StatusPending, StatusAssigned, RoleSupervisor},
		{"admin assigns", StatusPending, StatusAssigned, RoleAdmin},
		{"technician starts", StatusAssigned, StatusInProgress, RoleTechnician},
		{"technician completes", StatusInProgress, StatusQCPending, RoleTechnician},
		{"qc passes", StatusQCPending, StatusQCPassed, RoleQC},
		{"qc fails", StatusQCPending, StatusQCFailed, RoleQC},
		{"admin passes pending", StatusQCPending, StatusQCPassed, RoleAdmin},
		{"admin fails pending", StatusQCPending, StatusQCFailed, RoleAdmin},
		{"admin overrides fail to pass", StatusQCFailed, StatusQCPassed, RoleAdmin},
		{"admin re-fails", StatusQCFailed, StatusQCFailed, RoleAdmin},
		{"auto advance", StatusQCPassed, StatusReadyForDispatch, RoleSystem},
		{"sales dispatches", StatusReadyForDispatch, StatusDispatched, RoleSales},
		{"admin dispatches", StatusReadyForDispatch, StatusDispatched, RoleAdmin},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateTransition(tc.from, tc.to, tc.actor); err != nil {
				t.Fatalf("expected %s -> %s by %s to be valid, got %v", tc.from, tc.to, tc.actor, err)
			}
		})
	}
}

// Every (from, to, role) triple outside the transition table must be
// rejected, and each rejection must carry the right kind.
func TestValidateTransitionRejectsEverythingElse(t *testing.T) {
	allowed := map[[3]string]bool{}
	for e, roles := range transitions {
		for _, r := range roles {
			allowed[[3]string{string(e.from), string(e.to), string(r)}] = true
		}
	}
	actors := append([]Role{RoleSystem}, Roles...)
	for _, from := range CycleStatuses {
		for _, to := range CycleStatuses {
			for _, actor := range actors {
				if allowed[[3]string{string(from), string(to), string(actor)}] {
					continue
				}
				err := ValidateTransition(from, to, actor)
				if err == nil {
					t.Fatalf("%s -> %s by %s unexpectedly accepted", from, to, actor)
				}
				var te *TransitionError
				if !errors.As(err, &te) {
					t.Fatalf("%s -> %s by %s: expected TransitionError, got %T", from, to, actor, err)
				}
				switch {
				case from == StatusDispatched:
					if !errors.Is(err, ErrTerminalState) {
						t.Fatalf("%s -> %s by %s: want terminal rejection, got %v", from, to, actor, err)
					}
				case edgeExists(from, to):
					if !errors.Is(err, ErrUnauthorizedRole) {
						t.Fatalf("%s -> %s by %s: want role rejection, got %v", from, to, actor, err)
					}
				default:
					if !errors.Is(err, ErrInvalidTransition) {
						t.Fatalf("%s -> %s by %s: want invalid transition, got %v", from, to, actor, err)
					}
				}
			}
		}
	}
}

func edgeExists(from, to CycleStatus) bool {
	_, ok := transitions[edge{from, to}]
	return ok
}

func TestDispatchedIsTerminal(t *testing.T) {
	for _, to := range CycleStatuses {
		for _, actor := range append([]Role{RoleSystem}, Roles...) {
			if err := ValidateTransition(StatusDispatched, to, actor); !errors.Is(err, ErrTerminalState) {
				t.Fatalf("dispatched -> %s by %s: want ErrTerminalState, got %v", to, actor, err)
			}
		}
	}
}

func TestNormalizeResult(t *testing.T) {
	testCases := []struct {
		raw     string
		want    QCResult
		wantErr bool
	}{
		{raw: "pass", want: ResultPassed},
		{raw: "passed", want: ResultPassed},
		{raw: "fail", want: ResultFailed},
		{raw: "failed", want: ResultFailed},
		{raw: " Passed ", want: ResultPassed},
		{raw: "FAIL", want: ResultFailed},
		{raw: "ok", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := NormalizeResult(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("NormalizeResult(%q): expected error, got %q", tc.raw, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NormalizeResult(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeResult(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestResultCycleStatus(t *testing.T) {
	if got := ResultPassed.CycleStatus(); got != StatusQCPassed {
		t.Fatalf("passed -> %s", got)
	}
	if got := ResultFailed.CycleStatus(); got != StatusQCFailed {
		t.Fatalf("failed -> %s", got)
	}
}

func TestRoleCodePrefixes(t *testing.T) {
	seen := map[string]Role{}
	for _, r := range Roles {
		p := r.CodePrefix()
		if len(p) != 3 {
			t.Fatalf("prefix for %s is %q", r, p)
		}
		if prev, dup := seen[p]; dup {
			t.Fatalf("prefix %q shared by %s and %s", p, prev, r)
		}
		seen[p] = r
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range Roles {
		got, err := ParseRole(string(r))
		if err != nil || got != r {
			t.Fatalf("ParseRole(%q) = %q, %v", r, got, err)
		}
	}
	if _, err := ParseRole("system"); err == nil {
		t.Fatal("system must not parse as an assignable role")
	}
	if _, err := ParseRole("manager"); err == nil {
		t.Fatal("unknown role must not parse")
	}
}
