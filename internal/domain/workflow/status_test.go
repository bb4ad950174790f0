package workflow

import "testing"

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		expected bool
	}{
		{StatusDraft, false},
		{StatusPendingHead, false},
		{StatusPendingParentHead, false},
		{StatusPendingAdmin, false},
		{StatusPendingComptroller, false},
		{StatusPendingHR, false},
		{StatusPendingHRAck, false},
		{StatusPendingExec, false},
		{StatusApproved, true},
		{StatusRejected, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.expected {
				t.Errorf("Status.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		expected bool
	}{
		{"draft", StatusDraft, true},
		{"pending_hr_ack", StatusPendingHRAck, true},
		{"cancelled", StatusCancelled, true},
		{"unknown value", Status("pending_registrar"), false},
		{"empty", Status(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.expected {
				t.Errorf("Status.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStatus_Order(t *testing.T) {
	if !StatusPendingHead.Before(StatusPendingAdmin) {
		t.Error("pending_head should order before pending_admin")
	}
	if !StatusPendingComptroller.Before(StatusPendingHR) {
		t.Error("pending_comptroller should order before pending_hr")
	}
	if StatusPendingExec.Before(StatusPendingHR) {
		t.Error("pending_exec should not order before pending_hr")
	}
	if got := Status("bogus").Order(); got != -1 {
		t.Errorf("invalid status Order() = %d, want -1", got)
	}
}

func TestStatus_IsPending(t *testing.T) {
	if StatusDraft.IsPending() {
		t.Error("draft is not a pending stage")
	}
	if StatusApproved.IsPending() {
		t.Error("approved is not a pending stage")
	}
	if !StatusPendingComptroller.IsPending() {
		t.Error("pending_comptroller is a pending stage")
	}
}

func TestCanonicalStageOrder(t *testing.T) {
	for i := 1; i < len(CanonicalStageOrder); i++ {
		if !CanonicalStageOrder[i-1].Before(CanonicalStageOrder[i]) {
			t.Errorf("canonical order out of sequence at %d: %s then %s",
				i, CanonicalStageOrder[i-1], CanonicalStageOrder[i])
		}
	}
}
