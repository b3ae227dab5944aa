package domain

import "testing"

func TestSessionStateString(t *testing.T) {
	cases := map[SessionState]string{
		StateInitializing:  "initializing",
		StateAwaitingScan:  "awaiting_scan",
		StateAuthenticated: "authenticated",
		StateReady:         "ready",
		StateAuthFailed:    "auth_failed",
		StateDisconnected:  "disconnected",
		SessionState(99):   "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("SessionState(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestApplyQR(t *testing.T) {
	rec := NewSessionRecord("acct-1")
	rec.Retries = 3

	rec.ApplyQR("challenge-abc")

	if rec.GetState() != StateAwaitingScan {
		t.Errorf("expected awaiting_scan, got %s", rec.GetState())
	}
	if rec.QRCode != "challenge-abc" {
		t.Errorf("expected challenge stored, got %q", rec.QRCode)
	}
	if rec.Retries != 0 {
		t.Errorf("expected retries reset to 0, got %d", rec.Retries)
	}
}

func TestApplyAuthFailureClearsCredentialsAboveOneRetry(t *testing.T) {
	rec := NewSessionRecord("acct-1")
	rec.SetCredentials([]byte(`{"token":"abc"}`))
	rec.Retries = 2

	rec.ApplyAuthFailure()

	if rec.Credentials != nil {
		t.Error("expected credentials cleared when retries > 1")
	}
	if rec.Retries != 3 {
		t.Errorf("expected retries incremented to 3, got %d", rec.Retries)
	}
	if rec.GetState() != StateAuthFailed {
		t.Errorf("expected auth_failed, got %s", rec.GetState())
	}
}

func TestApplyAuthFailureKeepsCredentialsOnFirstFailure(t *testing.T) {
	rec := NewSessionRecord("acct-1")
	rec.SetCredentials([]byte(`{"token":"abc"}`))

	rec.ApplyAuthFailure()

	if rec.Credentials == nil {
		t.Error("expected credentials untouched on first failure")
	}
	if rec.Retries != 1 {
		t.Errorf("expected retries = 1, got %d", rec.Retries)
	}
}

func TestApplyReadyResetsChallengeAndRetries(t *testing.T) {
	rec := NewSessionRecord("acct-1")
	rec.ApplyQR("challenge-abc")
	rec.ApplyAuthFailure()

	rec.ApplyReady()

	if rec.GetState() != StateReady {
		t.Errorf("expected ready, got %s", rec.GetState())
	}
	if rec.QRCode != "" {
		t.Errorf("expected QR challenge cleared, got %q", rec.QRCode)
	}
	if rec.Retries != 0 {
		t.Errorf("expected retries reset to 0, got %d", rec.Retries)
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	rec := NewSessionRecord("acct-1")
	rec.SetCredentials([]byte("blob"))

	snap := rec.Snapshot()
	rec.ApplyQR("new-challenge")

	if snap.State != "initializing" {
		t.Errorf("snapshot should keep the state at capture time, got %q", snap.State)
	}
	if snap.QRCode != "" {
		t.Errorf("snapshot should not see later mutation, got %q", snap.QRCode)
	}

	snap.Credentials[0] = 'X'
	if string(rec.Snapshot().Credentials) != "blob" {
		t.Error("mutating snapshot credentials must not affect the record")
	}
}
