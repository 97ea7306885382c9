package signature

import (
	"testing"
	"time"
)

func TestSignAndVerify(t *testing.T) {
	body := []byte(`{"alert_id":"alert-001"}`)

	sig, ts, err := Sign("topsecret", body)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if !Verify("topsecret", ts, body, sig) {
		t.Fatalf("expected signature to verify")
	}
}

func TestVerify_TamperedBody(t *testing.T) {
	body := []byte(`{"alert_id":"alert-001"}`)
	sig, ts, err := Sign("topsecret", body)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	tampered := []byte(`{"alert_id":"alert-002"}`)
	if Verify("topsecret", ts, tampered, sig) {
		t.Fatalf("tampered body must not verify")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	body := []byte("payload")
	sig, ts, _ := Sign("secret-a", body)
	if Verify("secret-b", ts, body, sig) {
		t.Fatalf("wrong secret must not verify")
	}
}

func TestVerify_EmptyInputs(t *testing.T) {
	if Verify("", "123", []byte("x"), "deadbeef") {
		t.Fatalf("empty secret must not verify")
	}
	if Verify("secret", "123", []byte("x"), "") {
		t.Fatalf("empty signature must not verify")
	}
}

func TestFreshWithin(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	cases := []struct {
		name      string
		timestamp string
		want      bool
	}{
		{"current", "1700000000", true},
		{"just inside past", "1699999701", true},
		{"boundary", "1699999700", true},
		{"too old", "1699999699", false},
		{"future skew inside", "1700000299", true},
		{"future too far", "1700000301", false},
		{"malformed", "not-a-number", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FreshWithin(tc.timestamp, 5*time.Minute, now); got != tc.want {
				t.Fatalf("FreshWithin(%q) = %v, want %v", tc.timestamp, got, tc.want)
			}
		})
	}
}
