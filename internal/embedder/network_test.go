package embedder

import "testing"

func TestAllowListGuardExactMatch(t *testing.T) {
	g := NewAllowListGuard([]string{"api.example.com"})
	if !g.Allow("api.example.com") {
		t.Fatal("expected exact host to be allowed")
	}
	if g.Allow("other.example.com") {
		t.Fatal("expected non-listed host to be denied")
	}
}

func TestAllowListGuardCaseInsensitive(t *testing.T) {
	g := NewAllowListGuard([]string{"API.Example.com"})
	if !g.Allow("api.example.com") {
		t.Fatal("expected case-insensitive match")
	}
}

func TestDenyAllGuardDeniesEverything(t *testing.T) {
	if DenyAll.Allow("anything.example.com") {
		t.Fatal("zero-permission guard must deny every host")
	}
}

func TestEmptyAllowListDeniesEverything(t *testing.T) {
	g := NewAllowListGuard(nil)
	if g.Allow("anything.example.com") {
		t.Fatal("empty allow-list must deny, matching default-deny posture")
	}
}
