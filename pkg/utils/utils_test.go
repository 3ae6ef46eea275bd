package utils

import "testing"

func TestIsValidIP(t *testing.T) {
	valid := []string{"10.0.0.5", "203.0.113.7", "::1", "2001:db8::1"}
	for _, s := range valid {
		if !IsValidIP(s) {
			t.Errorf("Expected %q to be valid", s)
		}
	}

	invalid := []string{"", "10.0.0", "256.1.1.1", "localhost", " 10.0.0.5", "10.0.0.5/24"}
	for _, s := range invalid {
		if IsValidIP(s) {
			t.Errorf("Expected %q to be invalid", s)
		}
	}
}

func TestIsValidPort(t *testing.T) {
	if IsValidPort(0) || IsValidPort(65536) || IsValidPort(-1) {
		t.Error("Expected out of range ports to be rejected")
	}
	if !IsValidPort(1) || !IsValidPort(65535) {
		t.Error("Expected boundary ports to be accepted")
	}
}

func TestParseID(t *testing.T) {
	if id, ok := ParseID("42"); !ok || id != 42 {
		t.Errorf("Expected 42, got %d %v", id, ok)
	}
	for _, s := range []string{"", "0", "-3", "abc", "1.5"} {
		if _, ok := ParseID(s); ok {
			t.Errorf("Expected %q to be rejected", s)
		}
	}
}

func TestGenerateID(t *testing.T) {
	a, err := GenerateID()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GenerateID()
	if len(a) != idLength || a == b {
		t.Errorf("Expected two distinct %d-char ids, got %q %q", idLength, a, b)
	}
}
