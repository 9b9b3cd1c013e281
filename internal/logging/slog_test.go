package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestWithOperation(t *testing.T) {
	logger := slog.Default()
	result := WithOperation(logger, "sync_user")
	if result == nil {
		t.Error("WithOperation returned nil")
	}
}

func TestWithAccount(t *testing.T) {
	logger := slog.Default()
	result := WithAccount(logger, "acct-1")
	if result == nil {
		t.Error("WithAccount returned nil")
	}
}

func TestOperationAttr(t *testing.T) {
	attr := Operation("sync_user")
	if attr.Key != KeyOperation {
		t.Errorf("Operation key = %q, want %q", attr.Key, KeyOperation)
	}
	if attr.Value.String() != "sync_user" {
		t.Errorf("Operation value = %q, want %q", attr.Value.String(), "sync_user")
	}
}

func TestAccountAttr(t *testing.T) {
	attr := Account("acct-1")
	if attr.Key != KeyAccount {
		t.Errorf("Account key = %q, want %q", attr.Key, KeyAccount)
	}
}

func TestDisplayAttr(t *testing.T) {
	attr := Display("display-7")
	if attr.Key != KeyDisplay {
		t.Errorf("Display key = %q, want %q", attr.Key, KeyDisplay)
	}
	if attr.Value.String() != "display-7" {
		t.Errorf("Display value = %q, want %q", attr.Value.String(), "display-7")
	}
}

func TestErrAttr(t *testing.T) {
	err := errors.New("boom")
	attr := Err(err)
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "boom" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "boom")
	}
}

func TestErrAttrNil(t *testing.T) {
	attr := Err(nil)
	// A nil error must produce an empty group that slog omits from output.
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty", attr.Key)
	}
}

func TestAnonymizeEmail(t *testing.T) {
	hash := AnonymizeEmail("dad@example.com")
	if hash == "" {
		t.Error("AnonymizeEmail returned empty string for non-empty email")
	}
	if hash == "dad@example.com" {
		t.Error("AnonymizeEmail returned the raw email")
	}
	// Case-insensitive: the same mailbox hashes identically.
	if AnonymizeEmail("DAD@Example.com") != hash {
		t.Error("AnonymizeEmail is case-sensitive, want case-insensitive")
	}
	if AnonymizeEmail("") != "" {
		t.Error("AnonymizeEmail should return empty string for empty email")
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken(""); got != "<empty>" {
		t.Errorf("SanitizeToken(\"\") = %q, want <empty>", got)
	}
	got := SanitizeToken("ya29.secret-token")
	if got != "[token:17 chars]" {
		t.Errorf("SanitizeToken = %q, want [token:17 chars]", got)
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"mom@example.com", "example.com"},
		{"not-an-email", ""},
		{"", ""},
		{"two@at@signs", ""},
	}

	for _, tt := range tests {
		if got := ExtractDomain(tt.email); got != tt.want {
			t.Errorf("ExtractDomain(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestSlogAdapter(t *testing.T) {
	adapter := NewSlogAdapter(nil)
	if adapter == nil {
		t.Fatal("NewSlogAdapter returned nil")
	}
	// Must not panic with the default logger.
	adapter.Debug("debug", "k", "v")
	adapter.Info("info", "k", "v")
	adapter.Warn("warn", "k", "v")
	adapter.Error("error", "k", "v")
}
