package resilience

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	short := "hello"
	if got := Truncate(short); got != short {
		t.Fatalf("expected short string unchanged, got %q", got)
	}

	long := strings.Repeat("x", MaxWarningCodepoints+50)
	got := Truncate(long)
	runes := []rune(got)
	if len(runes) > MaxWarningCodepoints {
		t.Fatalf("truncated string has %d code points, want <= %d", len(runes), MaxWarningCodepoints)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis suffix, got %q", got[len(got)-10:])
	}
	if !strings.HasPrefix(got, strings.Repeat("x", 10)) {
		t.Fatalf("expected prefix preserved")
	}
}

func TestTruncate_MultibyteCodepoints(t *testing.T) {
	// Each CJK character is a single code point but 3 bytes in UTF-8; truncation must count
	// code points, not bytes, or it would cut mid-character.
	long := strings.Repeat("箱", MaxWarningCodepoints+10)
	got := Truncate(long)
	runeCount := len([]rune(got))
	if runeCount > MaxWarningCodepoints {
		t.Fatalf("rune count %d exceeds limit", runeCount)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis suffix")
	}
}

func TestWarningFormat(t *testing.T) {
	w := Warning(SeverityError, "auto", "element not found")
	if w != "ERROR:auto:element not found" {
		t.Fatalf("unexpected warning format: %q", w)
	}
}

func TestAttemptAndSummaryWarnings(t *testing.T) {
	aw := AttemptWarning("auto", 1, 5, "invalid or empty URL")
	if aw != "ERROR:auto:Attempt 1/5 - invalid or empty URL" {
		t.Fatalf("unexpected attempt warning: %q", aw)
	}

	sw := SummaryWarning("auto", 5, 5)
	if sw != "ERROR:auto:All 5 execution attempts failed. Total errors: 5" {
		t.Fatalf("unexpected summary warning: %q", sw)
	}

	sv := AttemptSuccessWarning("auto", 2)
	if sv != "INFO:auto:succeeded on attempt 2" {
		t.Fatalf("unexpected success warning: %q", sv)
	}
}
