package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)
	defer func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	}()

	Info("hidden")
	Warn("shown", "key", "value")
	Error("failed", errors.New("boom"), "id", 7)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line written at WARN level: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown key=value") {
		t.Fatalf("missing warn line: %q", out)
	}
	if !strings.Contains(out, "[ERROR] failed err=boom id=7") {
		t.Fatalf("missing error line: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"WARN":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestOddKVIgnored(t *testing.T) {
	if got := formatKVs("a", 1, "dangling"); got != " a=1" {
		t.Fatalf("formatKVs = %q", got)
	}
}
