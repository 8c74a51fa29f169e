package log

import (
	"os"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"debug":   "debug",
		"info":    "info",
		"warn":    "warn",
		"error":   "error",
		"bogus":   "info", // unrecognized level falls back to info
		"":        "info",
	}
	for input, want := range cases {
		got := parseLevel(input).String()
		if got != want {
			t.Errorf("parseLevel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestInit_WritesToFile(t *testing.T) {
	path := t.TempDir() + "/node.log"
	if err := Init("debug", false, path); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	Logger.Info().Msg("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log file to contain the emitted record")
	}
}

func TestWithComponent_InheritsLevel(t *testing.T) {
	l := WithComponent("test-component")
	if l.GetLevel() != Logger.GetLevel() {
		t.Fatalf("WithComponent logger level = %v, want %v", l.GetLevel(), Logger.GetLevel())
	}
}
