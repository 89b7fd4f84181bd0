package httpapi

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelOff,
		"off":   LevelOff,
		"error": LevelError,
		"info":  LevelInfo,
		"debug": LevelDebug,
		"weird": LevelInfo, // default
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestLogLevel_Overrides(t *testing.T) {
	// query param ?log=debug
	r := httptest.NewRequest("GET", "/x?log=debug", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("query override failed: %v", got)
	}
	// shorthand ?log=1
	r = httptest.NewRequest("GET", "/x?log=1", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("shorthand query override failed: %v", got)
	}
	// header X-Log-Level
	r = httptest.NewRequest("GET", "/x", nil)
	r.Header.Set("X-Log-Level", "error")
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("header override failed: %v", got)
	}
	// query wins over header
	r = httptest.NewRequest("GET", "/x?log=off", nil)
	r.Header.Set("X-Log-Level", "debug")
	if got := requestLogLevel(r); got != LevelOff {
		t.Fatalf("query should win: %v", got)
	}
}

func TestGenerateLogLines(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer func() { zlog = nil }()

	r := httptest.NewRequest("POST", "/generate", nil)
	logGenerateStart(r, LevelInfo, "json", "m", "secret prompt")
	logGenerateEnd(r, LevelInfo, 200, time.Now(), nil)
	out := buf.String()
	if !strings.Contains(out, `"message":"generate start"`) || !strings.Contains(out, `"surface":"json"`) {
		t.Fatalf("missing start line: %q", out)
	}
	if strings.Contains(out, "secret prompt") {
		t.Fatalf("prompt must only be logged at debug: %q", out)
	}

	buf.Reset()
	logGenerateStart(r, LevelDebug, "ui", "m", "secret prompt")
	if !strings.Contains(buf.String(), "secret prompt") {
		t.Fatalf("expected prompt at debug: %q", buf.String())
	}

	buf.Reset()
	logGenerateEnd(r, LevelError, 502, time.Now(), errors.New("runtime down"))
	if !strings.Contains(buf.String(), `"level":"error"`) || !strings.Contains(buf.String(), `"status":502`) {
		t.Fatalf("expected error line: %q", buf.String())
	}

	buf.Reset()
	logGenerateEnd(r, LevelError, 200, time.Now(), nil)
	logGenerateEnd(r, LevelOff, 500, time.Now(), errors.New("x"))
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}
