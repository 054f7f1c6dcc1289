package logging

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// captureStdout runs fn against a fresh process logger and returns everything written to stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	resetLoggerForTest()
	t.Cleanup(resetLoggerForTest)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	defer func() { _ = r.Close() }()

	origStdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	fn()
	_ = Sync()

	if closeErr := w.Close(); closeErr != nil {
		t.Fatalf("failed to close writer: %v", closeErr)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read log output: %v", err)
	}
	return strings.TrimSpace(string(data))
}

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("failed to unmarshal log JSON %q: %v", line, err)
	}
	return payload
}

func resetLoggerForTest() {
	loggerOnce = sync.Once{}
	baseLogger = nil
	sugarLogger = nil
	loggerErr = nil
}

func TestLoggerStructuredOutput(t *testing.T) {
	out := captureStdout(t, func() {
		Logger().Info("profile saved", zap.String("nickname", "jdoe"))
	})
	payload := decodeLine(t, out)

	if payload["message"] != "profile saved" {
		t.Fatalf("unexpected message: %v", payload["message"])
	}
	if payload["severity"] != "INFO" {
		t.Fatalf("unexpected severity: %v", payload["severity"])
	}
	if payload["nickname"] != "jdoe" {
		t.Fatalf("unexpected nickname field: %v", payload["nickname"])
	}
	if _, ok := payload["caller"]; !ok {
		t.Fatal("expected caller field")
	}
	ts, ok := payload["timestamp"].(string)
	if !ok {
		t.Fatalf("expected string timestamp, got %T", payload["timestamp"])
	}
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
		t.Fatalf("timestamp %q is not RFC 3339: %v", ts, err)
	}
}

func TestDebugSuppressedByDefault(t *testing.T) {
	t.Setenv(LevelEnv, "")
	out := captureStdout(t, func() {
		Logger().Debug("hidden debug line")
	})
	if strings.Contains(out, "hidden debug line") {
		t.Fatal("debug entries must not be written at the default level")
	}
}

func TestLevelEnvEnablesDebug(t *testing.T) {
	t.Setenv(LevelEnv, "DEBUG")
	out := captureStdout(t, func() {
		Sugar().Debugw("availability probe", "nickname", "jdoe")
	})
	payload := decodeLine(t, out)
	if payload["severity"] != "DEBUG" {
		t.Fatalf("expected DEBUG severity, got %v", payload["severity"])
	}
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		raw  string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{" Error ", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv(LevelEnv, tt.raw)
			if got := levelFromEnv(); got != tt.want {
				t.Fatalf("levelFromEnv(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

type captureArrayEncoder struct {
	zapcore.PrimitiveArrayEncoder
	values []string
}

func (c *captureArrayEncoder) AppendString(v string) {
	c.values = append(c.values, v)
}

func TestEncodeSeverityMapping(t *testing.T) {
	tests := map[zapcore.Level]string{
		zapcore.DebugLevel:  "DEBUG",
		zapcore.InfoLevel:   "INFO",
		zapcore.WarnLevel:   "WARNING",
		zapcore.ErrorLevel:  "ERROR",
		zapcore.DPanicLevel: "CRITICAL",
		zapcore.PanicLevel:  "ALERT",
		zapcore.FatalLevel:  "EMERGENCY",
		zapcore.Level(42):   "DEFAULT",
	}
	for level, want := range tests {
		enc := &captureArrayEncoder{}
		encodeSeverity(level, enc)
		if len(enc.values) != 1 || enc.values[0] != want {
			t.Fatalf("level %s: expected %q, got %v", level, want, enc.values)
		}
	}
}

func TestEncodeTimeMicros(t *testing.T) {
	tests := []struct {
		name  string
		input time.Time
		want  string
	}{
		{"utc", time.Date(2024, 6, 15, 10, 30, 45, 123456000, time.UTC), "2024-06-15T10:30:45.123456Z"},
		{"zero fraction", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2024-01-01T00:00:00.000000Z"},
		{"offset converted", time.Date(2024, 6, 15, 12, 0, 0, 500000000, time.FixedZone("EST", -5*3600)), "2024-06-15T17:00:00.500000Z"},
		{"nanos truncated", time.Date(2024, 3, 20, 8, 15, 30, 999999999, time.UTC), "2024-03-20T08:15:30.999999Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := &captureArrayEncoder{}
			encodeTimeMicros(tt.input, enc)
			if len(enc.values) != 1 || enc.values[0] != tt.want {
				t.Fatalf("expected %q, got %v", tt.want, enc.values)
			}
		})
	}
}

func TestLoggerSingleton(t *testing.T) {
	resetLoggerForTest()
	t.Cleanup(resetLoggerForTest)

	if Logger() != Logger() {
		t.Fatal("expected Logger to return the same instance")
	}
	if Sugar() != Sugar() {
		t.Fatal("expected Sugar to return the same instance")
	}
	if err := Err(); err != nil {
		t.Fatalf("unexpected init error: %v", err)
	}
}

func TestLoggerConcurrentInit(t *testing.T) {
	resetLoggerForTest()
	t.Cleanup(resetLoggerForTest)

	var wg sync.WaitGroup
	loggers := make([]*zap.Logger, 16)
	for i := range loggers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loggers[i] = Logger()
		}(i)
	}
	wg.Wait()
	for _, l := range loggers {
		if l != loggers[0] {
			t.Fatal("concurrent callers observed different loggers")
		}
	}
}
