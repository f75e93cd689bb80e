package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mattjoyce/hookgate/internal/signature"
	"github.com/mattjoyce/hookgate/internal/webhook"
)

const (
	fixtureSecret    = "whsec_1234567890"
	fixturePayload   = `{"event":"test"}`
	fixtureTimestamp = "1742780691000"
	fixtureDigest    = "1574deb21360446dbada297699e5de5a336edca333d9fb6d712a902b88f5e910"
)

func captureOutputWithExitCode(t *testing.T, run func() int) (int, string, string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stdout failed: %v", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stderr failed: %v", err)
	}

	os.Stdout = stdoutW
	os.Stderr = stderrW

	code := run()

	_ = stdoutW.Close()
	_ = stderrW.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	stdoutBytes, _ := io.ReadAll(stdoutR)
	stderrBytes, _ := io.ReadAll(stderrR)
	_ = stdoutR.Close()
	_ = stderrR.Close()

	return code, string(stdoutBytes), string(stderrBytes)
}

func writeTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	configYAML := fmt.Sprintf(`
service:
  name: hookgate-test
  log_level: debug
state:
  path: %s
webhooks:
  listen: 127.0.0.1:0
  replay:
    backend: memory
  sources:
    - name: billing
      secret: s3cret
      tolerance: 45s
`, filepath.Join(dir, "state.db"))
	if err := os.WriteFile(configPath, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func TestSignPrintsFixtureHeader(t *testing.T) {
	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return run("sign", []string{
			"--secret", fixtureSecret,
			"--payload", fixturePayload,
			"--timestamp", fixtureTimestamp,
		})
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	want := "t=" + fixtureTimestamp + ",v1=" + fixtureDigest
	if strings.TrimSpace(stdout) != want {
		t.Fatalf("stdout = %q, want %q", stdout, want)
	}
}

func TestSignExplicitZeroTimestamp(t *testing.T) {
	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runSign([]string{"--secret", "k", "--payload", `{"a":1}`, "--timestamp", "0"})
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	sig, err := signature.CreateSignature(0, json.RawMessage(`{"a":1}`), "k")
	if err != nil {
		t.Fatalf("CreateSignature: %v", err)
	}
	if want := signature.FormatHeader(0, sig); strings.TrimSpace(stdout) != want {
		t.Fatalf("stdout = %q, want %q", stdout, want)
	}
}

func TestSignDefaultsToNow(t *testing.T) {
	before := time.Now().UnixMilli()
	code, stdout, _ := captureOutputWithExitCode(t, func() int {
		return runSign([]string{"--secret", "k", "--payload", `{"a":1}`})
	})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	h, err := signature.ParseHeader(strings.TrimSpace(stdout))
	if err != nil {
		t.Fatalf("ParseHeader(%q): %v", stdout, err)
	}
	if h.Timestamp < before || h.Timestamp > time.Now().UnixMilli() {
		t.Fatalf("timestamp %d not taken from the clock", h.Timestamp)
	}
}

func TestSignRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing payload", []string{"--secret", "s"}},
		{"invalid json", []string{"--secret", "s", "--payload", "{nope"}},
		{"missing secret", []string{"--payload", fixturePayload}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := captureOutputWithExitCode(t, func() int { return runSign(tt.args) })
			if code != 1 {
				t.Fatalf("exit code = %d, want 1", code)
			}
			if !strings.Contains(stderr, "Error:") {
				t.Fatalf("stderr = %q, want an error", stderr)
			}
		})
	}
}

func TestVerifyFreshSignature(t *testing.T) {
	ts := time.Now().UnixMilli()
	sig, err := signature.CreateSignature(ts, json.RawMessage(fixturePayload), fixtureSecret)
	if err != nil {
		t.Fatalf("CreateSignature: %v", err)
	}
	header := signature.FormatHeader(ts, sig)

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runVerify([]string{"--secret", fixtureSecret, "--header", header, "--payload", fixturePayload})
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stdout %q stderr %q", code, stdout, stderr)
	}
	if strings.TrimSpace(stdout) != "valid" {
		t.Fatalf("stdout = %q, want valid", stdout)
	}
}

func TestVerifyRejections(t *testing.T) {
	now := time.Now().UnixMilli()
	fresh, err := signature.CreateSignature(now, json.RawMessage(fixturePayload), fixtureSecret)
	if err != nil {
		t.Fatalf("CreateSignature: %v", err)
	}

	tests := []struct {
		name    string
		header  string
		payload string
		reason  signature.Reason
	}{
		{"stale fixture", "t=" + fixtureTimestamp + ",v1=" + fixtureDigest, fixturePayload, signature.ReasonInvalidTimestamp},
		{"tampered payload", signature.FormatHeader(now, fresh), `{"event":"tampered"}`, signature.ReasonInvalidSignature},
		{"malformed header", "invalidformat", fixturePayload, signature.ReasonInvalidSignatureHeader},
		{"missing header", "", fixturePayload, signature.ReasonMissingSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := captureOutputWithExitCode(t, func() int {
				return runVerify([]string{
					"--secret", fixtureSecret,
					"--header", tt.header,
					"--payload", tt.payload,
					"--json",
				})
			})
			if code != exitRejected {
				t.Fatalf("exit code = %d, want %d", code, exitRejected)
			}
			var out struct {
				Valid  bool   `json:"valid"`
				Reason string `json:"reason"`
			}
			if err := json.Unmarshal([]byte(stdout), &out); err != nil {
				t.Fatalf("stdout is not JSON: %q: %v", stdout, err)
			}
			if out.Valid || out.Reason != string(tt.reason) {
				t.Fatalf("verdict = %+v, want reason %q", out, tt.reason)
			}
		})
	}
}

func TestVerifyToleranceFlag(t *testing.T) {
	ts := time.Now().Add(-time.Minute).UnixMilli()
	sig, err := signature.CreateSignature(ts, json.RawMessage(fixturePayload), fixtureSecret)
	if err != nil {
		t.Fatalf("CreateSignature: %v", err)
	}
	header := "t=" + strconv.FormatInt(ts, 10) + ",v1=" + sig

	code, _, _ := captureOutputWithExitCode(t, func() int {
		return runVerify([]string{"--secret", fixtureSecret, "--header", header, "--payload", fixturePayload})
	})
	if code != exitRejected {
		t.Fatalf("default tolerance exit code = %d, want %d", code, exitRejected)
	}

	code, _, _ = captureOutputWithExitCode(t, func() int {
		return runVerify([]string{"--secret", fixtureSecret, "--header", header, "--payload", fixturePayload, "--tolerance", "5m"})
	})
	if code != 0 {
		t.Fatalf("5m tolerance exit code = %d, want 0", code)
	}
}

func TestConfigCheckWarnsWithoutManifest(t *testing.T) {
	configPath := writeTestConfig(t)

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return run("config", []string{"check", "--config", configPath})
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "WARN") {
		t.Errorf("stdout missing integrity warning: %q", stdout)
	}
	if !strings.Contains(stdout, "source billing: header=X-Webhook-Signature tolerance=45s") {
		t.Errorf("stdout missing source summary: %q", stdout)
	}
	if strings.Contains(stdout, "s3cret") {
		t.Errorf("config check leaked the secret: %q", stdout)
	}
}

func TestConfigLockThenTamper(t *testing.T) {
	configPath := writeTestConfig(t)

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return run("config", []string{"lock", "--config", filepath.Dir(configPath)})
	})
	if code != 0 {
		t.Fatalf("lock exit code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Locked") {
		t.Fatalf("lock stdout = %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(configPath), ".checksums")); err != nil {
		t.Fatalf("manifest not written: %v", err)
	}

	code, stdout, _ = captureOutputWithExitCode(t, func() int {
		return runConfigCheck([]string{"--config", configPath})
	})
	if code != 0 {
		t.Fatalf("check after lock exit code = %d", code)
	}
	if strings.Contains(stdout, "WARN") {
		t.Errorf("unexpected warning after lock: %q", stdout)
	}

	f, err := os.OpenFile(configPath, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	_, _ = f.WriteString("# edited\n")
	_ = f.Close()

	code, _, stderr = captureOutputWithExitCode(t, func() int {
		return runConfigCheck([]string{"--config", configPath})
	})
	if code != 1 {
		t.Fatalf("check after tamper exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "integrity") {
		t.Errorf("stderr = %q, want integrity failure", stderr)
	}
}

func TestConfigLockRefusesInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("service:\n  log_level: loud\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigLock([]string{"--config", configPath})
	})
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Refusing") {
		t.Errorf("stderr = %q", stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, ".checksums")); !os.IsNotExist(err) {
		t.Errorf("manifest should not exist, stat err = %v", err)
	}
}

func TestVersionJSON(t *testing.T) {
	orig := [3]string{version, gitCommit, buildDate}
	version, gitCommit, buildDate = "1.2.3", "0123456789abcdef0123", "2026-01-02T03:04:05+10:00"
	t.Cleanup(func() { version, gitCommit, buildDate = orig[0], orig[1], orig[2] })

	code, stdout, _ := captureOutputWithExitCode(t, func() int { return run("version", []string{"--json"}) })
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	var info versionInfo
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := versionInfo{Version: "1.2.3", Commit: "0123456789ab", BuildTime: "2026-01-01T17:04:05Z"}
	if info != want {
		t.Fatalf("version info = %+v, want %+v", info, want)
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, stderr := captureOutputWithExitCode(t, func() int { return run("launch", nil) })
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Unknown command: launch") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestMaxTolerance(t *testing.T) {
	if got := maxTolerance(nil); got != webhook.DefaultTolerance {
		t.Errorf("maxTolerance(nil) = %v, want %v", got, webhook.DefaultTolerance)
	}
	sources := []webhook.SourceEndpoint{
		{Name: "a", Tolerance: 10 * time.Second},
		{Name: "b", Tolerance: 2 * time.Minute},
	}
	if got := maxTolerance(sources); got != 2*time.Minute {
		t.Errorf("maxTolerance() = %v, want 2m", got)
	}
}
