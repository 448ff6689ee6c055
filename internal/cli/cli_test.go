package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeMacro(t *testing.T, dir, name, doc string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

const burstDoc = `name: Burst
steps:
  - kind: cast
    ability: fireball
    condition: targetExists
  - kind: wait
    duration: 0.5
`

func TestValidateReportsEachFile(t *testing.T) {
	dir := t.TempDir()
	good := writeMacro(t, dir, "burst.yaml", burstDoc)
	bad := writeMacro(t, dir, "meteor.yaml", "name: Meteor\nsteps:\n  - kind: cast\n    ability: meteor\n")

	out, err := execute(t, "validate", good, bad)
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("expected one invalid file, got %v", err)
	}
	if !strings.Contains(out, "ok "+good) {
		t.Fatalf("expected ok line for %s, got:\n%s", good, out)
	}
	if !strings.Contains(out, "FAIL "+bad) || !strings.Contains(out, "meteor") {
		t.Fatalf("expected failure line for %s, got:\n%s", bad, out)
	}
}

func TestEstimatePrintsDuration(t *testing.T) {
	path := writeMacro(t, t.TempDir(), "burst.yaml", burstDoc)
	out, err := execute(t, "estimate", path, "--gcd", "1s")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if !strings.Contains(out, "burst: 1.5s over 1 pass(es)") {
		t.Fatalf("unexpected estimate output %q", out)
	}
}

func TestEstimateUnboundedLoop(t *testing.T) {
	path := writeMacro(t, t.TempDir(), "spin.yaml", "name: Spin\nloop: true\nsteps:\n  - kind: wait\n    duration: 1\n")
	out, err := execute(t, "estimate", path)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if !strings.Contains(out, "spin: loops forever") {
		t.Fatalf("unexpected estimate output %q", out)
	}
}

func TestServeConfigAppliesFlags(t *testing.T) {
	t.Setenv("WARCHIEF_TICK_RATE", "20")
	if err := serveCmd.Flags().Parse([]string{"--addr", "127.0.0.1:9999", "--store", "yaml", "--store-path", t.TempDir(), "--no-seed"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := serveConfig(serveCmd)
	if err != nil {
		t.Fatalf("serve config: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9999" || cfg.StoreDriver != "yaml" || cfg.SeedDemo {
		t.Fatalf("expected flags to override env defaults, got %+v", cfg)
	}
	if cfg.TickRate != 20 {
		t.Fatalf("expected env tick rate to survive, got %d", cfg.TickRate)
	}
}
