package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/netwarlan/rconpanel/internal/rcon/rcontest"
)

func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd(BuildInfo{Version: "1.2.3", Commit: "abc", Date: "today"})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, mode string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf("mode: %s\ndatabase: %s\nrcon:\n  timeout: 2s\n",
		mode, filepath.Join(dir, "panel.db"))
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "rconpanel 1.2.3 (commit: abc, built: today)\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestExplicitMissingConfigFails(t *testing.T) {
	_, _, err := executeCLI(t, "settings", "show", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "reading config") {
		t.Errorf("err = %v, want reading error", err)
	}
}

func TestSettingsSetThenShow(t *testing.T) {
	cfg := writeConfig(t, "multi")

	stdout, _, err := executeCLI(t, "settings", "set", "--config", cfg,
		"--tenant", "alice", "--host", "mc.example.com", "--port", "25580", "--password", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "host: mc.example.com") || !strings.Contains(stdout, "source: Saved in Database") {
		t.Errorf("set stdout = %q", stdout)
	}

	stdout, _, err = executeCLI(t, "settings", "show", "--config", cfg, "--tenant", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "port: 25580") || strings.Contains(stdout, "pw\n") {
		t.Errorf("show stdout = %q", stdout)
	}

	stdout, _, err = executeCLI(t, "settings", "show", "--config", cfg, "--tenant", "bob")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "host: localhost") || !strings.Contains(stdout, "source: Not Configured") {
		t.Errorf("default stdout = %q", stdout)
	}
}

func TestSettingsSetValidation(t *testing.T) {
	cfg := writeConfig(t, "multi")

	_, _, err := executeCLI(t, "settings", "set", "--config", cfg,
		"--tenant", "alice", "--host", " ", "--port", "70000", "--password", "pw")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "Host is required") || !strings.Contains(err.Error(), "Port must be between 1 and 65535") {
		t.Errorf("err = %v", err)
	}

	_, _, err = executeCLI(t, "settings", "set", "--config", cfg, "--tenant", "alice", "--host", "h")
	if err == nil || !strings.Contains(err.Error(), "required flag") {
		t.Errorf("err = %v, want missing flag error", err)
	}
}

func TestExec(t *testing.T) {
	srv, err := rcontest.NewServer("pw", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	cfg := writeConfig(t, "multi")
	if _, _, err := executeCLI(t, "settings", "set", "--config", cfg, "--tenant", "alice",
		"--host", srv.Host(), "--port", strconv.Itoa(srv.Port()), "--password", "pw"); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := executeCLI(t, "exec", "--config", cfg, "--tenant", "alice", "--", "say", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "say hello\n" {
		t.Errorf("stdout = %q, want echoed command", stdout)
	}
}

func TestExec_DeliveryFailure(t *testing.T) {
	srv, err := rcontest.NewServer("right", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	cfg := writeConfig(t, "multi")
	if _, _, err := executeCLI(t, "settings", "set", "--config", cfg, "--tenant", "alice",
		"--host", srv.Host(), "--port", strconv.Itoa(srv.Port()), "--password", "wrong"); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := executeCLI(t, "exec", "--config", cfg, "--tenant", "alice", "list")
	if err == nil {
		t.Error("expected failure exit")
	}
	if !strings.Contains(stdout, "Authentication failed") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestServe_NothingToServe(t *testing.T) {
	cfg := writeConfig(t, "multi")
	_, _, err := executeCLI(t, "serve", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "nothing to serve") {
		t.Errorf("err = %v", err)
	}
}
