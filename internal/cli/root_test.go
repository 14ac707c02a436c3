package cli

import (
	"strings"
	"testing"
)

func TestCheckCmd_InvalidDBURL_ErrorIsGraceful(t *testing.T) {
	_, err := runCmd(t, "check", "--repo", t.TempDir(), "--db-url", "not-a-url", "--format", "json")
	if err == nil {
		t.Fatal("expected connection error")
	}
	if strings.Contains(err.Error(), "connect: connect:") {
		t.Fatalf("unexpected duplicated prefix: %v", err)
	}
	if !strings.Contains(err.Error(), "connect: cannot parse `not-a-url`") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckCmd_RequiresDBURL(t *testing.T) {
	t.Setenv(dbURLEnv, "")
	_, err := runCmd(t, "check", "--repo", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "--db-url is required") {
		t.Fatalf("err = %v", err)
	}
}

func TestResolveDBURL(t *testing.T) {
	cfg.DBURL = "postgres://config"
	t.Cleanup(func() { cfg.DBURL = "" })

	t.Setenv(dbURLEnv, "")
	if got := resolveDBURL(""); got != "postgres://config" {
		t.Errorf("config fallback = %q", got)
	}
	t.Setenv(dbURLEnv, "postgres://env")
	if got := resolveDBURL(""); got != "postgres://env" {
		t.Errorf("env = %q", got)
	}
	if got := resolveDBURL("postgres://flag"); got != "postgres://flag" {
		t.Errorf("flag = %q", got)
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd(BuildInfo{Version: "1.2.3", Commit: "abc123", Date: "2026-01-02"})
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != "sqlspectre 1.2.3 (commit abc123, built 2026-01-02)" {
		t.Errorf("version = %q", got)
	}
}

func TestBuildInfo_String(t *testing.T) {
	if got := (BuildInfo{Version: "dev"}).String(); got != "sqlspectre dev" {
		t.Errorf("got %q", got)
	}
	if got := (BuildInfo{Version: "dev", Commit: "abc"}).String(); got != "sqlspectre dev (commit abc)" {
		t.Errorf("got %q", got)
	}
}

func TestExitError(t *testing.T) {
	err := &ExitError{Code: 2}
	if err.Error() != "exit status 2" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRootCmd_UnknownLogFormat(t *testing.T) {
	_, err := runCmd(t, "--log-format", "xml", "version")
	if err == nil {
		t.Fatal("expected error for unknown log format")
	}
}

func TestRootCmd_MissingConfigFile(t *testing.T) {
	_, err := runCmd(t, "--config", "/nonexistent/sqlspectre.yml", "version")
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("err = %v", err)
	}
}
