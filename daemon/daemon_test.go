package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestIsDaemonEnvFlag(t *testing.T) {
	t.Setenv(EnvFlag, "true")
	if !IsDaemon() {
		t.Fatalf("IsDaemon should return true when %s=true", EnvFlag)
	}
	t.Setenv(EnvFlag, "false")
	if IsDaemon() {
		t.Fatalf("IsDaemon should return false when %s=false", EnvFlag)
	}
}

func TestGetExecutablePathReturnsAbs(t *testing.T) {
	path, err := GetExecutablePath()
	if err != nil {
		t.Fatalf("GetExecutablePath error: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Fatalf("expected absolute path, got %s", path)
	}
}

func TestStopDaemonMissingPIDFile(t *testing.T) {
	if err := StopDaemon(filepath.Join(t.TempDir(), "missing.pid")); err == nil {
		t.Fatalf("expected error when pid file is missing")
	}
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.pid")
	os.WriteFile(good, []byte("1234\n"), 0644)
	if pid, err := ReadPID(good); err != nil || pid != 1234 {
		t.Fatalf("ReadPID = %d, %v", pid, err)
	}
	bad := filepath.Join(dir, "bad.pid")
	os.WriteFile(bad, []byte("abc"), 0644)
	if _, err := ReadPID(bad); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestRemovePIDFileOnlyOwnPID(t *testing.T) {
	dir := t.TempDir()
	own := filepath.Join(dir, "own.pid")
	os.WriteFile(own, []byte(strconv.Itoa(os.Getpid())), 0644)
	RemovePIDFile(own)
	if _, err := os.Stat(own); !os.IsNotExist(err) {
		t.Fatalf("own pid file should be removed")
	}

	other := filepath.Join(dir, "other.pid")
	os.WriteFile(other, []byte(strconv.Itoa(os.Getpid()+1)), 0644)
	RemovePIDFile(other)
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("foreign pid file must stay: %v", err)
	}
}

// StartDaemon/RestartDaemon spawn real processes and are not covered here.
