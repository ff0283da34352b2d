package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// EnvFlag marks the child process started by StartDaemon
const EnvFlag = "SWAP_SENTINEL_DAEMON"

// IsDaemon checks if the process is running as a daemon/background process
func IsDaemon() bool {
	return os.Getenv(EnvFlag) == "true"
}

// StartDaemon starts the application in the background and records its pid
func StartDaemon(args []string, pidFile string) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	if pid, err := ReadPID(pidFile); err == nil && processAlive(pid) {
		return fmt.Errorf("daemon already running with PID %d", pid)
	}

	cmd := exec.Command(execPath, args...)
	cmd.Env = append(os.Environ(), EnvFlag+"=true")
	// Output goes to the rotating log file, not the terminal
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	if dir := filepath.Dir(pidFile); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create PID dir: %w", err)
		}
	}
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(cmd.Process.Pid)), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	fmt.Printf("Daemon started with PID: %d. PID file saved as %s\n", cmd.Process.Pid, pidFile)
	return nil
}

// StopDaemon asks the background process to shut down and removes the pid file
func StopDaemon(pidFile string) error {
	pid, err := ReadPID(pidFile)
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	// SIGTERM lets the bot stop its loops and close the journal
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to stop process %d: %w", pid, err)
	}

	if err := os.Remove(pidFile); err != nil {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}

	fmt.Printf("Daemon with PID %d has been stopped.\n", pid)
	return nil
}

// RestartDaemon restarts the daemon process
func RestartDaemon(args []string, pidFile string) error {
	if err := StopDaemon(pidFile); err != nil {
		fmt.Printf("Warning: Could not stop daemon: %v\n", err)
	}
	return StartDaemon(args, pidFile)
}

// ReadPID parses the pid stored in pidFile
func ReadPID(pidFile string) (int, error) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("failed to parse PID %q", strings.TrimSpace(string(data)))
	}
	return pid, nil
}

// RemovePIDFile deletes pidFile when it names the current process
func RemovePIDFile(pidFile string) {
	if pid, err := ReadPID(pidFile); err == nil && pid == os.Getpid() {
		os.Remove(pidFile)
	}
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}

// GetExecutablePath returns the current executable path
func GetExecutablePath() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Abs(execPath)
}
