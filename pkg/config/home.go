package config

import (
	"os"
	"path/filepath"
	"sync"
)

const envHome = "SWAGLABS_HOME"

var (
	homeOnce sync.Once
	homeDir  string
)

// GetHome returns the swaglabs-runner home directory.
//
// Resolution order:
//  1. $SWAGLABS_HOME
//  2. Parent of the binary's directory, when the binary lives in <home>/bin/
//  3. Current working directory
func GetHome() string {
	homeOnce.Do(func() {
		homeDir = resolveHome()
	})
	return homeDir
}

// GetLogPath returns <home>/logs/swaglabs.log.
func GetLogPath() string {
	return filepath.Join(GetHome(), "logs", "swaglabs.log")
}

// GetEnvFile returns <home>/.env, read for credentials after the working
// directory's .env.
func GetEnvFile() string {
	return filepath.Join(GetHome(), ".env")
}

func resolveHome() string {
	if env := os.Getenv(envHome); env != "" {
		return env
	}
	if dir, ok := binaryHome(); ok {
		return dir
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

func binaryHome() (string, bool) {
	execPath, err := os.Executable()
	if err != nil {
		return "", false
	}
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}
	binDir := filepath.Dir(execPath)
	if filepath.Base(binDir) != "bin" {
		return "", false
	}
	return filepath.Dir(binDir), true
}

// ResetHome resets the cached home directory (for testing).
func ResetHome() {
	homeOnce = sync.Once{}
	homeDir = ""
}
