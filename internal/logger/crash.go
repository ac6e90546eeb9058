package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

const (
	// CrashLogDir is the crash log directory inside the data directory.
	CrashLogDir = "crash_logs"

	// MaxCrashLogs is how many crash logs are kept.
	MaxCrashLogs = 10
)

// CrashContext is what a crash log records besides the panic itself. It
// never holds draft text.
type CrashContext struct {
	mu       sync.RWMutex
	command  string
	version  string
	basePath string
	fs       afero.Fs
}

var globalContext = &CrashContext{fs: afero.NewOsFs()}

// SetBasePath sets the data directory crash logs are written under.
func SetBasePath(path string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.basePath = path
}

func SetVersion(version string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.version = version
}

// SetCommand records the command line being executed.
func SetCommand(cmd string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.command = cmd
}

// CrashLog is one crash log file.
type CrashLog struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version"`
	Command    string    `json:"command"`
	PanicValue string    `json:"panic_value"`
	StackTrace string    `json:"stack_trace"`
	GoVersion  string    `json:"go_version"`
	OS         string    `json:"os"`
	Arch       string    `json:"arch"`
}

// HandlePanic recovers a panic, writes a crash log and exits with status 1.
// Usage: defer logger.HandlePanic()
func HandlePanic() {
	if r := recover(); r != nil {
		path, err := recordPanic(r)
		reportCrash(os.Stderr, r, path, err)
		os.Exit(1)
	}
}

func recordPanic(r any) (string, error) {
	log := createCrashLog(r)
	return writeCrashLog(log)
}

func reportCrash(w io.Writer, r any, path string, err error) {
	if err != nil {
		fmt.Fprintf(w, "\n[CRASH] Failed to write crash log: %v\n", err)
		fmt.Fprintf(w, "[CRASH] Panic: %v\n%s\n", r, debug.Stack())
		return
	}
	fmt.Fprintf(w, "\nbmc-analyst crashed unexpectedly.\nA crash log has been saved to:\n  %s\n\n", path)
}

func createCrashLog(panicValue any) CrashLog {
	globalContext.mu.RLock()
	defer globalContext.mu.RUnlock()

	return CrashLog{
		Timestamp:  time.Now(),
		Version:    globalContext.version,
		Command:    globalContext.command,
		PanicValue: fmt.Sprintf("%v", panicValue),
		StackTrace: string(debug.Stack()),
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
	}
}

// writeCrashLog stores log as JSON and returns its path.
func writeCrashLog(log CrashLog) (string, error) {
	fsys, dir := crashLogLocation()
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create crash log dir: %w", err)
	}
	if err := cleanOldCrashLogs(fsys, dir); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to clean old crash logs: %v\n", err)
	}

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode crash log: %w", err)
	}
	path := filepath.Join(dir, crashLogName(log.Timestamp))
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write crash log: %w", err)
	}
	return path, nil
}

func crashLogLocation() (afero.Fs, string) {
	globalContext.mu.RLock()
	defer globalContext.mu.RUnlock()

	base := globalContext.basePath
	if base == "" {
		base = ".bmc-analyst"
	}
	return globalContext.fs, filepath.Join(base, CrashLogDir)
}

func crashLogName(t time.Time) string {
	return fmt.Sprintf("crash_%s.json", t.Format("20060102_150405.000"))
}

func isCrashLog(name string) bool {
	return strings.HasPrefix(name, "crash_") && strings.HasSuffix(name, ".json")
}

// cleanOldCrashLogs makes room for one more log under the MaxCrashLogs cap.
// Names sort chronologically.
func cleanOldCrashLogs(fsys afero.Fs, dir string) error {
	logs, err := crashLogNames(fsys, dir)
	if err != nil {
		return err
	}
	excess := len(logs) - (MaxCrashLogs - 1)
	for i := 0; i < excess; i++ {
		if err := fsys.Remove(filepath.Join(dir, logs[i])); err != nil {
			return fmt.Errorf("remove old crash log %s: %w", logs[i], err)
		}
	}
	return nil
}

func crashLogNames(fsys afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && isCrashLog(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// ListCrashLogs returns the paths of the stored crash logs, oldest first.
func ListCrashLogs() ([]string, error) {
	fsys, dir := crashLogLocation()
	names, err := crashLogNames(fsys, dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}
