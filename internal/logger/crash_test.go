package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMemFs(t *testing.T) afero.Fs {
	t.Helper()
	prev := globalContext
	fsys := afero.NewMemMapFs()
	globalContext = &CrashContext{fs: fsys, basePath: "/data"}
	t.Cleanup(func() { globalContext = prev })
	return fsys
}

func TestRecordPanic(t *testing.T) {
	fsys := useMemFs(t)
	SetVersion("0.4.0")
	SetCommand("bmc serve")

	path, err := recordPanic("boom")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", CrashLogDir), filepath.Dir(path))

	data, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)
	var log CrashLog
	require.NoError(t, json.Unmarshal(data, &log))
	assert.Equal(t, "boom", log.PanicValue)
	assert.Equal(t, "0.4.0", log.Version)
	assert.Equal(t, "bmc serve", log.Command)
	assert.NotEmpty(t, log.StackTrace)
}

func TestCleanOldCrashLogs(t *testing.T) {
	fsys := useMemFs(t)
	dir := filepath.Join("/data", CrashLogDir)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := range MaxCrashLogs + 3 {
		name := crashLogName(base.Add(time.Duration(i) * time.Minute))
		require.NoError(t, afero.WriteFile(fsys, filepath.Join(dir, name), []byte("{}"), 0o644))
	}
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(dir, "notes.txt"), nil, 0o644))

	_, err := writeCrashLog(CrashLog{Timestamp: base.Add(time.Hour)})
	require.NoError(t, err)

	logs, err := ListCrashLogs()
	require.NoError(t, err)
	require.Len(t, logs, MaxCrashLogs)
	assert.Equal(t, crashLogName(base.Add(4*time.Minute)), filepath.Base(logs[0]), "oldest four removed")
	assert.Equal(t, crashLogName(base.Add(time.Hour)), filepath.Base(logs[len(logs)-1]))
}

func TestListCrashLogsMissingDir(t *testing.T) {
	useMemFs(t)
	logs, err := ListCrashLogs()
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestReportCrash(t *testing.T) {
	var buf bytes.Buffer
	reportCrash(&buf, "boom", "/data/crash_logs/crash_x.json", nil)
	assert.Contains(t, buf.String(), "/data/crash_logs/crash_x.json")

	buf.Reset()
	reportCrash(&buf, "boom", "", errors.New("read-only"))
	assert.Contains(t, buf.String(), "read-only")
	assert.Contains(t, buf.String(), "boom")
}

func TestSetup(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		level, format string
		wantErr       bool
		check         func(t *testing.T, out string)
	}{
		{level: "info", format: "json", check: func(t *testing.T, out string) {
			assert.Contains(t, out, `"msg":"hello"`)
			assert.NotContains(t, out, "hidden")
		}},
		{level: "debug", format: "text", check: func(t *testing.T, out string) {
			assert.Contains(t, out, "msg=hello")
			assert.Contains(t, out, "hidden")
		}},
		{level: "loud", format: "text", wantErr: true},
		{level: "info", format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.level, tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			l, err := Setup(tt.level, tt.format, &buf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			l.Debug("hidden")
			slog.Info("hello")
			tt.check(t, buf.String())
		})
	}
}
