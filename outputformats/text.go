package outputformats

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/credview/credview/types"
)

// TextFormatter implements the pipe-delimited format, one creds.log file
// under the log directory
type TextFormatter struct {
	credsLog   *os.File
	logDir     string
	sessionUID string
	mu         sync.Mutex
}

func NewTextFormatter(logDir, sessionUID string) (*TextFormatter, error) {
	if logDir == "" {
		return nil, fmt.Errorf("log directory cannot be empty")
	}
	return &TextFormatter{
		logDir:     logDir,
		sessionUID: sessionUID,
	}, nil
}

func (f *TextFormatter) Initialize() error {
	if err := os.MkdirAll(f.logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %v", err)
	}

	rotateExistingLog(f.logDir)

	var err error
	f.credsLog, err = os.OpenFile(
		filepath.Join(f.logDir, "creds.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		0644,
	)
	if err != nil {
		return fmt.Errorf("failed to open creds log: %v", err)
	}

	fmt.Fprintln(f.credsLog, "timestamp|session_uid|worker|tid|pid|comm|reason|flags|ino|nlink|dev|fs_type")
	return nil
}

func (f *TextFormatter) Close() error {
	if f.credsLog != nil {
		return f.credsLog.Close()
	}
	return nil
}

func (f *TextFormatter) FormatCredCommit(event *types.CredCommitEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	info := &event.Info
	_, err := fmt.Fprintf(f.credsLog, "%s|%s|%d|%s|%d|%s|%s|%s|%d|%d|%d|%s\n",
		event.Timestamp.Format(time.RFC3339Nano),
		f.sessionUID,
		event.Worker,
		tidString(event.TID),
		event.PID,
		cleanField(event.Comm, "-"),
		commitReason(info),
		flagsString(info.SecureExec),
		info.Inode.Ino,
		info.Inode.Nlink,
		info.Mount.Dev,
		cleanField(info.Mount.FsTypeString(), "-"),
	)
	return err
}

// rotateExistingLog archives a leftover creds.log from a previous run,
// named after the timestamp of its first entry when one can be parsed
func rotateExistingLog(logDir string) {
	currentLogPath := filepath.Join(logDir, "creds.log")
	if _, err := os.Stat(currentLogPath); os.IsNotExist(err) {
		return
	}

	timestamp := extractTimestampFromLog(currentLogPath)
	if timestamp == "" {
		timestamp = time.Now().Format("2006-01-02-15-04-05")
	}

	archivedPath := filepath.Join(logDir, fmt.Sprintf("creds.%s.log", timestamp))
	os.Rename(currentLogPath, archivedPath)
}

func extractTimestampFromLog(logPath string) string {
	file, err := os.Open(logPath)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)

	// Skip header
	if !scanner.Scan() {
		return ""
	}

	// First event line carries the timestamp in its first field
	if !scanner.Scan() {
		return ""
	}

	parts := strings.Split(scanner.Text(), "|")
	if len(parts) < 1 {
		return ""
	}

	t, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02-15-04-05")
}
