// Package jelpath centralizes the two pieces of path logic spec.md calls
// out as shared, non-obvious utilities: how a JEL's filename is generated
// and recognized, and how a taskforce's working directory is named. Both
// Starter and the watcher supervisor need to agree on these without
// importing each other.
package jelpath

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Suffix marks a file in JobEventLogDir as a TMS-owned job event log.
const Suffix = ".tms.jel"

// TaskforceDirPrefix names a taskforce's working directory under
// JobEventLogDir.
const TaskforceDirPrefix = "ewms-taskforce-"

// NewJELName returns the JEL filename (with Suffix) for now's date, encoding it
// as "YYYY-M-D" (not zero-padded) per spec.md's glossary.
func NewJELName(now time.Time) string {
	y, m, d := now.Date()
	return fmt.Sprintf("%d-%d-%d%s", y, int(m), d, Suffix)
}

// NewJELPath joins the configured JEL directory with today's JEL filename.
func NewJELPath(dir string, now time.Time) string {
	return filepath.Join(dir, NewJELName(now))
}

// IsJEL reports whether path is a regular file directly inside dir whose
// name carries the JEL suffix -- the naming policy the watcher supervisor
// uses to discover files to watch.
func IsJEL(dir, path string) bool {
	if filepath.Dir(path) != filepath.Clean(dir) {
		return false
	}
	if !strings.HasSuffix(path, Suffix) {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

var nameRE = regexp.MustCompile(`^(\d+)-(\d+)-(\d+)` + regexp.QuoteMeta(Suffix) + `$`)

// ParseYear extracts the creation year encoded in a JEL's filename, for
// callers (the watcher) that need to interpret the year-less timestamps a
// job event log's own event lines carry.
func ParseYear(path string) (int, bool) {
	m := nameRE.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return y, true
}

// TaskforceDir returns the path of a taskforce's working directory under
// dir, prefixed per TaskforceDirPrefix. It does not create the directory.
func TaskforceDir(dir, taskforceUUID string) string {
	return filepath.Join(dir, TaskforceDirPrefix+taskforceUUID)
}
