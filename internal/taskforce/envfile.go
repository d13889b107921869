package taskforce

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EnvFileName is the fixed filename written into each taskforce directory,
// matching original_source/tms/scalar/starter.py's write_envfile.
const EnvFileName = "ewms_htcondor_envfile.sh"

// WriteEnvFile renders env as a shell script of sorted `export KEY=value`
// lines (list values joined with ";"), matching
// original_source/tms/scalar/starter.py's write_envfile, and writes it into
// dir with executable permissions so HTCondor can transfer and source it.
// It returns the file's path.
func WriteEnvFile(dir string, env map[string]any) (string, error) {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("#!/bin/bash\n\n")
	b.WriteString("# Environment setup for HTCondor worker\n")
	b.WriteString("# This file is auto-generated and sets necessary environment variables.\n")
	b.WriteString("# Sourced automatically by the EWMS Pilot's container entrypoint.\n\n")
	b.WriteString("set -x\n")
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("export %s=%s\n", k, shellQuote(stringifyEnvValue(env[k]))))
	}
	b.WriteString("set +x\n")
	b.WriteString("\n# End of environment file\n")

	path := filepath.Join(dir, EnvFileName)
	if err := os.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func stringifyEnvValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, ";")
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = fmt.Sprintf("%v", e)
		}
		return strings.Join(parts, ";")
	case bool:
		if val {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// shellQuote wraps a value in single quotes, escaping any embedded single
// quote the POSIX-portable way, so export lines survive values containing
// spaces or shell metacharacters. Embedded newlines are flattened to spaces
// first, since an export statement cannot span lines.
func shellQuote(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
