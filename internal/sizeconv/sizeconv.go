// Package sizeconv parses and re-formats the human-readable byte-size
// strings (or raw integers) that pilot/worker configuration carries for
// disk and memory, using github.com/docker/go-units. docker/go-units'
// RAMInBytes treats "k"/"m"/"g" suffixes as binary (1024) multiples
// whether or not an "i" is present, matching HTCondor's own convention of
// accepting either spelling but always meaning binary; BytesSize renders
// back using IEC suffixes ("GiB"), which this package then strips the "i"
// from and re-spaces to match the scheduler's submit-description
// convention spec.md's Design Notes give for "Size parsing and
// normalisation": "1 GB" for 2^30 bytes.
package sizeconv

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/docker/go-units"
)

// ParseBytes accepts an integer byte count (as a raw int64-parseable
// string) or a human-readable size string ("1 GB", "512MiB", "2g") and
// returns the number of bytes.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	// go-units' parser does not accept a space between the magnitude and
	// the unit; the scheduler's own convention (and spec examples) do.
	compact := strings.ReplaceAll(s, " ", "")
	n, err := units.RAMInBytes(compact)
	if err != nil {
		return 0, fmt.Errorf("could not parse size %q: %w", s, err)
	}
	return n, nil
}

var magnitudeAndUnit = regexp.MustCompile(`^([0-9.]+)([A-Za-z]+)$`)

// FormatDecimal renders a byte count the way the scheduler's submit
// description expects: binary magnitude, decimal-looking unit label,
// magnitude and unit separated by a space (2^30 bytes becomes "1 GB",
// not go-units' own "1GiB").
func FormatDecimal(n int64) string {
	raw := strings.ReplaceAll(units.BytesSize(float64(n)), "i", "")
	if m := magnitudeAndUnit.FindStringSubmatch(raw); m != nil {
		return m[1] + " " + m[2]
	}
	return raw
}

// NormalizeSize parses then re-formats a size, the round trip Starter
// performs on worker disk/memory before handing it to the scheduler.
func NormalizeSize(s string) (string, error) {
	n, err := ParseBytes(s)
	if err != nil {
		return "", err
	}
	return FormatDecimal(n), nil
}
