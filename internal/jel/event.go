// Package jel parses the HTCondor job event log and aggregates per-cluster
// job state for the watcher, grounded on
// original_source/tms/watcher/watcher.py and
// original_source/tms/watcher/utils.py's ClusterInfo/JobInfoKey/JobInfoVal.
// HTCondor itself exposes the job event log to Python through the
// htcondor.JobEventLog C binding; Go has no equivalent in the example pack,
// so this package reads the log's plain-text wire format directly. The
// values of the raw "Attr: value" chirp pairs inside a GENERIC event's Info
// text are parsed with github.com/PelicanPlatform/classad/classad, the same
// ClassAd expression parser internal/condor already uses for submit
// descriptions and query results; "Key = Value" attribute lines are kept as
// raw text, and hold codes are read from them as plain integers.
package jel

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// EventType mirrors HTCondor's ULogEventNumber enum. Only the members the
// watcher's transition table or chirp/hold handling cares about are named;
// everything else parses into Other with its numeric code preserved.
type EventType int

const (
	Submit              EventType = 0
	Execute             EventType = 1
	ExecutableError     EventType = 2
	Checkpointed        EventType = 3
	JobEvicted          EventType = 4
	JobTerminated       EventType = 5
	ImageSize           EventType = 6
	ShadowException     EventType = 7
	Generic             EventType = 8
	JobAborted          EventType = 9
	JobSuspended        EventType = 10
	JobUnsuspended      EventType = 11
	JobHeld             EventType = 12
	JobReleased         EventType = 13
	JobReconnectFailed  EventType = 24
	ClusterSubmit       EventType = 35
	ClusterRemove       EventType = 36
)

// Event is one parsed block from the job event log.
type Event struct {
	Type      EventType
	Cluster   int
	Proc      int
	Subproc   int
	Timestamp time.Time
	// Info holds the free-text line that follows the header for events
	// that carry unstructured text, e.g. a GENERIC event's chirp payload.
	Info string
	// Attrs holds every "Key = Value" body line, value left as the raw
	// ClassAd expression text so callers parse only what they need.
	Attrs map[string]string
}

var headerRE = regexp.MustCompile(`^(\d{3}) \((\d+)\.(\d+)\.(\d+)\) (\d{2})/(\d{2}) (\d{2}):(\d{2}):(\d{2}) ?(.*)$`)

var attrRE = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*)$`)

// Reader walks the event blocks of a job event log file opened for reading.
// A block is a header line, zero or more indented "Key = Value" lines, and
// a terminating "..." line, exactly as condor_q's own tools parse it.
//
// The log is still being appended to by the schedd while the watcher reads
// it, so Reader cannot use a single long-lived bufio.Scanner over the open
// file: once the underlying Read returns io.EOF, Scanner latches that error
// permanently and every later Scan() call returns false without ever
// touching the file again, even after more bytes land past the current end.
// Reader instead tracks the byte offset of the last fully-consumed ("...")
// terminator and, on every Next() call, seeks back to it and reads forward
// from there with a fresh bufio.Reader, so newly appended bytes are always
// visible. The offset only advances past a block once that whole block --
// header through terminator -- has actually been read; a block that is only
// partially written is left completely unconsumed so the next call re-reads
// it from the same starting point instead of resuming mid-block from
// already-discarded lines.
type Reader struct {
	src    io.ReadSeeker
	year   int
	offset int64
}

// NewReader wraps src, which must support seeking back to re-read from a
// saved offset as the log grows. year is used to fill in the header line's
// "MM/DD" timestamp, which the log format never carries a year for; the
// watcher passes the JEL's own file-name year (see internal/jelpath), since
// a JEL never outlives the day it names.
func NewReader(src io.ReadSeeker, year int) *Reader {
	return &Reader{src: src, year: year}
}

// Next returns the next fully-formed event, or io.EOF once the log has no
// further complete ("...")-terminated block buffered.
func (r *Reader) Next() (Event, error) {
	if _, err := r.src.Seek(r.offset, io.SeekStart); err != nil {
		return Event{}, fmt.Errorf("jel: seeking to %d: %w", r.offset, err)
	}
	br := bufio.NewReader(r.src)
	var consumed int64

	var header string
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			// no complete header line buffered yet; leave r.offset alone so
			// the next call starts over from the same point.
			return Event{}, io.EOF
		}
		consumed += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		header = line
		break
	}

	m := headerRE.FindStringSubmatch(header)
	if m == nil {
		// skip past the one bad line so a permanently malformed header
		// doesn't wedge the reader, but this is not part of a block worth
		// retrying.
		r.offset += consumed
		return Event{}, fmt.Errorf("jel: unrecognized event header %q", header)
	}
	code, _ := strconv.Atoi(m[1])
	cluster, _ := strconv.Atoi(m[2])
	proc, _ := strconv.Atoi(m[3])
	subproc, _ := strconv.Atoi(m[4])
	month, _ := strconv.Atoi(m[5])
	day, _ := strconv.Atoi(m[6])
	hour, _ := strconv.Atoi(m[7])
	minute, _ := strconv.Atoi(m[8])
	second, _ := strconv.Atoi(m[9])

	ev := Event{
		Type:      EventType(code),
		Cluster:   cluster,
		Proc:      proc,
		Subproc:   subproc,
		Timestamp: time.Date(r.year, time.Month(month), day, hour, minute, second, 0, time.UTC),
		Info:      m[10],
		Attrs:     map[string]string{},
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			// block is only partially written; don't advance the offset,
			// so the whole block (including the header already parsed
			// above) is re-read from scratch once more has been appended.
			return Event{}, io.EOF
		}
		consumed += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if line == "..." {
			r.offset += consumed
			return ev, nil
		}
		if am := attrRE.FindStringSubmatch(line); am != nil {
			ev.Attrs[am[1]] = strings.TrimSpace(am[2])
			continue
		}
		// a continuation of the free-text description, e.g. a second
		// line of a hold reason or reconnect message.
		if ev.Info == "" {
			ev.Info = strings.TrimSpace(line)
		} else {
			ev.Info += " " + strings.TrimSpace(line)
		}
	}
}
