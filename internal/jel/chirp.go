package jel

import (
	"strconv"
	"strings"

	"github.com/PelicanPlatform/classad/classad"
)

// ChirpAttr is the closed set of HTChirpEWMSPilot* attributes the pilot may
// report over chirp, grounded on
// original_source/tms/watcher/utils.py's JobInfoKey enum.
type ChirpAttr string

const (
	ChirpStatus               ChirpAttr = "HTChirpEWMSPilotStatus"
	ChirpStartedTimestamp     ChirpAttr = "HTChirpEWMSPilotStartedTimestamp"
	ChirpLastUpdatedTimestamp ChirpAttr = "HTChirpEWMSPilotLastUpdatedTimestamp"
	ChirpTasksTotal           ChirpAttr = "HTChirpEWMSPilotTasksTotal"
	ChirpTasksFailed          ChirpAttr = "HTChirpEWMSPilotTasksFailed"
	ChirpTasksSuccess         ChirpAttr = "HTChirpEWMSPilotTasksSuccess"
	ChirpError                ChirpAttr = "HTChirpEWMSPilotError"
	ChirpErrorTraceback       ChirpAttr = "HTChirpEWMSPilotErrorTraceback"
)

var knownChirpAttrs = map[string]ChirpAttr{
	string(ChirpStatus): ChirpStatus, string(ChirpStartedTimestamp): ChirpStartedTimestamp,
	string(ChirpLastUpdatedTimestamp): ChirpLastUpdatedTimestamp, string(ChirpTasksTotal): ChirpTasksTotal,
	string(ChirpTasksFailed): ChirpTasksFailed, string(ChirpTasksSuccess): ChirpTasksSuccess,
	string(ChirpError): ChirpError, string(ChirpErrorTraceback): ChirpErrorTraceback,
}

const chirpPrefix = "HTChirpEWMSPilot"

// ParseChirp splits a GENERIC event's Info text ("Attr: value") into a
// known ChirpAttr and its unquoted value. ok is false for any Info text
// that isn't a chirp line at all, or names an attribute outside the closed
// enum above -- both are treated as no-update by the caller, exactly as
// original_source/tms/watcher/utils.py's _get_ewms_pilot_chirp_value does
// for unrecognized attributes.
func ParseChirp(info string) (attr ChirpAttr, value string, ok bool) {
	if !strings.HasPrefix(info, chirpPrefix) {
		return "", "", false
	}
	name, rawValue, found := strings.Cut(info, ":")
	if !found {
		return "", "", false
	}
	attr, known := knownChirpAttrs[strings.TrimSpace(name)]
	if !known {
		return "", "", false
	}
	return attr, unquoteClassAdValue(strings.TrimSpace(rawValue)), true
}

// unquoteClassAdValue tries to parse v as a ClassAd literal and, if it's a
// quoted string, returns the unquoted text; anything that doesn't parse as
// a ClassAd expression (or doesn't evaluate to a string) is returned as-is,
// matching the original's try/except around classad.unquote.
func unquoteClassAdValue(v string) string {
	expr, err := classad.ParseExpr(v)
	if err != nil {
		return v
	}
	ad := classad.New()
	ad.InsertExpr("v", expr)
	if s, ok := ad.EvaluateAttrString("v"); ok {
		return s
	}
	return v
}

// parseIntAttr is a small helper for reading numeric ClassAd attribute
// values (HoldReasonCode, HoldReasonSubCode) out of an Event's raw Attrs
// map, defaulting to 0 the way the watcher's job_event.get(key, 0) does.
func parseIntAttr(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return def
}
