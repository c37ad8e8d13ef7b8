// Package models defines the domain types for pfnbot.
package models

import (
	"path"
	"path/filepath"

	"github.com/starford/pfnbot/internal/checksum"
)

// Finding is a single detected observation: one captured image that matched
// the naming convention and was recorded in the cache.
type Finding struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Date string `json:"date"`
	Time string `json:"time"`
	Ref  string `json:"ref"`
}

// NewFinding builds a Finding for p. p is normalised to forward slashes
// before the name and ref are derived.
func NewFinding(p string) Finding {
	p = filepath.ToSlash(p)
	name := path.Base(p)
	date, tod := DateTime(name)
	return Finding{
		Name: name,
		Path: p,
		Date: date,
		Time: tod,
		Ref:  checksum.Ref(p),
	}
}

// DateTime extracts the capture date (YYYY-MM-DD) and time of day (HH:MM:SS)
// from fixed offsets of a capture file name such as P20230615_223045_P.bmp.
//
// Names that do not follow the layout produce garbled fields, not an error.
func DateTime(name string) (date, tod string) {
	date = span(name, 1, 5) + "-" + span(name, 5, 7) + "-" + span(name, 7, 9)
	tod = span(name, 10, 12) + ":" + span(name, 12, 14) + ":" + span(name, 14, 16)
	return date, tod
}

// span returns s[i:j] clamped to the bounds of s.
func span(s string, i, j int) string {
	if j > len(s) {
		j = len(s)
	}
	if i > j {
		return ""
	}
	return s[i:j]
}
