package config

import (
	"log/slog"

	"gopkg.in/ini.v1"
)

// Version is the API version reported by the query root.
type Version struct {
	Major string `json:"major"`
	Minor string `json:"minor"`
	Patch string `json:"patch"`
}

// DefaultVersion is served when the version file is absent or unreadable.
var DefaultVersion = Version{Major: "0", Minor: "1", Patch: "0-beta"}

// ReadVersion reads the [version] section of path. Any failure falls back
// to DefaultVersion; missing keys keep their default individually.
func ReadVersion(path string) Version {
	v := DefaultVersion
	if path == "" {
		return v
	}

	f, err := ini.Load(path)
	if err != nil {
		slog.Debug("Version file unavailable, using defaults", "path", path, "error", err)
		return v
	}

	sec, err := f.GetSection("version")
	if err != nil {
		return v
	}
	if key := sec.Key("major").String(); key != "" {
		v.Major = key
	}
	if key := sec.Key("minor").String(); key != "" {
		v.Minor = key
	}
	if key := sec.Key("patch").String(); key != "" {
		v.Patch = key
	}
	return v
}
