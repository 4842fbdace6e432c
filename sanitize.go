// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gamearchive

// ValidateName checks a proposed entry name against the common rules
// every strategy enforces before any on-disk mutation: non-empty, ASCII,
// no control characters, no path separators (this engine has no
// directory tree outside the few formats with nested-archive folders,
// and those use OpenFolder rather than slash-separated names).
func ValidateName(name string) error {
	if name == "" {
		return &InvalidNameError{Msg: "name is empty"}
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 0x80:
			return &InvalidNameError{Msg: "name must be ASCII"}
		case c < 0x20:
			return &InvalidNameError{Msg: "name contains a control character"}
		case c == '/' || c == '\\':
			return &InvalidNameError{Msg: "name contains a path separator"}
		}
	}
	return nil
}

// IsASCIIPrintable reports whether s contains only printable ASCII bytes,
// for signature checks that want to reject binary garbage masquerading as
// a filename field. The bundled strategies' probes do their own byte-range
// checks and do not call it.
func IsASCIIPrintable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] >= 0x7f {
			return false
		}
	}
	return true
}
