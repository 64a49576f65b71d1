package mtg

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownFormat = errors.New("unknown tournament format")

// Format is a constructed tournament format as stored ("modern", "legacy", ...).
type Format string

const (
	FORMAT_VINTAGE   Format = "vintage"
	FORMAT_LEGACY    Format = "legacy"
	FORMAT_MODERN    Format = "modern"
	FORMAT_STANDARD  Format = "standard"
	FORMAT_COMMANDER Format = "commander"
)

// formatCodes are the codes mtgtop8 uses in its urls, in the order harvests fan out.
var formatCodes = []struct {
	code   string
	format Format
}{
	{"VI", FORMAT_VINTAGE},
	{"LE", FORMAT_LEGACY},
	{"MO", FORMAT_MODERN},
	{"ST", FORMAT_STANDARD},
	{"EDH", FORMAT_COMMANDER},
}

// FormatCodes returns every known format code.
func FormatCodes() []string {
	out := make([]string, len(formatCodes))
	for i, f := range formatCodes {
		out[i] = f.code
	}
	return out
}

// FormatFromCode maps a code like "MO" to its Format.
func FormatFromCode(code string) (Format, error) {
	for _, f := range formatCodes {
		if f.code == code {
			return f.format, nil
		}
	}
	return "", fmt.Errorf("%w: %q (must be %s)", ErrUnknownFormat, code, strings.Join(FormatCodes(), "|"))
}

// FormatCodeFromName maps a display name like "Modern" to its code.
func FormatCodeFromName(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, f := range formatCodes {
		if string(f.format) == name {
			return f.code, true
		}
	}
	return "", false
}

// Code returns the mtgtop8 code of the format.
func (f Format) Code() string {
	for _, fc := range formatCodes {
		if fc.format == f {
			return fc.code
		}
	}
	return ""
}
