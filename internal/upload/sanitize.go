package upload

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const placeholderName = "file"

// Sanitize makes name safe for use as a storage object name. Accents are folded, anything
// outside [A-Za-z0-9_.-] becomes an underscore, each run of separators collapses to one and
// separators are trimmed from both ends. The extension survives when it is clean.
// Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		name = ""
	}

	ext := filepath.Ext(name)
	base := clean(strings.TrimSuffix(name, ext))
	if base == "" {
		base = placeholderName
	}

	if ext = clean(strings.TrimPrefix(ext, ".")); ext != "" {
		return base + "." + ext
	}
	return base
}

// BlobName is the unique object name for an upload of name: the sanitized prefix, the upload
// time in unix milliseconds and the sanitized file name, joined by dashes.
func BlobName(prefix, name string, now time.Time) string {
	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	if p := clean(prefix); p != "" {
		return p + "-" + stamp + "-" + Sanitize(name)
	}
	return stamp + "-" + Sanitize(name)
}

func clean(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	var run []rune
	flush := func() {
		if len(run) > 0 {
			b.WriteRune(collapse(run))
			run = run[:0]
		}
	}
	for _, r := range s {
		if !allowed(r) {
			r = '_'
		}
		if separator(r) {
			run = append(run, r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return strings.Trim(b.String(), "_.-")
}

// collapse reduces a separator run to one rune: the run's own rune when uniform, else '_'.
func collapse(run []rune) rune {
	for _, r := range run[1:] {
		if r != run[0] {
			return '_'
		}
	}
	return run[0]
}

func separator(r rune) bool { return r == '_' || r == '.' || r == '-' }

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '.', r == '-':
		return true
	default:
		return false
	}
}
