// Package fingerprint derives stable identity keys for job postings.
//
// Everything here is a frozen contract: changing Normalize, CanonicalURL or
// the key layouts changes the fingerprint of every stored posting, and the
// store would stop recognising postings it has already seen.
package fingerprint

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// separatorRun matches runs of en-dash, em-dash, slash, colon and pipe.
var separatorRun = regexp.MustCompile(`[\x{2013}\x{2014}/:|]+`)

// Normalize canonicalizes free text for comparison and hashing: lower-case,
// trimmed, separator runs replaced by one space, whitespace runs collapsed.
// The result is not trimmed again after replacement.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.TrimSpace(strings.ToLower(s))
	s = separatorRun.ReplaceAllString(s, " ")
	return collapseSpace(s)
}

func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		b.WriteRune(r)
		inSpace = false
	}
	return b.String()
}

// CanonicalURL reduces a posting URL to scheme, lower-cased host and path,
// with one trailing slash removed. Query and fragment are dropped, so
// tracking parameters never affect identity.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		// Unparseable: cut query and fragment by hand.
		if i := strings.IndexAny(raw, "?#"); i >= 0 {
			raw = raw[:i]
		}
		return strings.TrimSuffix(raw, "/")
	}

	path := strings.TrimSuffix(u.EscapedPath(), "/")
	host := strings.ToLower(u.Host)

	switch {
	case host != "":
		return u.Scheme + "://" + host + path
	case u.Scheme != "":
		// Opaque URLs such as "mailto:jobs@acme.io" have no host or path.
		if u.Opaque != "" {
			return u.Scheme + ":" + u.Opaque
		}
		return u.Scheme + ":" + path
	default:
		return path
	}
}
