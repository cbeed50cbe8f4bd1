package util

import (
	"net/url"
	"regexp"
	"strings"
)

var jobAdvertRe = regexp.MustCompile(`/jobadvert/([^/?#]+)`)

// IdentityKeyFromURL returns the stable advert id from a listing href, or "".
func IdentityKeyFromURL(href string) string {
	m := jobAdvertRe.FindStringSubmatch(strings.TrimSpace(href))
	if m == nil {
		return ""
	}
	return m[1]
}

// AbsoluteURL resolves a possibly relative href against base and drops tracking noise.
func AbsoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if !ref.IsAbs() {
		b, err := url.Parse(base)
		if err != nil || b.Host == "" {
			return href
		}
		ref = b.ResolveReference(ref)
	}
	return canonicalizeURL(ref)
}

func canonicalizeURL(u *url.URL) string {
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") ||
			lk == "gclid" || lk == "fbclid" || lk == "msclkid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
