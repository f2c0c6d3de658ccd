package session

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Cookie is a single stored cookie record.
type Cookie struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	Domain    string    `json:"domain"`
	Path      string    `json:"path"`
	Expires   time.Time `json:"expires,omitempty"`
	Secure    bool      `json:"secure,omitempty"`
	HTTPOnly  bool      `json:"httpOnly,omitempty"`
	SameSite  string    `json:"sameSite,omitempty"`
	Source    string    `json:"source,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// expired reports whether the cookie has passed its expiry. Session
// cookies (zero Expires) never expire.
func (c *Cookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && now.After(c.Expires)
}

// normalizeDomain lowercases a cookie domain and strips the leading dot
// so the jar is keyed consistently.
func normalizeDomain(domain string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), ".")
}

// domainsMatch reports whether a cookie registered for cookieDomain
// applies to a request against host. Parent and child domains match in
// either registration direction, with a dot boundary so "example.com"
// never matches "notexample.com".
func domainsMatch(cookieDomain, host string) bool {
	cookieDomain = normalizeDomain(cookieDomain)
	host = normalizeDomain(host)
	if cookieDomain == "" || host == "" {
		return false
	}
	if cookieDomain == host {
		return true
	}
	if strings.HasSuffix(host, "."+cookieDomain) {
		return true
	}
	return strings.HasSuffix(cookieDomain, "."+host)
}

// pathMatches reports whether the request path falls under the cookie path.
func pathMatches(cookiePath, reqPath string) bool {
	if cookiePath == "" {
		cookiePath = "/"
	}
	if reqPath == "" {
		reqPath = "/"
	}
	return strings.HasPrefix(reqPath, cookiePath)
}

// parseSetCookie parses one Set-Cookie header value. The first segment is
// name=value; remaining attributes are case-insensitive. An unparsable
// Expires date is dropped rather than rejecting the cookie; Max-Age takes
// precedence over Expires. Returns false when the header carries no
// usable name=value pair, no domain can be established for the cookie,
// or the Domain attribute names a bare public suffix for a foreign host.
func parseSetCookie(header string, reqURL *url.URL, now time.Time) (Cookie, bool) {
	segments := strings.Split(header, ";")
	nameValue := strings.TrimSpace(segments[0])
	eq := strings.Index(nameValue, "=")
	if eq <= 0 {
		return Cookie{}, false
	}

	host := ""
	if reqURL != nil {
		host = strings.ToLower(reqURL.Hostname())
	}

	c := Cookie{
		Name:      nameValue[:eq],
		Value:     nameValue[eq+1:],
		Domain:    host,
		Path:      "/",
		UpdatedAt: now,
	}

	var maxAgeSet bool
	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		key, val := seg, ""
		if i := strings.Index(seg, "="); i >= 0 {
			key, val = seg[:i], strings.TrimSpace(seg[i+1:])
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "domain":
			if d := normalizeDomain(val); d != "" {
				c.Domain = d
			}
		case "path":
			if val != "" {
				c.Path = val
			}
		case "expires":
			if maxAgeSet {
				continue
			}
			if t, err := http.ParseTime(val); err == nil {
				c.Expires = t
			}
		case "max-age":
			if secs, err := strconv.Atoi(val); err == nil {
				c.Expires = now.Add(time.Duration(secs) * time.Second)
				maxAgeSet = true
			}
		case "samesite":
			c.SameSite = val
		case "secure":
			c.Secure = true
		case "httponly":
			c.HTTPOnly = true
		}
	}

	// Without a Domain attribute or a request host there is no domain to
	// key the cookie under.
	if c.Domain == "" {
		return Cookie{}, false
	}

	// A Domain attribute naming a bare public suffix ("com", "co.uk") is
	// only honored when the request host is that suffix itself.
	if c.Domain != host {
		if suffix, _ := publicsuffix.PublicSuffix(c.Domain); suffix == c.Domain {
			return Cookie{}, false
		}
	}

	return c, true
}
