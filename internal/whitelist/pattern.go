// Package whitelist compiles URL patterns of the form
// scheme://host[:port][/path] and answers whether a URL is covered by them.
package whitelist

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
)

// ErrInvalidPattern is returned for patterns that cannot be compiled.
var ErrInvalidPattern = errors.New("invalid whitelist pattern")

var defaultPorts = map[string]int{
	"http":  80,
	"https": 443,
	"ws":    80,
	"wss":   443,
	"ftp":   21,
}

// Pattern is a compiled whitelist entry. A nil matcher or a zero port means
// the component matches anything.
type Pattern struct {
	source string
	scheme string
	host   glob.Glob
	port   int
	path   glob.Glob
}

func (p *Pattern) String() string { return p.source }

// Compile parses a single textual pattern. A pattern without a scheme
// expands to an http and an https pattern. The literal "*" is handled by
// List and is rejected here.
func Compile(raw string) ([]*Pattern, error) {
	src := strings.TrimSpace(raw)
	if src == "" || src == "*" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, raw)
	}

	scheme, rest := splitScheme(src)

	hostport, path := rest, ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		hostport, path = rest[:i], rest[i:]
	}
	host, portStr, err := splitHostPort(hostport)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, raw, err)
	}

	base := Pattern{source: src}
	if base.host, err = compileHost(host); err != nil {
		return nil, fmt.Errorf("%w: host of %q: %v", ErrInvalidPattern, raw, err)
	}
	if portStr != "" && portStr != "*" {
		base.port, err = strconv.Atoi(portStr)
		if err != nil || base.port <= 0 || base.port > 65535 {
			return nil, fmt.Errorf("%w: port of %q", ErrInvalidPattern, raw)
		}
	}
	if base.path, err = compilePath(path); err != nil {
		return nil, fmt.Errorf("%w: path of %q: %v", ErrInvalidPattern, raw, err)
	}

	if scheme == "" {
		httpP, httpsP := base, base
		httpP.scheme, httpsP.scheme = "http", "https"
		return []*Pattern{&httpP, &httpsP}, nil
	}
	if scheme != "*" {
		base.scheme = strings.ToLower(scheme)
	}
	return []*Pattern{&base}, nil
}

// splitScheme separates "scheme://rest" and opaque "scheme:rest" forms. A
// colon followed by a digit is treated as a port separator.
func splitScheme(s string) (scheme, rest string) {
	if i := strings.Index(s, "://"); i > 0 {
		return s[:i], s[i+3:]
	}
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return "", s
	}
	for _, r := range s[:i] {
		if !(r == '*' || r == '-' || r == '+' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return "", s
		}
	}
	if i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
		return "", s
	}
	return s[:i], s[i+1:]
}

// splitHostPort separates an optional port. Bracketed IPv6 literals lose
// their brackets, matching url.URL.Hostname.
func splitHostPort(hostport string) (host, port string, err error) {
	if strings.HasPrefix(hostport, "[") {
		end := strings.IndexByte(hostport, ']')
		if end < 0 {
			return "", "", errors.New("unterminated IPv6 literal")
		}
		ip, rest := hostport[1:end], hostport[end+1:]
		switch {
		case rest == "":
			return ip, "", nil
		case rest[0] == ':':
			return ip, rest[1:], nil
		}
		return "", "", errors.New("unexpected text after IPv6 literal")
	}
	if i := strings.LastIndexByte(hostport, ':'); i >= 0 {
		return hostport[:i], hostport[i+1:], nil
	}
	return hostport, "", nil
}

func compileHost(host string) (glob.Glob, error) {
	host = strings.ToLower(host)
	if host == "" || host == "*" {
		return nil, nil
	}
	if strings.HasPrefix(host, "*.") {
		domain := glob.QuoteMeta(host[2:])
		return glob.Compile("{" + domain + ",*." + domain + "}")
	}
	return glob.Compile(glob.QuoteMeta(host))
}

// compilePath turns each '*' into a single-character wildcard and matches
// the result as a prefix of the URL path.
func compilePath(path string) (glob.Glob, error) {
	if path == "" || path == "/*" {
		return nil, nil
	}
	var b strings.Builder
	for _, r := range path {
		if r == '*' {
			b.WriteByte('?')
			continue
		}
		b.WriteString(glob.QuoteMeta(string(r)))
	}
	b.WriteByte('*')
	return glob.Compile(b.String())
}

// Matches reports whether every compiled component accepts u.
func (p *Pattern) Matches(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	if p.scheme != "" && p.scheme != scheme {
		return false
	}
	if p.host != nil && !p.host.Match(strings.ToLower(u.Hostname())) {
		return false
	}
	if p.port != 0 {
		port := defaultPorts[scheme]
		if s := u.Port(); s != "" {
			port, _ = strconv.Atoi(s)
		}
		if port != p.port {
			return false
		}
	}
	if p.path != nil && !p.path.Match(requestPath(u)) {
		return false
	}
	return true
}

func requestPath(u *url.URL) string {
	path := u.EscapedPath()
	if u.Opaque != "" {
		path = u.Opaque
	}
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}
