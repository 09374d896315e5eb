package online

import (
	"net/url"
	"regexp"
	"strings"
)

// Allowlist decides which hosts online evidence may come from. Patterns are
// host names where * matches any run of characters; a pattern matches the
// host itself or any subdomain of it.
type Allowlist struct {
	patterns []*regexp.Regexp
}

// ParseAllowlist parses a comma-separated pattern list such as
// "reuters.com,sec.gov,investor.*". An empty list allows every host.
func ParseAllowlist(list string) *Allowlist {
	a := &Allowlist{}
	for _, p := range strings.Split(list, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		p = strings.TrimPrefix(p, "*.")
		p = strings.TrimPrefix(p, ".")
		if p == "" {
			continue
		}
		expr := strings.ReplaceAll(regexp.QuoteMeta(p), `\*`, `.*`)
		a.patterns = append(a.patterns, regexp.MustCompile(`^(?:.*\.)?`+expr+`$`))
	}
	return a
}

func (a *Allowlist) Empty() bool {
	return len(a.patterns) == 0
}

// Allows reports whether the host of rawURL matches a pattern. URLs without
// a host never match.
func (a *Allowlist) Allows(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	if a.Empty() {
		return true
	}
	for _, re := range a.patterns {
		if re.MatchString(host) {
			return true
		}
	}
	return false
}
