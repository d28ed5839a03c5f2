package injection

import (
	"net/url"
	"strings"
)

// queryParamNames returns the distinct parameter names of rawQuery in the
// order they first appear. url.Values cannot be used: it loses that order.
func queryParamNames(rawQuery string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		name, err := url.QueryUnescape(key)
		if err != nil || name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// withParam returns u with the first occurrence of name set to value. Every
// other pair is left byte-for-byte as it was.
func withParam(u *url.URL, name, value string) string {
	pairs := strings.Split(u.RawQuery, "&")
	for i, pair := range pairs {
		key, _, _ := strings.Cut(pair, "=")
		decoded, err := url.QueryUnescape(key)
		if err != nil || decoded != name {
			continue
		}
		pairs[i] = key + "=" + url.QueryEscape(value)
		break
	}

	modified := *u
	modified.RawQuery = strings.Join(pairs, "&")
	return modified.String()
}
