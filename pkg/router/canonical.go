package router

import (
	"net/url"
	"strings"

	"github.com/vango-dev/navigare/internal/errors"
)

// canonicalPath normalizes a location pathname before matching:
//   - multiple slashes collapse (/users//2 -> /users/2)
//   - "." segments are dropped and ".." segments resolved
//   - a trailing slash is removed, except for root
//
// Backslashes, NUL bytes, malformed percent escapes and ".." above root
// are rejected with N002.
func canonicalPath(path string) (string, error) {
	if path == "" {
		return "/", nil
	}
	if strings.Contains(path, "\\") {
		return "", errors.New("N002").WithDetail("path contains backslash: " + path)
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return "", errors.New("N002").WithDetail("path contains NUL byte")
	}
	if strings.Contains(path, "%") {
		if err := checkEscapes(path); err != nil {
			return "", err
		}
	}

	var out []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(out) == 0 {
				return "", errors.New("N002").WithDetail("path escapes root: " + path)
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}
	return "/" + strings.Join(out, "/"), nil
}

func checkEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHex(path[i+1]) || !isHex(path[i+2]) {
			return errors.New("N002").WithDetail("invalid percent escape in " + path)
		}
		i += 2
	}
	return nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// decodeSegment unescapes one path segment. A parameter segment that
// decodes to something containing "/" is refused, so %2F cannot smuggle
// extra segments into a single parameter.
func decodeSegment(seg string) (string, bool) {
	v, err := url.PathUnescape(seg)
	if err != nil || strings.Contains(v, "/") {
		return "", false
	}
	return v, true
}
