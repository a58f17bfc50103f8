package auth

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/desertthunder/amsctl/internal/shared"
)

var (
	curlHeader = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlCookie = regexp.MustCompile(`(?:-b|--cookie)\s+'([^']+)'|(?:-b|--cookie)\s+"([^"]+)"`)
)

// CurlSession is the session carried by a request copied from the browser as cURL.
type CurlSession struct {
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a saved cURL command from path.
func ParseCurlFile(path string) (*CurlSession, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}
	return ParseCurl(string(content))
}

// ParseCurl extracts headers and cookies from a cURL command. A -b/--cookie flag wins over a
// Cookie header.
func ParseCurl(command string) (*CurlSession, error) {
	command = strings.ReplaceAll(command, "\\\n", " ")

	s := &CurlSession{Headers: map[string]string{}}
	for _, m := range curlHeader.FindAllStringSubmatch(command, -1) {
		key, value, ok := strings.Cut(firstGroup(m), ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if strings.EqualFold(key, "cookie") {
			if s.Cookie == "" {
				s.Cookie = value
			}
			continue
		}
		s.Headers[key] = value
	}

	if m := curlCookie.FindStringSubmatch(command); m != nil {
		s.Cookie = firstGroup(m)
	}

	if len(s.Headers) == 0 && s.Cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", shared.ErrInvalidInput)
	}
	return s, nil
}

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// Header returns the value of the named header, matched case-insensitively.
func (s *CurlSession) Header(name string) string {
	for k, v := range s.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// AccessToken is the bearer credential of the Authorization header.
func (s *CurlSession) AccessToken() string {
	scheme, token, ok := strings.Cut(s.Header("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RefreshToken is the value of the refresh cookie.
func (s *CurlSession) RefreshToken() string {
	if s.Cookie == "" {
		return ""
	}
	cookies, err := http.ParseCookie(s.Cookie)
	if err != nil {
		return ""
	}
	for _, c := range cookies {
		if c.Name == RefreshCookie {
			return c.Value
		}
	}
	return ""
}

// Credentials converts the session with p. It fails when the request carried neither credential.
func (s *CurlSession) Credentials(p Policy, now time.Time) (Credentials, error) {
	creds := p.Issue(s.AccessToken(), s.RefreshToken(), now)
	if creds.Empty() {
		return Credentials{}, fmt.Errorf("%w: request carries no bearer token or %s cookie", shared.ErrInvalidInput, RefreshCookie)
	}
	return creds, nil
}
