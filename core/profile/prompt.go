package profile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	hostsPrompt    = "Enter hosts (list): "
	usernamePrompt = "Enter username (str): "
	passwordPrompt = "Enter password (str): "
)

var (
	hostnamePattern = regexp.MustCompile(`^[A-Za-z0-9_]([A-Za-z0-9_-]{0,61}[A-Za-z0-9_])?(\.[A-Za-z0-9_]([A-Za-z0-9_-]{0,61}[A-Za-z0-9_])?)*$`)
	urlPathPattern  = regexp.MustCompile(`^[A-Za-z0-9/_.\-]*$`)
)

// Prompt collects a profile from an interactive session. The host list is
// read with ParseHostList; it is never evaluated.
func Prompt(in io.Reader, out io.Writer) (Profile, error) {
	r := bufio.NewReader(in)

	line, err := promptLine(r, out, hostsPrompt, "hosts")
	if err != nil {
		return Profile{}, err
	}
	hosts, err := ParseHostList(line)
	if err != nil {
		return Profile{}, err
	}

	username, err := promptLine(r, out, usernamePrompt, "username")
	if err != nil {
		return Profile{}, err
	}
	password, err := promptLine(r, out, passwordPrompt, "password")
	if err != nil {
		return Profile{}, err
	}

	return Profile{
		Hosts:    hosts,
		Username: username,
		Password: password,
	}, nil
}

func promptLine(r *bufio.Reader, out io.Writer, label, field string) (string, error) {
	if _, err := io.WriteString(out, label); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}

	line, err := r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read %s: %w", field, err)
		}
		if line == "" {
			return "", ParseError{Reason: "unexpected end of input reading " + field}
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ParseHostList parses a comma separated list of endpoints, optionally
// wrapped in brackets, where each item may be single or double quoted:
//
//	["https://es-1:9200", "https://es-2:9200"]
//	es-1:9200, es-2:9200
//
// Every item must be an http(s) URL or a host[:port] pair.
func ParseHostList(input string) ([]string, error) {
	s := strings.TrimSpace(input)
	switch {
	case strings.HasPrefix(s, "["):
		if !strings.HasSuffix(s, "]") {
			return nil, ParseError{Input: input, Reason: "unterminated list"}
		}
		s = strings.TrimSpace(s[1 : len(s)-1])
	case strings.HasSuffix(s, "]"):
		return nil, ParseError{Input: input, Reason: "unexpected ']'"}
	}
	if s == "" {
		return nil, ParseError{Input: input, Reason: "empty host list"}
	}

	var hosts []string
	for pos := 0; pos < len(s); {
		item, next, err := scanItem(s, pos)
		if err != nil {
			return nil, ParseError{Input: input, Reason: err.Error()}
		}
		if err := validateEndpoint(item); err != nil {
			return nil, ParseError{Input: input, Reason: fmt.Sprintf("host %q: %s", item, err)}
		}
		hosts = append(hosts, item)

		pos = skipSpace(s, next)
		if pos == len(s) {
			break
		}
		if s[pos] != ',' {
			return nil, ParseError{Input: input, Reason: fmt.Sprintf("expected ',' at offset %d", pos)}
		}
		// a single trailing comma is tolerated
		pos = skipSpace(s, pos+1)
	}
	return hosts, nil
}

// scanItem reads one item starting at pos and returns it together with the
// offset just past it.
func scanItem(s string, pos int) (string, int, error) {
	pos = skipSpace(s, pos)
	if pos == len(s) {
		return "", pos, errors.New("empty item")
	}

	if q := s[pos]; q == '"' || q == '\'' {
		end := strings.IndexByte(s[pos+1:], q)
		if end < 0 {
			return "", pos, fmt.Errorf("unterminated quote at offset %d", pos)
		}
		return s[pos+1 : pos+1+end], pos + end + 2, nil
	}

	end := strings.IndexByte(s[pos:], ',')
	if end < 0 {
		end = len(s) - pos
	}
	item := strings.TrimSpace(s[pos : pos+end])
	if item == "" {
		return "", pos, fmt.Errorf("empty item at offset %d", pos)
	}
	return item, pos + end, nil
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t') {
		pos++
	}
	return pos
}

func validateEndpoint(item string) error {
	if !strings.Contains(item, "://") {
		return validateHostPort(item)
	}

	u, err := url.Parse(item)
	if err != nil {
		return errors.New("not a valid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.User != nil {
		return errors.New("credentials belong in the profile, not the host")
	}
	if u.RawQuery != "" || u.Fragment != "" || u.Opaque != "" {
		return errors.New("query and fragment are not allowed")
	}
	if !urlPathPattern.MatchString(u.Path) {
		return errors.New("invalid path")
	}
	return validateHostPort(u.Host)
}

func validateHostPort(hostport string) error {
	host, port := hostport, ""
	switch {
	case strings.HasPrefix(hostport, "[") && strings.HasSuffix(hostport, "]"):
		host = hostport[1 : len(hostport)-1]
		if ip := net.ParseIP(host); ip == nil || !strings.Contains(host, ":") {
			return errors.New("invalid IPv6 address")
		}
		return nil
	case strings.Contains(hostport, ":"):
		h, p, err := net.SplitHostPort(hostport)
		if err != nil {
			return errors.New("invalid host:port")
		}
		if p == "" {
			return errors.New("empty port")
		}
		host, port = h, p
	}

	if host == "" {
		return errors.New("empty host")
	}
	if net.ParseIP(host) == nil && !hostnamePattern.MatchString(host) {
		return errors.New("invalid host name")
	}
	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 || strings.TrimLeft(port, "0123456789") != "" {
			return errors.New("invalid port")
		}
	}
	return nil
}
