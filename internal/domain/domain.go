package domain

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"text/tabwriter"

	"golang.org/x/net/idna"
)

const (
	maxNameLen  = 253
	maxLabelLen = 63
)

// Normalize turns user input into the ASCII form of a registrable domain
// name, e.g. "https://Ékezet.HU/" becomes "xn--kezet-9ra.hu". It accepts
// pasted URLs and host:port values.
func Normalize(input string) (string, error) {
	s := strings.TrimSpace(input)
	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			s = u.Host
		}
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if host, port, err := net.SplitHostPort(s); err == nil && port != "" {
		s = host
	}
	s = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), "."))
	if s == "" {
		return "", fmt.Errorf("empty domain name")
	}

	ascii, err := idna.Registration.ToASCII(s)
	if err != nil {
		return "", fmt.Errorf("invalid domain name %q: %w", input, err)
	}
	if err := validate(ascii); err != nil {
		return "", fmt.Errorf("invalid domain name %q: %w", input, err)
	}
	return ascii, nil
}

func validate(name string) error {
	if len(name) > maxNameLen {
		return fmt.Errorf("longer than %d characters", maxNameLen)
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return fmt.Errorf("missing top-level domain")
	}
	for _, l := range labels {
		switch {
		case l == "":
			return fmt.Errorf("empty label")
		case len(l) > maxLabelLen:
			return fmt.Errorf("label %q longer than %d characters", l, maxLabelLen)
		case l[0] == '-' || l[len(l)-1] == '-':
			return fmt.Errorf("label %q starts or ends with a hyphen", l)
		}
		for i := 0; i < len(l); i++ {
			c := l[i]
			if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
				return fmt.Errorf("label %q contains %q", l, c)
			}
		}
	}
	return nil
}

func NewTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
