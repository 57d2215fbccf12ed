package preloadbuild

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// IncludeSubdomainsToken marks a rule covering all subdomains in a rules file.
const IncludeSubdomainsToken = "include_subdomains"

// ParseRules reads one rule per line: "host" or "host include_subdomains".
// Blank lines and lines starting with '#' are skipped.
func ParseRules(r io.Reader) ([]Rule, error) {
	var rules []Rule
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		fields := strings.Fields(s)
		rule := Rule{Host: fields[0]}
		switch {
		case len(fields) == 1:
		case len(fields) == 2 && fields[1] == IncludeSubdomainsToken:
			rule.IncludeSubdomains = true
		default:
			return nil, fmt.Errorf("line %d: unexpected %q", line, strings.Join(fields[1:], " "))
		}
		rules = append(rules, rule)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

// WriteRules writes rules in the format read by ParseRules.
func WriteRules(w io.Writer, rules []Rule) error {
	bw := bufio.NewWriter(w)
	for _, r := range rules {
		if r.IncludeSubdomains {
			fmt.Fprintf(bw, "%s %s\n", r.Host, IncludeSubdomainsToken)
		} else {
			fmt.Fprintf(bw, "%s\n", r.Host)
		}
	}
	return bw.Flush()
}
