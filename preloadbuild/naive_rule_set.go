package preloadbuild

import (
	"fmt"
	"strings"
)

// NaiveRuleSet is a simple map-based matcher for testing. It answers the
// same question as hstspreload.Checker without any dataset encoding.
type NaiveRuleSet struct {
	m    map[string]bool
	tlds map[string]struct{}
}

// NewNaiveRuleSet builds a naive rule set with lowercase keys.
func NewNaiveRuleSet(rules []Rule, tlds []string) *NaiveRuleSet {
	m := make(map[string]bool, len(rules))
	for _, r := range rules {
		host := strings.ToLower(strings.TrimRight(r.Host, "."))
		if host == "" {
			continue
		}
		m[host] = m[host] || r.IncludeSubdomains
	}
	t := make(map[string]struct{}, len(tlds))
	for _, tld := range tlds {
		t[strings.ToLower(tld)] = struct{}{}
	}
	return &NaiveRuleSet{m: m, tlds: t}
}

// Find reports whether host or an ancestor including subdomains is listed.
func (n *NaiveRuleSet) Find(host string) (bool, error) {
	if host == "" {
		return false, fmt.Errorf("empty host")
	}
	for i := 0; i < len(host); i++ {
		if host[i] >= 0x80 {
			return false, fmt.Errorf("non-ASCII host")
		}
	}
	s := strings.ToLower(host)
	if len(s) > 1 && strings.HasSuffix(s, ".") {
		s = s[:len(s)-1]
	}
	if _, ok := n.tlds[s[strings.LastIndexByte(s, '.')+1:]]; ok {
		return true, nil
	}
	if _, ok := n.m[s]; ok {
		return true, nil
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '.' {
			continue
		}
		if include, ok := n.m[s[i+1:]]; ok && include {
			return true, nil
		}
	}
	return false, nil
}
