// Package preloadbuild compiles a list of preload rules into the blob and
// jump table consumed by package hstspreload.
package preloadbuild

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/starius/hstspreload/crc8"
	"github.com/starius/hstspreload/entry"
	"github.com/starius/hstspreload/jumptable"
)

const maxDomainLen = 253

var (
	ErrNoRules            = errors.New("no rules")
	ErrEmptyDomain        = errors.New("empty domain")
	ErrInvalidDomainChars = errors.New("invalid domain characters")
	ErrDomainTooLong      = errors.New("domain too long")
)

// Rule is one preload list entry.
type Rule struct {
	Host              string
	IncludeSubdomains bool
}

type bucket struct {
	leaves []entry.Entry
	nodes  map[string]struct{}
}

// Compile builds a dataset from rules. Rules under one of skipTLDs are left
// out because lookups answer them from the gTLD fast-set.
//
// A rule with k labels becomes a leaf at layer min(k-1, 3) in the bucket of
// that label, and every shallower label becomes a non-leaf entry. Leaves are
// stored before non-leaf entries inside a region so a lookup checks every
// leaf of a bucket before it descends.
func Compile(rules []Rule, skipTLDs []string) (*jumptable.Table, []byte, error) {
	if len(rules) == 0 {
		return nil, nil, ErrNoRules
	}
	rules, err := preprocessRules(rules)
	if err != nil {
		return nil, nil, err
	}
	skip := make(map[string]struct{}, len(skipTLDs))
	for _, tld := range skipTLDs {
		skip[strings.ToLower(tld)] = struct{}{}
	}

	var layers [jumptable.Layers][jumptable.Slots]bucket
	for _, r := range rules {
		labels := strings.Split(r.Host, ".")
		if _, ok := skip[labels[len(labels)-1]]; ok {
			continue
		}
		leafLayer := min(len(labels)-1, jumptable.Layers-1)
		for layer := 0; layer < leafLayer; layer++ {
			label := labels[len(labels)-1-layer]
			b := &layers[layer][crc8.String(label)]
			if b.nodes == nil {
				b.nodes = make(map[string]struct{})
			}
			b.nodes[label] = struct{}{}
		}
		label := labels[len(labels)-1-leafLayer]
		b := &layers[leafLayer][crc8.String(label)]
		b.leaves = append(b.leaves, entry.Entry{
			Leaf:              true,
			IncludeSubdomains: r.IncludeSubdomains,
			Label:             []byte(r.Host),
		})
	}

	type placed struct {
		layer  int
		sum    uint8
		region jumptable.Region
	}
	var (
		blob    []byte
		regions []placed
	)
	for layer := range layers {
		for sum := range layers[layer] {
			b := &layers[layer][sum]
			start := len(blob)
			for _, e := range b.leaves {
				if blob, err = entry.Append(blob, e); err != nil {
					return nil, nil, err
				}
			}
			nodes := make([]string, 0, len(b.nodes))
			for label := range b.nodes {
				nodes = append(nodes, label)
			}
			sort.Strings(nodes)
			for _, label := range nodes {
				if blob, err = entry.Append(blob, entry.Entry{Label: []byte(label)}); err != nil {
					return nil, nil, err
				}
			}
			if len(blob) == start {
				continue
			}
			if uint64(len(blob)-start) > math.MaxUint32 {
				return nil, nil, fmt.Errorf("region of layer %d slot %d is too large", layer, sum)
			}
			regions = append(regions, placed{
				layer:  layer,
				sum:    uint8(sum),
				region: jumptable.Region{Offset: uint64(start), Length: uint32(len(blob) - start)},
			})
		}
	}

	table := jumptable.New(uint64(len(blob)), jumptable.Fingerprint(blob))
	for _, p := range regions {
		if err := table.Set(p.layer, p.sum, p.region); err != nil {
			return nil, nil, err
		}
	}
	return table, blob, nil
}

func preprocessRules(rules []Rule) ([]Rule, error) {
	byHost := make(map[string]int, len(rules))
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		host, err := normalizeDomain(r.Host)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", r.Host, err)
		}
		if i, ok := byHost[host]; ok {
			out[i].IncludeSubdomains = out[i].IncludeSubdomains || r.IncludeSubdomains
			continue
		}
		byHost[host] = len(out)
		out = append(out, Rule{Host: host, IncludeSubdomains: r.IncludeSubdomains})
	}
	sort.Slice(out, func(i, j int) bool { return lessRevChar(out[i].Host, out[j].Host) })
	return out, nil
}

func normalizeDomain(s string) (string, error) {
	for len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	if s == "" {
		return "", ErrEmptyDomain
	}
	if len(s) > maxDomainLen {
		return "", fmt.Errorf("%w: %d", ErrDomainTooLong, len(s))
	}
	b := make([]byte, len(s))
	if !domainToLower(b, s) {
		return "", ErrInvalidDomainChars
	}
	return string(b), nil
}

func domainToLower(dst []byte, s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		cl := c | 0x20
		isAlpha := cl >= 'a' && cl <= 'z'
		ok := isAlpha || (c >= '0' && c <= '9') || c == '-' || c == '.' || c == '_'
		if !ok {
			return false
		}
		if isAlpha {
			dst[i] = cl
		} else {
			dst[i] = c
		}
	}
	return true
}

// lessRevChar compares by reversed characters, so a domain sorts right
// before its subdomains.
func lessRevChar(a, b string) bool {
	i, j := len(a)-1, len(b)-1
	for i >= 0 && j >= 0 {
		if a[i] != b[j] {
			return a[i] < b[j]
		}
		i--
		j--
	}
	return len(a) < len(b)
}
