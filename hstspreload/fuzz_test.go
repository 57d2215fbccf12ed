package hstspreload_test

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/starius/hstspreload/hstspreload"
	"github.com/starius/hstspreload/preloadbuild"
	"github.com/stretchr/testify/require"
)

// randomRules generates rules over a small alphabet of labels so that hosts
// share ancestors and crc8 buckets collide often.
func randomRules(r *rand.Rand, n int) []preloadbuild.Rule {
	labels := []string{"a", "b", "c", "com", "org", "net", "example", "www", "x-y", "deep", "uk", "co", "app"}
	seen := make(map[string]bool)
	var rules []preloadbuild.Rule
	for len(rules) < n {
		depth := 1 + r.Intn(6)
		parts := make([]string, depth)
		for i := range parts {
			parts[i] = labels[r.Intn(len(labels))]
		}
		host := strings.Join(parts, ".")
		if seen[host] {
			continue
		}
		seen[host] = true
		rules = append(rules, preloadbuild.Rule{Host: host, IncludeSubdomains: r.Intn(2) == 0})
	}
	return rules
}

func TestParityWithNaive(t *testing.T) {
	r := rand.New(rand.NewSource(200))
	tlds := hstspreload.DefaultIncludeSubdomainsTLDs()
	for round := 0; round < 20; round++ {
		rules := randomRules(r, 1+r.Intn(200))
		c := compileChecker(t, rules)
		naive := preloadbuild.NewNaiveRuleSet(rules, tlds)

		var queries []string
		for _, rule := range rules {
			queries = append(queries, rule.Host, "q."+rule.Host, strings.ToUpper(rule.Host))
			if i := strings.IndexByte(rule.Host, '.'); i >= 0 {
				queries = append(queries, rule.Host[i+1:])
			}
		}
		for _, rule := range randomRules(r, 100) {
			queries = append(queries, rule.Host)
		}
		for _, q := range queries {
			got, err := c.IsPreloaded(q)
			require.NoError(t, err, q)
			want, err := naive.Find(q)
			require.NoError(t, err, q)
			require.Equal(t, want, got, fmt.Sprintf("round %d query %q", round, q))
		}
	}
}

// FuzzIsPreloaded checks runtime safety and parity with the naive matcher.
// Run via: go test -run ^$ -fuzz=Fuzz -fuzztime=60s ./hstspreload
func FuzzIsPreloaded(f *testing.F) {
	base := []preloadbuild.Rule{
		{Host: "example.com"},
		{Host: "example.org", IncludeSubdomains: true},
		{Host: "a..b.com", IncludeSubdomains: true},
		{Host: "-start.com"},
		{Host: "mi-d.le-.ex-ample.com", IncludeSubdomains: true},
		{Host: "xn--puny-test.com"},
		{Host: "x.y.z.w.v.deep.test", IncludeSubdomains: true},
		{Host: "single"},
	}
	for _, host := range []string{strings.Repeat("a", 63), strings.Repeat("b", 200)} {
		base = append(base, preloadbuild.Rule{Host: host + ".com", IncludeSubdomains: true})
	}
	c := compileChecker(f, base)
	naive := preloadbuild.NewNaiveRuleSet(base, hstspreload.DefaultIncludeSubdomainsTLDs())

	seeds := []string{
		"example.com",
		"api.example.com",
		"example.com.",
		"..example.org...",
		"x.a..b.com",
		"-start.com",
		"foo.app",
		"single",
		"u.x.y.z.w.v.deep.test",
		".",
		string([]byte{0x7f, 'a', '.', 'c', 'o', 'm'}),
		"white space.com",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, s string) {
		if len(s) > 512 {
			s = s[:512]
		}
		// Map to 7-bit ASCII.
		b := []byte(s)
		for i := range b {
			b[i] &= 0x7F
		}
		s = string(b)

		got, err1 := c.IsPreloaded(s)
		want, err2 := naive.Find(s)
		if (err1 != nil) != (err2 != nil) {
			t.Fatalf("error mismatch for %q: %v vs %v", s, err1, err2)
		}
		if err1 != nil {
			return
		}
		if got != want {
			t.Fatalf("parity mismatch for %q: got=%v want=%v", s, got, want)
		}
	})
}
