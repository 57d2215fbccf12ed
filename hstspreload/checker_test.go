package hstspreload_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/starius/hstspreload/blob"
	"github.com/starius/hstspreload/crc8"
	"github.com/starius/hstspreload/entry"
	"github.com/starius/hstspreload/hostcache"
	"github.com/starius/hstspreload/hstspreload"
	"github.com/starius/hstspreload/jumptable"
	"github.com/starius/hstspreload/preloadbuild"
	"github.com/stretchr/testify/require"
)

var testRules = []preloadbuild.Rule{
	{Host: "example.com"},
	{Host: "example.org", IncludeSubdomains: true},
	{Host: "a.b.example.net"},
	{Host: "secure.bank.example.co.uk", IncludeSubdomains: true},
	{Host: "x.y.z.w.v.deep.test"},
	{Host: "web.dev"},
}

func compileChecker(t testing.TB, rules []preloadbuild.Rule, opts ...hstspreload.Option) *hstspreload.Checker {
	t.Helper()
	tbl, data, err := preloadbuild.Compile(rules, hstspreload.DefaultIncludeSubdomainsTLDs())
	require.NoError(t, err)
	return hstspreload.New(tbl, blob.FromBytes(data), opts...)
}

type rawRegion struct {
	layer   int
	label   string
	entries []entry.Entry
}

// rawChecker lays out regions by hand, bypassing preloadbuild ordering.
func rawChecker(t *testing.T, regions []rawRegion) *hstspreload.Checker {
	t.Helper()
	var data []byte
	type placed struct {
		layer int
		sum   uint8
		r     jumptable.Region
	}
	var all []placed
	for _, reg := range regions {
		buf, err := entry.Encode(reg.entries)
		require.NoError(t, err)
		all = append(all, placed{
			layer: reg.layer,
			sum:   crc8.String(reg.label),
			r:     jumptable.Region{Offset: uint64(len(data)), Length: uint32(len(buf))},
		})
		data = append(data, buf...)
	}
	tbl := jumptable.New(uint64(len(data)), jumptable.Fingerprint(data))
	for _, p := range all {
		require.NoError(t, tbl.Set(p.layer, p.sum, p.r))
	}
	return hstspreload.New(tbl, blob.FromBytes(data))
}

func node(label string) entry.Entry {
	return entry.Entry{Label: []byte(label)}
}

func leaf(host string, includeSubdomains bool) entry.Entry {
	return entry.Entry{Leaf: true, IncludeSubdomains: includeSubdomains, Label: []byte(host)}
}

func requirePreloaded(t *testing.T, c *hstspreload.Checker, host string, want bool) {
	t.Helper()
	got, err := c.IsPreloaded(host)
	require.NoError(t, err, host)
	require.Equal(t, want, got, host)
}

func TestIsPreloaded(t *testing.T) {
	c := compileChecker(t, testRules)
	t.Logf("checker: %v", c)

	cases := []struct {
		host string
		want bool
	}{
		// Exact rule without subdomains.
		{"example.com", true},
		{"sub.example.com", false},
		{"com", false},

		// Rule including subdomains.
		{"example.org", true},
		{"anything.example.org", true},
		{"a.b.c.example.org", true},
		{"notexample.org", false},
		{"org", false},

		// Ancestors of a rule are not preloaded.
		{"a.b.example.net", true},
		{"b.example.net", false},
		{"example.net", false},
		{"c.a.b.example.net", false},

		{"secure.bank.example.co.uk", true},
		{"login.secure.bank.example.co.uk", true},
		{"bank.example.co.uk", false},

		// Rules deeper than the jump table are stored on the last layer.
		{"x.y.z.w.v.deep.test", true},
		{"q.y.z.w.v.deep.test", false},
		{"y.z.w.v.deep.test", false},

		// Unrelated.
		{"not-listed.org", false},
		{"example.invalid", false},
	}
	for _, tc := range cases {
		requirePreloaded(t, c, tc.host, tc.want)
	}
}

func TestGTLDFastSet(t *testing.T) {
	// An empty dataset still answers for the fast-set.
	c := hstspreload.New(jumptable.New(0, 0), blob.FromBytes(nil))
	for _, host := range []string{"anything.android", "foo.bar.app", "dev", "a.b.c.d.e.f.google", "X.YouTube"} {
		requirePreloaded(t, c, host, true)
	}
	requirePreloaded(t, c, "example.com", false)
	requirePreloaded(t, c, "android.com", false)

	custom := hstspreload.New(jumptable.New(0, 0), blob.FromBytes(nil),
		hstspreload.WithIncludeSubdomainsTLDs([]string{"Test"}))
	requirePreloaded(t, custom, "a.test", true)
	requirePreloaded(t, custom, "a.app", false)

	tlds := hstspreload.DefaultIncludeSubdomainsTLDs()
	require.Len(t, tlds, 40)
	tlds[0] = "mutated"
	require.Equal(t, "android", hstspreload.DefaultIncludeSubdomainsTLDs()[0])
}

func TestAbsentBucket(t *testing.T) {
	c := compileChecker(t, testRules)
	// "xyz" has no bucket at layer 0 in this dataset.
	for _, host := range []string{"xyz", "example.xyz", "a.b.c.xyz"} {
		requirePreloaded(t, c, host, false)
	}
}

func TestCaseInsensitive(t *testing.T) {
	c := compileChecker(t, testRules)
	for _, host := range []string{"example.com", "sub.example.org", "example.net", "A.B.Example.Net"} {
		lower, err := c.IsPreloaded(host)
		require.NoError(t, err)
		for _, variant := range []string{host, upper(host)} {
			got, err := c.IsPreloaded(variant)
			require.NoError(t, err)
			require.Equal(t, lower, got, variant)
		}
	}
	requirePreloaded(t, c, "Example.COM", true)
	requirePreloaded(t, c, "ANYTHING.EXAMPLE.ORG", true)
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 0x20
		}
	}
	return string(b)
}

func TestTrailingDot(t *testing.T) {
	c := compileChecker(t, testRules)
	requirePreloaded(t, c, "example.com.", true)
	requirePreloaded(t, c, "x.example.org.", true)
	requirePreloaded(t, c, "web.dev.", true)
	requirePreloaded(t, c, "example.com..", false)
}

func TestDepthBound(t *testing.T) {
	// Non-leaf entries on every layer, including the last one, so only the
	// layer cutoff stops the walk.
	c := rawChecker(t, []rawRegion{
		{layer: 0, label: "e", entries: []entry.Entry{node("e")}},
		{layer: 1, label: "d", entries: []entry.Entry{node("d")}},
		{layer: 2, label: "c", entries: []entry.Entry{node("c")}},
		{layer: 3, label: "b", entries: []entry.Entry{node("b")}},
	})
	requirePreloaded(t, c, "a.b.c.d.e", false)
	requirePreloaded(t, c, "z.y.a.b.c.d.e", false)
	requirePreloaded(t, c, "b.c.d.e", false)
}

func TestLabelsExhaustedInsideChain(t *testing.T) {
	c := compileChecker(t, []preloadbuild.Rule{{Host: "a.b.c.example.com"}})
	// Every label of these hosts has a non-leaf entry, and no leaf matches.
	requirePreloaded(t, c, "com", false)
	requirePreloaded(t, c, "example.com", false)
	requirePreloaded(t, c, "c.example.com", false)
	requirePreloaded(t, c, "a.b.c.example.com", true)
}

func TestFirstNonLeafMatchStopsScan(t *testing.T) {
	c := rawChecker(t, []rawRegion{
		{layer: 0, label: "com", entries: []entry.Entry{node("com")}},
		{layer: 1, label: "example", entries: []entry.Entry{
			node("example"),
			leaf("example.com", true),
		}},
	})
	// The leaf is stored after the descent entry, so hosts that descend
	// never see it.
	requirePreloaded(t, c, "www.example.com", false)
	// A host without a next label also stops at the descent entry.
	requirePreloaded(t, c, "example.com", false)
}

func TestLeafScanOrder(t *testing.T) {
	c := rawChecker(t, []rawRegion{
		{layer: 0, label: "com", entries: []entry.Entry{
			leaf("other.com", false),
			leaf("example.com", true),
			node("org"),
			node("com"),
		}},
	})
	requirePreloaded(t, c, "www.example.com", true)
	requirePreloaded(t, c, "other.com", true)
	requirePreloaded(t, c, "www.other.com", false)
}

func TestSubdomainNeedsLabelBoundary(t *testing.T) {
	c := rawChecker(t, []rawRegion{
		{layer: 0, label: "org", entries: []entry.Entry{leaf("ample.org", true)}},
	})
	requirePreloaded(t, c, "ample.org", true)
	requirePreloaded(t, c, "x.ample.org", true)
	requirePreloaded(t, c, "example.org", false)
}

func TestInputErrors(t *testing.T) {
	cache, err := hostcache.New(hostcache.DefaultSize)
	require.NoError(t, err)
	c := compileChecker(t, testRules, hstspreload.WithCache(cache))

	_, err = c.IsPreloaded("")
	require.ErrorIs(t, err, hstspreload.ErrEmptyHost)

	_, err = c.IsPreloaded("пример.рф")
	require.ErrorIs(t, err, hstspreload.ErrNonASCII)

	_, err = c.IsPreloaded("example.com\xff")
	require.ErrorIs(t, err, hstspreload.ErrNonASCII)

	require.Zero(t, cache.Len())
}

func TestDatasetDefects(t *testing.T) {
	t.Run("truncated region", func(t *testing.T) {
		data := []byte{0x00, 3, 'n', 'e', 't', 0x80, 20, 'x'}
		tbl := jumptable.New(uint64(len(data)), 0)
		require.NoError(t, tbl.Set(0, crc8.String("com"), jumptable.Region{Offset: 0, Length: uint32(len(data))}))
		c := hstspreload.New(tbl, blob.FromBytes(data))

		_, err := c.IsPreloaded("example.com")
		require.ErrorIs(t, err, entry.ErrTruncated)
		require.ErrorContains(t, err, "layer 0")
	})

	t.Run("region past blob", func(t *testing.T) {
		tbl := jumptable.New(100, 0)
		require.NoError(t, tbl.Set(0, crc8.String("com"), jumptable.Region{Offset: 90, Length: 10}))
		c := hstspreload.New(tbl, blob.FromBytes(make([]byte, 50)))

		_, err := c.IsPreloaded("example.com")
		require.ErrorIs(t, err, blob.ErrOutOfRange)
	})

	t.Run("closed blob", func(t *testing.T) {
		c := compileChecker(t, testRules)
		require.NoError(t, c.Close())
		_, err := c.IsPreloaded("example.com")
		require.ErrorIs(t, err, blob.ErrClosed)
		// The fast-set never reads the blob.
		requirePreloaded(t, c, "web.app", true)
	})
}

func TestCacheDoesNotChangeVerdicts(t *testing.T) {
	cache, err := hostcache.New(4)
	require.NoError(t, err)
	cached := compileChecker(t, testRules, hstspreload.WithCache(cache))
	plain := compileChecker(t, testRules)

	hosts := []string{
		"example.com", "Example.COM", "sub.example.com", "x.example.org",
		"notexample.org", "a.b.example.net", "foo.app", "nothing.test",
	}
	for round := 0; round < 3; round++ {
		for _, host := range hosts {
			want, err := plain.IsPreloaded(host)
			require.NoError(t, err)
			got, err := cached.IsPreloaded(host)
			require.NoError(t, err)
			require.Equal(t, want, got, host)
		}
	}
	require.Equal(t, 4, cache.Len())

	// Keys keep the caller's spelling.
	_, ok := cache.Get("nothing.test")
	require.True(t, ok)
}

func TestCacheServesVerdicts(t *testing.T) {
	cache, err := hostcache.New(hostcache.DefaultSize)
	require.NoError(t, err)
	c := compileChecker(t, testRules, hstspreload.WithCache(cache))

	requirePreloaded(t, c, "example.com", true)
	require.NoError(t, c.Close())
	// The blob is gone, the cache still answers.
	requirePreloaded(t, c, "example.com", true)
}

func TestConcurrentLookups(t *testing.T) {
	cache, err := hostcache.New(16)
	require.NoError(t, err)
	c := compileChecker(t, testRules, hstspreload.WithCache(cache))
	naive := preloadbuild.NewNaiveRuleSet(testRules, hstspreload.DefaultIncludeSubdomainsTLDs())

	hosts := []string{
		"example.com", "sub.example.com", "x.example.org", "example.net",
		"a.b.example.net", "login.secure.bank.example.co.uk", "foo.dev", "q.y.z.w.v.deep.test",
	}
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				host := hosts[(g+i)%len(hosts)]
				if i%5 == 0 {
					host = fmt.Sprintf("h%d.%s", i, host)
				}
				got, err := c.IsPreloaded(host)
				if err != nil {
					t.Error(err)
					return
				}
				want, _ := naive.Find(host)
				if got != want {
					t.Errorf("%s: got %v, want %v", host, got, want)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}
