package hstspreload

// defaultIncludeSubdomainsTLDs are gTLDs registered to preload every
// subdomain. Hosts under them never touch the blob.
var defaultIncludeSubdomainsTLDs = []string{
	"android", "app", "azure", "bank", "bing", "boo", "channel", "chrome",
	"dad", "day", "dev", "eat", "esq", "fly", "foo", "gle", "gmail", "google",
	"hangout", "hotmail", "ing", "insurance", "meet", "meme", "microsoft",
	"mov", "new", "nexus", "office", "page", "phd", "play", "prof", "rsvp",
	"search", "skype", "windows", "xbox", "youtube", "zip",
}

// DefaultIncludeSubdomainsTLDs returns a copy of the built-in gTLD fast-set.
func DefaultIncludeSubdomainsTLDs() []string {
	return append([]string(nil), defaultIncludeSubdomainsTLDs...)
}

func tldSet(tlds []string) map[string]struct{} {
	m := make(map[string]struct{}, len(tlds))
	for _, tld := range tlds {
		b := make([]byte, len(tld))
		toLower(b, tld)
		m[string(b)] = struct{}{}
	}
	return m
}
