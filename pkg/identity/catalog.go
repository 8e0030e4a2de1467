// Package identity holds the browser identities the client rotates through.
//
// An Identity is an opaque profile name; the transport layer maps it to a TLS
// ClientHello fingerprint and the Profile here supplies the matching HTTP
// headers. The catalog order is the rotation order.
package identity

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
)

// Identity names a browser/TLS fingerprint profile, e.g. "chrome110".
type Identity string

func (id Identity) String() string {
	return string(id)
}

// Header is a single request header. Order matters to fingerprinting, so
// profiles expose headers as a slice rather than a map.
type Header struct {
	Name  string
	Value string
}

// Profile is the HTTP half of a browser fingerprint.
type Profile struct {
	Identity  Identity
	UserAgent string
	SecCHUA   string
	Platform  string
}

// Headers returns the navigation headers a real browser of this profile
// would send, in browser order.
func (p Profile) Headers(acceptLanguage string) []Header {
	if acceptLanguage == "" {
		acceptLanguage = "en-US,en;q=0.9"
	}
	headers := make([]Header, 0, 6)
	if p.SecCHUA != "" {
		headers = append(headers,
			Header{"sec-ch-ua", p.SecCHUA},
			Header{"sec-ch-ua-mobile", "?0"},
			Header{"sec-ch-ua-platform", p.Platform},
		)
	}
	headers = append(headers,
		Header{"user-agent", p.UserAgent},
		Header{"accept", "application/json, text/plain, */*"},
		Header{"accept-language", acceptLanguage},
	)
	return headers
}

// AcceptLanguage renders the Accept-Language value a browser set to locale
// sends: the tag itself, then its base language at q=0.9 when they differ.
// An empty or malformed locale yields "", which Headers replaces with its
// default.
func AcceptLanguage(locale string) string {
	if locale == "" {
		return ""
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No || base.String() == tag.String() {
		return tag.String()
	}
	return tag.String() + "," + base.String() + ";q=0.9"
}

const DefaultIdentity Identity = "chrome110"

var defaultProfiles = []Profile{
	{
		Identity:  "chrome110",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/110.0.0.0 Safari/537.36",
		SecCHUA:   `"Chromium";v="110", "Not A(Brand";v="24", "Google Chrome";v="110"`,
		Platform:  `"Windows"`,
	},
	{
		Identity:  "edge101",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/101.0.4951.64 Safari/537.36 Edg/101.0.1210.53",
		SecCHUA:   `" Not A;Brand";v="99", "Chromium";v="101", "Microsoft Edge";v="101"`,
		Platform:  `"Windows"`,
	},
	{
		Identity:  "chrome107",
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/107.0.0.0 Safari/537.36",
		SecCHUA:   `"Google Chrome";v="107", "Chromium";v="107", "Not=A?Brand";v="24"`,
		Platform:  `"macOS"`,
	},
	{
		Identity:  "chrome104",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/104.0.0.0 Safari/537.36",
		SecCHUA:   `"Chromium";v="104", " Not A;Brand";v="99", "Google Chrome";v="104"`,
		Platform:  `"Windows"`,
	},
	{
		Identity:  "chrome100",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/100.0.4896.75 Safari/537.36",
		SecCHUA:   `" Not A;Brand";v="99", "Chromium";v="100", "Google Chrome";v="100"`,
		Platform:  `"Linux"`,
	},
	{
		Identity:  "chrome101",
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/101.0.4951.67 Safari/537.36",
		SecCHUA:   `" Not A;Brand";v="99", "Chromium";v="101", "Google Chrome";v="101"`,
		Platform:  `"macOS"`,
	},
	{
		Identity:  "chrome99",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/99.0.4844.51 Safari/537.36",
		SecCHUA:   `" Not A;Brand";v="99", "Chromium";v="99", "Google Chrome";v="99"`,
		Platform:  `"Windows"`,
	},
}

var (
	ErrEmptyCatalog     = errors.New("identity catalog is empty")
	ErrUnknownIdentity  = errors.New("unknown identity")
	errDuplicateProfile = errors.New("duplicate identity in catalog")
)

// Catalog is an ordered, immutable list of profiles.
type Catalog struct {
	profiles []Profile
	index    map[Identity]int
}

// NewCatalog builds a catalog; the argument order is the rotation order.
func NewCatalog(profiles ...Profile) (*Catalog, error) {
	if len(profiles) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		profiles: make([]Profile, len(profiles)),
		index:    make(map[Identity]int, len(profiles)),
	}
	for i, p := range profiles {
		if _, dup := c.index[p.Identity]; dup {
			return nil, fmt.Errorf("%w: %s", errDuplicateProfile, p.Identity)
		}
		c.profiles[i] = p
		c.index[p.Identity] = i
	}
	return c, nil
}

var defaultCatalog = mustCatalog(defaultProfiles...)

func mustCatalog(profiles ...Profile) *Catalog {
	c, err := NewCatalog(profiles...)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the built-in catalog:
// chrome110, edge101, chrome107, chrome104, chrome100, chrome101, chrome99.
func Default() *Catalog {
	return defaultCatalog
}

func (c *Catalog) Len() int {
	return len(c.profiles)
}

// IndexOf reports the rotation index of id.
func (c *Catalog) IndexOf(id Identity) (int, error) {
	i, ok := c.index[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownIdentity, id)
	}
	return i, nil
}

// At returns the identity at index i, wrapping modulo the catalog length.
func (c *Catalog) At(i int) Identity {
	n := len(c.profiles)
	i %= n
	if i < 0 {
		i += n
	}
	return c.profiles[i].Identity
}

// Next returns the index after i, wrapping to 0 past the end.
func (c *Catalog) Next(i int) int {
	return (i + 1) % len(c.profiles)
}

func (c *Catalog) Profile(id Identity) (Profile, bool) {
	i, ok := c.index[id]
	if !ok {
		return Profile{}, false
	}
	return c.profiles[i], true
}

func (c *Catalog) Identities() []Identity {
	out := make([]Identity, len(c.profiles))
	for i, p := range c.profiles {
		out[i] = p.Identity
	}
	return out
}
