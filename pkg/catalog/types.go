package catalog

import (
	"strings"

	"github.com/Justype/modules/pkg/version"
)

// Kind is the closed set of package origins.
type Kind int

const (
	// KindLocal packages are built by a script under the build-script root.
	KindLocal Kind = iota

	// KindRemote packages come from a channel of the remote package manager.
	KindRemote

	// KindReference packages are reference data sets built by scripts and
	// installed under the reference roots.
	KindReference
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindRemote:
		return "remote"
	case KindReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Serialized provenance tokens.
const (
	TokenLocal     = "local"
	TokenReference = "ref"
	tokenUnknown   = "NA"
)

// Provenance records where a package comes from. It is decided once when a
// descriptor is built and never re-derived from strings afterwards.
type Provenance struct {
	kind    Kind
	channel string
}

// Local returns the provenance of script-built packages.
func Local() Provenance {
	return Provenance{kind: KindLocal}
}

// Reference returns the provenance of reference data packages.
func Reference() Provenance {
	return Provenance{kind: KindReference}
}

// Remote returns the provenance of a package published on channel.
func Remote(channel string) Provenance {
	return Provenance{kind: KindRemote, channel: channel}
}

// ParseProvenance converts a catalog token into a Provenance. Empty and
// "NA" tokens are treated as local packages.
func ParseProvenance(token string) Provenance {
	token = strings.TrimSpace(token)
	switch {
	case token == "", strings.EqualFold(token, tokenUnknown), strings.EqualFold(token, TokenLocal):
		return Local()
	case strings.EqualFold(token, TokenReference):
		return Reference()
	default:
		return Remote(token)
	}
}

// ValidChannel reports whether ch can name a remote channel. Empty and
// reserved tokens would read back as a script-built provenance.
func ValidChannel(ch string) bool {
	return strings.TrimSpace(ch) == ch && ParseProvenance(ch).Kind() == KindRemote
}

// Kind returns the provenance kind.
func (p Provenance) Kind() Kind {
	return p.kind
}

// Channel returns the remote channel, or "" for script-built packages.
func (p Provenance) Channel() string {
	return p.channel
}

// IsScripted reports whether the package is installed by a build script.
func (p Provenance) IsScripted() bool {
	return p.kind == KindLocal || p.kind == KindReference
}

// String returns the catalog token for the provenance.
func (p Provenance) String() string {
	switch p.kind {
	case KindReference:
		return TokenReference
	case KindRemote:
		return p.channel
	default:
		return TokenLocal
	}
}

// Descriptor is one catalog entry.
type Descriptor struct {
	Name        string
	Tags        []string
	Description string
	Homepage    string
	Provenance  Provenance

	// Versions lists available versions, newest first as discovered.
	Versions []string

	// VersionsKnown is false until a scan or remote lookup has produced a
	// version list. A known but empty list means the lookup found nothing.
	VersionsKnown bool
}

// SetVersions replaces the version list and marks it as known.
func (d *Descriptor) SetVersions(versions []string) {
	d.Versions = version.Dedupe(versions)
	d.VersionsKnown = true
}

// HasVersion reports whether v is an exact member of the version list.
func (d *Descriptor) HasVersion(v string) bool {
	for _, known := range d.Versions {
		if known == v {
			return true
		}
	}
	return false
}

// Latest returns the first listed version, or "" when there is none.
func (d *Descriptor) Latest() string {
	if len(d.Versions) == 0 {
		return ""
	}
	return d.Versions[0]
}

// Clone returns a deep copy of the descriptor.
func (d Descriptor) Clone() Descriptor {
	out := d
	if d.Tags != nil {
		out.Tags = append([]string(nil), d.Tags...)
	}
	if d.Versions != nil {
		out.Versions = append([]string(nil), d.Versions...)
	}
	return out
}
