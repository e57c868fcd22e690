package testutil

import (
	"slices"
	"strconv"

	"github.com/calvinalkan/rpmkit/internal/librpm"
)

// Model is a reference implementation of exact-match package queries over
// a plain slice. Tests compare the real database against it.
type Model struct {
	Specs []librpm.PackageSpec
}

// Find returns the names of the packages whose tag value equals key, in
// insertion order. A nil key matches every package.
func (m *Model) Find(tag librpm.Tag, key *string) []string {
	var names []string

	for _, p := range m.Specs {
		if key == nil || slices.Contains(values(p, tag), *key) {
			names = append(names, p.Name)
		}
	}

	return names
}

func values(p librpm.PackageSpec, tag librpm.Tag) []string {
	switch tag {
	case librpm.TagName:
		return []string{p.Name}
	case librpm.TagVersion:
		return []string{p.Version}
	case librpm.TagRelease:
		return []string{p.Release}
	case librpm.TagLicense:
		return nonEmpty(p.License)
	case librpm.TagSummary:
		return nonEmpty(p.Summary)
	case librpm.TagDescription:
		return nonEmpty(p.Description)
	case librpm.TagProvideName:
		if slices.Contains(p.Provides, p.Name) {
			return p.Provides
		}

		return append([]string{p.Name}, p.Provides...)
	case librpm.TagInstFilenames:
		return p.Files
	case librpm.TagEpoch:
		if p.Epoch == nil {
			return nil
		}

		return []string{strconv.FormatUint(uint64(*p.Epoch), 10)}
	default:
		return nil
	}
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}

	return []string{s}
}

var (
	genNames    = []string{"foo", "bar", "baz", "bash", "glibc", "libfoo", "foo-devel"}
	genVersions = []string{"1.0", "1.0.1", "2.0", "10", ""}
	genLicenses = []string{"MIT", "GPL-2.0", "GPL-2.0-or-later", "MIT or GPL-2.0", ""}
	genSummary  = []string{"A tool", "a tool", "A tool ", "Library", ""}
	genDescs    = []string{"Does foo.", "Does foo", "does foo.", "A tool", ""}
	genProvides = []string{"libfoo.so.1", "foo", "webserver", "config(foo)"}
	genFiles    = []string{"/usr/bin/foo", "/usr/bin/bar", "/etc/foo.conf", "/usr/lib64/libfoo.so.1", "/usr/bin/foo/"}
)

// GenPackages derives up to maxN packages from s. Values come from small
// vocabularies with near-miss variants so that exact-match bugs surface.
func GenPackages(s *ByteStream, maxN int) []librpm.PackageSpec {
	n := 1 + s.NextInt(maxN)
	clock := NewClock()
	specs := make([]librpm.PackageSpec, 0, n)

	for range n {
		p := librpm.PackageSpec{
			Name:        Pick(s, genNames),
			Version:     Pick(s, genVersions),
			Release:     "1",
			License:     Pick(s, genLicenses),
			Summary:     Pick(s, genSummary),
			Description: Pick(s, genDescs),
			Provides:    PickSome(s, genProvides, 2),
			Files:       uniq(PickSome(s, genFiles, 3)),
			InstallTime: clock.Next(),
		}

		if s.NextBool() {
			epoch := uint32(s.NextInt(3))
			p.Epoch = &epoch
		}

		specs = append(specs, p)
	}

	return specs
}

func uniq(ss []string) []string {
	var out []string

	for _, s := range ss {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}

	return out
}
