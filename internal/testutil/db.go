package testutil

import (
	"path/filepath"
	"testing"

	"github.com/calvinalkan/rpmkit/internal/librpm"
)

// NewDB writes a package database holding specs into a fresh temp dir and
// returns the dir, ready to be used as %_dbpath.
func NewDB(tb testing.TB, specs ...librpm.PackageSpec) string {
	tb.Helper()

	dir := filepath.Join(tb.TempDir(), "rpmdb")

	err := librpm.CreateDatabase(dir, specs)
	if err != nil {
		tb.Fatalf("create package database: %v", err)
	}

	return dir
}

// PackageBuilder assembles fixture packages with stable install times.
//
//	specs := testutil.NewPackageBuilder().
//	    Add("foo", "1.0").
//	    Add("bar", "2.0", testutil.WithLicense("MIT")).
//	    Specs()
type PackageBuilder struct {
	clock *Clock
	specs []librpm.PackageSpec
}

// PackageOption customizes one fixture package.
type PackageOption func(*librpm.PackageSpec)

// NewPackageBuilder returns an empty builder.
func NewPackageBuilder() *PackageBuilder {
	return &PackageBuilder{clock: NewClock()}
}

// Add appends a package with release "1" and the next install time.
func (b *PackageBuilder) Add(name, version string, opts ...PackageOption) *PackageBuilder {
	spec := librpm.PackageSpec{
		Name:        name,
		Version:     version,
		Release:     "1",
		Arch:        "x86_64",
		InstallTime: b.clock.Next(),
	}

	for _, opt := range opts {
		opt(&spec)
	}

	b.specs = append(b.specs, spec)

	return b
}

// Specs returns a copy of the packages added so far.
func (b *PackageBuilder) Specs() []librpm.PackageSpec {
	return append([]librpm.PackageSpec(nil), b.specs...)
}

// WithLicense sets the license.
func WithLicense(license string) PackageOption {
	return func(p *librpm.PackageSpec) { p.License = license }
}

// WithSummary sets the summary and description.
func WithSummary(summary, description string) PackageOption {
	return func(p *librpm.PackageSpec) {
		p.Summary = summary
		p.Description = description
	}
}

// WithProvides adds provides.
func WithProvides(provides ...string) PackageOption {
	return func(p *librpm.PackageSpec) { p.Provides = append(p.Provides, provides...) }
}

// WithFiles adds installed files.
func WithFiles(files ...string) PackageOption {
	return func(p *librpm.PackageSpec) { p.Files = append(p.Files, files...) }
}

// WithEpoch sets the epoch.
func WithEpoch(epoch uint32) PackageOption {
	return func(p *librpm.PackageSpec) { p.Epoch = &epoch }
}

// WithRelease overrides the release.
func WithRelease(release string) PackageOption {
	return func(p *librpm.PackageSpec) { p.Release = release }
}
