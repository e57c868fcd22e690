package rpm

import (
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/rpmkit/internal/librpm"
	rpmtest "github.com/calvinalkan/rpmkit/internal/testutil"
)

func names(t *testing.T, it *Iter) []string {
	t.Helper()

	pkgs, err := it.Collect()
	require.NoError(t, err)

	var out []string
	for _, p := range pkgs {
		out = append(out, p.Name)
	}

	return out
}

// checkFindMatchesModel queries every field with every value present in the
// fixtures, plus near misses, and compares against the reference model.
func checkFindMatchesModel(t *testing.T, specs []librpm.PackageSpec) {
	t.Helper()

	s := newNativeState(t, specs...)
	model := rpmtest.Model{Specs: specs}

	keys := []string{"", "fo", "FOO", "foo ", "/usr/bin", "/usr/bin/", "1", "MIT or GPL-2.0"}

	for _, p := range specs {
		keys = append(keys, p.Name, p.Version, p.License, p.Summary, p.Description)
		keys = append(keys, p.Provides...)
		keys = append(keys, p.Files...)
	}

	slices.Sort(keys)
	keys = slices.Compact(keys)

	for _, field := range SearchFields() {
		for _, key := range keys {
			it, err := s.find(field, &key)
			require.NoError(t, err)

			got := names(t, it)
			want := model.Find(field.Tag(), &key)

			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("find(%s, %q) mismatch (-want +got):\n%s", field, key, diff)
			}
		}
	}
}

func Test_Find_Yields_Only_Exact_Matches_When_Querying_Any_Field(t *testing.T) {
	t.Parallel()

	// Contract: byte-exact matching on every search field. No prefix, case
	// folding or whitespace trimming.
	specs := rpmtest.NewPackageBuilder().
		Add("foo", "1.0", rpmtest.WithLicense("MIT"), rpmtest.WithSummary("A tool", "Does foo."),
			rpmtest.WithFiles("/usr/bin/foo", "/etc/foo.conf"), rpmtest.WithProvides("libfoo.so.1")).
		Add("foo-devel", "1.0", rpmtest.WithLicense("MIT or GPL-2.0"), rpmtest.WithSummary("A tool ", "Does foo.")).
		Add("bar", "1.0.1", rpmtest.WithLicense("GPL-2.0"), rpmtest.WithSummary("a tool", "")).
		Add("baz", "2.0", rpmtest.WithProvides("foo"), rpmtest.WithFiles("/usr/bin/baz")).
		Specs()

	checkFindMatchesModel(t, specs)
}

func Fuzz_Find_Matches_Model(f *testing.F) {
	f.Add([]byte{3, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	f.Add([]byte{5, 1, 1, 1, 1, 1, 1, 1, 0, 1, 1, 1, 2, 2, 2})
	f.Add([]byte("exact match, byte for byte"))

	f.Fuzz(func(t *testing.T, data []byte) {
		specs := rpmtest.GenPackages(rpmtest.NewByteStream(data), 6)
		checkFindMatchesModel(t, specs)
	})
}

func Test_InstalledPackages_Count_Is_Stable_When_Drained_Repeatedly(t *testing.T) {
	t.Parallel()

	specs := threePackages()
	s := newNativeState(t, specs...)

	for range 3 {
		it, err := s.find(Name, nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"foo", "bar", "baz"}, names(t, it))
	}
}

func Test_Iter_All_Closes_Cursor_When_Loop_Breaks(t *testing.T) {
	t.Parallel()

	e := newCountingEngine(t, threePackages()...)
	s := newState(e)

	it, err := s.find(Name, nil)
	require.NoError(t, err)

	for p := range it.All() {
		assert.Equal(t, "foo", p.Name)

		break
	}

	total, double := e.freed()
	assert.Equal(t, 1, total)
	assert.Zero(t, double)

	assert.False(t, it.Next())
	require.NoError(t, it.Err())
}

func Test_Iter_Materializes_Every_Field(t *testing.T) {
	t.Parallel()

	epoch := uint32(1)
	spec := librpm.PackageSpec{
		Name:        "bash",
		Epoch:       &epoch,
		Version:     "5.2.26",
		Release:     "3.fc40",
		Arch:        "x86_64",
		License:     "GPL-3.0-or-later",
		Summary:     "The GNU Bourne Again shell",
		Description: "Bash is a shell.",
		URL:         "https://www.gnu.org/software/bash",
		Vendor:      "Fedora Project",
		Group:       "Unspecified",
		BuildTime:   1700000000,
		InstallTime: 1700000600,
		Size:        8388608,
		Provides:    []string{"/bin/sh"},
		Files:       []string{"/usr/bin/bash", "/usr/bin/sh"},
	}

	s := newNativeState(t, spec)

	key := "bash"

	it, err := s.find(Name, &key)
	require.NoError(t, err)

	pkgs, err := it.Collect()
	require.NoError(t, err)
	require.Len(t, pkgs, 1)

	want := Package{
		Name:        "bash",
		Epoch:       1,
		HasEpoch:    true,
		Version:     "5.2.26",
		Release:     "3.fc40",
		Arch:        "x86_64",
		License:     "GPL-3.0-or-later",
		Summary:     "The GNU Bourne Again shell",
		Description: "Bash is a shell.",
		URL:         "https://www.gnu.org/software/bash",
		Vendor:      "Fedora Project",
		Group:       "Unspecified",
		BuildTime:   time.Unix(1700000000, 0).UTC(),
		InstallTime: time.Unix(1700000600, 0).UTC(),
		Size:        8388608,
		Provides:    []string{"bash", "/bin/sh"},
		Files:       []string{"/usr/bin/bash", "/usr/bin/sh"},
	}

	if diff := cmp.Diff(want, pkgs[0]); diff != "" {
		t.Fatalf("package mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "1:5.2.26-3.fc40", pkgs[0].EVR())
	assert.Equal(t, "bash-1:5.2.26-3.fc40.x86_64", pkgs[0].String())
}

func Test_Package_EVR_Omits_Missing_Parts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pkg   Package
		nevra string
	}{
		{Package{Name: "foo", Version: "1.0"}, "foo-1.0"},
		{Package{Name: "foo", Version: "1.0", Release: "2"}, "foo-1.0-2"},
		{Package{Name: "foo", Version: "1.0", Release: "2", Arch: "noarch"}, "foo-1.0-2.noarch"},
		{Package{Name: "foo", Version: "1.0", HasEpoch: true}, "foo-0:1.0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.nevra, tt.pkg.NEVRA())
	}
}

func Test_ParseSearchField_Accepts_Every_Field_Name(t *testing.T) {
	t.Parallel()

	for _, f := range SearchFields() {
		got, err := ParseSearchField(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	_, err := ParseSearchField("Name")
	require.Error(t, err)

	assert.Equal(t, librpm.TagInstFilenames, InstalledFilename.Tag())
	assert.Equal(t, "SearchField(42)", SearchField(42).String())
}
