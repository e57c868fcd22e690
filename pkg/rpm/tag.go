package rpm

import (
	"fmt"

	"github.com/calvinalkan/rpmkit/internal/librpm"
)

// SearchField names a package attribute that queries can match on.
type SearchField int

// Search fields.
const (
	Name SearchField = iota
	Version
	License
	Summary
	Description
	ProvideName
	InstalledFilename
)

var searchFields = [...]struct {
	name string
	tag  librpm.Tag
}{
	Name:              {"name", librpm.TagName},
	Version:           {"version", librpm.TagVersion},
	License:           {"license", librpm.TagLicense},
	Summary:           {"summary", librpm.TagSummary},
	Description:       {"description", librpm.TagDescription},
	ProvideName:       {"providename", librpm.TagProvideName},
	InstalledFilename: {"instfilename", librpm.TagInstFilenames},
}

// SearchFields lists every field in declaration order.
func SearchFields() []SearchField {
	out := make([]SearchField, len(searchFields))
	for i := range searchFields {
		out[i] = SearchField(i)
	}

	return out
}

func (f SearchField) valid() bool {
	return f >= 0 && int(f) < len(searchFields)
}

// Tag returns the engine tag that f matches against.
func (f SearchField) Tag() librpm.Tag {
	if !f.valid() {
		panic(fmt.Sprintf("rpm: invalid SearchField %d", int(f)))
	}

	return searchFields[f].tag
}

func (f SearchField) String() string {
	if !f.valid() {
		return fmt.Sprintf("SearchField(%d)", int(f))
	}

	return searchFields[f].name
}

// ParseSearchField is the inverse of [SearchField.String].
func ParseSearchField(s string) (SearchField, error) {
	for i, sf := range searchFields {
		if sf.name == s {
			return SearchField(i), nil
		}
	}

	return 0, fmt.Errorf("rpm: unknown search field %q", s)
}

// Find is shorthand for rpm.Find(f, key).
func (f SearchField) Find(key string) (*Iter, error) {
	return Find(f, key)
}
