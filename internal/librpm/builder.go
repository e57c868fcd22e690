package librpm

import (
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidValue indicates a header value that cannot be encoded, such as
// a string containing a NUL byte.
var ErrInvalidValue = errors.New("librpm: invalid header value")

// HeaderBuilder assembles an encoded header blob. The zero value is ready
// to use.
type HeaderBuilder struct {
	items []builderItem
}

type builderItem struct {
	tag  Tag
	typ  uint32
	strs []string
	ints []uint32
}

// AddString stores a STRING tag.
func (b *HeaderBuilder) AddString(tag Tag, s string) {
	b.items = append(b.items, builderItem{tag: tag, typ: typeString, strs: []string{s}})
}

// AddStringArray stores a STRING_ARRAY tag. Empty arrays are skipped.
func (b *HeaderBuilder) AddStringArray(tag Tag, ss []string) {
	if len(ss) == 0 {
		return
	}

	b.items = append(b.items, builderItem{tag: tag, typ: typeStringArray, strs: slices.Clone(ss)})
}

// AddUint32 stores an INT32 tag.
func (b *HeaderBuilder) AddUint32(tag Tag, vs ...uint32) {
	if len(vs) == 0 {
		return
	}

	b.items = append(b.items, builderItem{tag: tag, typ: typeInt32, ints: slices.Clone(vs)})
}

// Encode returns the header blob. Entries are sorted by tag; a tag added
// twice keeps its last value.
func (b *HeaderBuilder) Encode() ([]byte, error) {
	byTag := make(map[Tag]builderItem, len(b.items))
	for _, it := range b.items {
		byTag[it.tag] = it
	}

	items := make([]builderItem, 0, len(byTag))
	for _, it := range byTag {
		items = append(items, it)
	}

	slices.SortFunc(items, func(a, b builderItem) int {
		return cmp.Compare(a.tag, b.tag)
	})

	var (
		index []byte
		data  []byte
	)

	for _, it := range items {
		if it.typ == typeInt32 {
			for len(data)%4 != 0 {
				data = append(data, 0)
			}
		}

		offset := uint32(len(data))

		var count uint32

		switch it.typ {
		case typeInt32:
			for _, v := range it.ints {
				data = binary.BigEndian.AppendUint32(data, v)
			}

			count = uint32(len(it.ints))
		default:
			for _, s := range it.strs {
				if strings.IndexByte(s, 0) >= 0 {
					return nil, fmt.Errorf("%w: tag %s contains a NUL byte", ErrInvalidValue, it.tag)
				}

				data = append(data, s...)
				data = append(data, 0)
			}

			count = uint32(len(it.strs))
		}

		index = binary.BigEndian.AppendUint32(index, uint32(it.tag))
		index = binary.BigEndian.AppendUint32(index, it.typ)
		index = binary.BigEndian.AppendUint32(index, offset)
		index = binary.BigEndian.AppendUint32(index, count)
	}

	blob := make([]byte, 0, headerPreambleSize+len(index)+len(data))
	blob = binary.BigEndian.AppendUint32(blob, uint32(len(items)))
	blob = binary.BigEndian.AppendUint32(blob, uint32(len(data)))
	blob = append(blob, index...)
	blob = append(blob, data...)

	return blob, nil
}

// PackageSpec describes one installed package. It is the input format for
// [CreateDatabase] and for YAML manifests.
type PackageSpec struct {
	Name        string   `json:"name"                  yaml:"name"`
	Epoch       *uint32  `json:"epoch,omitempty"       yaml:"epoch,omitempty"`
	Version     string   `json:"version"               yaml:"version"`
	Release     string   `json:"release,omitempty"     yaml:"release,omitempty"`
	Arch        string   `json:"arch,omitempty"        yaml:"arch,omitempty"`
	License     string   `json:"license,omitempty"     yaml:"license,omitempty"`
	Summary     string   `json:"summary,omitempty"     yaml:"summary,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	URL         string   `json:"url,omitempty"         yaml:"url,omitempty"`
	Vendor      string   `json:"vendor,omitempty"      yaml:"vendor,omitempty"`
	Group       string   `json:"group,omitempty"       yaml:"group,omitempty"`
	BuildTime   uint32   `json:"buildtime,omitempty"   yaml:"buildtime,omitempty"`
	InstallTime uint32   `json:"installtime,omitempty" yaml:"installtime,omitempty"`
	Size        uint32   `json:"size,omitempty"        yaml:"size,omitempty"`
	Provides    []string `json:"provides,omitempty"    yaml:"provides,omitempty"`
	Files       []string `json:"files,omitempty"       yaml:"files,omitempty"`
}

// Encode builds the header blob for p. Like rpmbuild, the package name is
// always among the provides.
func (p PackageSpec) Encode() ([]byte, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: package name is empty", ErrInvalidValue)
	}

	var b HeaderBuilder

	b.AddString(TagName, p.Name)
	b.AddString(TagVersion, p.Version)
	b.AddString(TagRelease, p.Release)

	if p.Epoch != nil {
		b.AddUint32(TagEpoch, *p.Epoch)
	}

	optional := []struct {
		tag Tag
		val string
	}{
		{TagArch, p.Arch},
		{TagLicense, p.License},
		{TagSummary, p.Summary},
		{TagDescription, p.Description},
		{TagURL, p.URL},
		{TagVendor, p.Vendor},
		{TagGroup, p.Group},
	}
	for _, o := range optional {
		if o.val != "" {
			b.AddString(o.tag, o.val)
		}
	}

	if p.BuildTime != 0 {
		b.AddUint32(TagBuildTime, p.BuildTime)
	}

	if p.InstallTime != 0 {
		b.AddUint32(TagInstallTime, p.InstallTime)
	}

	if p.Size != 0 {
		b.AddUint32(TagSize, p.Size)
	}

	provides := p.Provides
	if !slices.Contains(provides, p.Name) {
		provides = append([]string{p.Name}, provides...)
	}

	b.AddStringArray(TagProvideName, provides)

	dirs, bases, idx := splitFiles(p.Files)
	b.AddStringArray(TagDirNames, dirs)
	b.AddStringArray(TagBaseNames, bases)
	b.AddUint32(TagDirIndexes, idx...)

	return b.Encode()
}

// splitFiles compresses paths into the dirnames/basenames/dirindexes triple.
func splitFiles(files []string) ([]string, []string, []uint32) {
	if len(files) == 0 {
		return nil, nil, nil
	}

	var dirs []string

	dirIndex := make(map[string]uint32)
	bases := make([]string, 0, len(files))
	idx := make([]uint32, 0, len(files))

	for _, f := range files {
		cut := strings.LastIndexByte(f, '/') + 1
		dir, base := f[:cut], f[cut:]

		i, ok := dirIndex[dir]
		if !ok {
			i = uint32(len(dirs))
			dirIndex[dir] = i
			dirs = append(dirs, dir)
		}

		bases = append(bases, base)
		idx = append(idx, i)
	}

	return dirs, bases, idx
}
