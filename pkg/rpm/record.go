package rpm

import (
	"time"

	"github.com/calvinalkan/rpmkit/internal/librpm"
)

// Record is a borrowed view of the iterator's current record.
//
// It is only valid until its iterator advances or closes; after that every
// method returns [ErrStaleRecord]. Use [Record.ToPackage] to keep the data.
type Record struct {
	it  *MatchIterator
	gen uint64
}

// Num returns the record's database number.
func (r Record) Num() (uint32, error) {
	h, err := r.header()
	if err != nil {
		return 0, err
	}

	return h.Num(), nil
}

// ToPackage copies every field of the record into an owned [Package].
func (r Record) ToPackage() (Package, error) {
	h, err := r.header()
	if err != nil {
		return Package{}, err
	}

	return packageFromHeader(h), nil
}

func (r Record) header() (*librpm.Header, error) {
	if r.it == nil {
		return nil, ErrStaleRecord
	}

	return r.it.current(r.gen)
}

// packageFromHeader decodes h. Every accessor it uses copies out of the
// header, so the result shares no memory with the cursor.
func packageFromHeader(h *librpm.Header) Package {
	str := func(tag librpm.Tag) string {
		s, _ := h.String(tag)

		return s
	}

	p := Package{
		Name:        str(librpm.TagName),
		Version:     str(librpm.TagVersion),
		Release:     str(librpm.TagRelease),
		Arch:        str(librpm.TagArch),
		License:     str(librpm.TagLicense),
		Summary:     str(librpm.TagSummary),
		Description: str(librpm.TagDescription),
		URL:         str(librpm.TagURL),
		Vendor:      str(librpm.TagVendor),
		Group:       str(librpm.TagGroup),
		Provides:    h.StringArray(librpm.TagProvideName),
		Files:       h.StringArray(librpm.TagInstFilenames),
	}

	if epoch, ok := h.Uint32(librpm.TagEpoch); ok {
		p.Epoch, p.HasEpoch = epoch, true
	}

	if v, ok := h.Uint32(librpm.TagBuildTime); ok {
		p.BuildTime = time.Unix(int64(v), 0).UTC()
	}

	if v, ok := h.Uint32(librpm.TagInstallTime); ok {
		p.InstallTime = time.Unix(int64(v), 0).UTC()
	}

	if v, ok := h.Uint32(librpm.TagSize); ok {
		p.Size = uint64(v)
	}

	return p
}
