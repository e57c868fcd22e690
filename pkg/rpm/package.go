package rpm

import (
	"strconv"
	"time"
)

// Package is an installed package, copied out of the database. It shares
// nothing with the iterator it came from.
type Package struct {
	Name     string `json:"name" yaml:"name"`
	Epoch    uint32 `json:"epoch,omitempty" yaml:"epoch,omitempty"`
	HasEpoch bool   `json:"-" yaml:"-"`
	Version  string `json:"version" yaml:"version"`
	Release  string `json:"release,omitempty" yaml:"release,omitempty"`
	Arch     string `json:"arch,omitempty" yaml:"arch,omitempty"`

	License     string `json:"license,omitempty" yaml:"license,omitempty"`
	Summary     string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	Vendor      string `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Group       string `json:"group,omitempty" yaml:"group,omitempty"`

	// BuildTime and InstallTime are zero when the record has none.
	BuildTime   time.Time `json:"buildtime,omitzero" yaml:"buildtime,omitempty"`
	InstallTime time.Time `json:"installtime,omitzero" yaml:"installtime,omitempty"`
	Size        uint64    `json:"size,omitempty" yaml:"size,omitempty"`

	Provides []string `json:"provides,omitempty" yaml:"provides,omitempty"`
	Files    []string `json:"files,omitempty" yaml:"files,omitempty"`
}

// EVR returns "[epoch:]version[-release]".
func (p Package) EVR() string {
	evr := p.Version
	if p.Release != "" {
		evr += "-" + p.Release
	}

	if p.HasEpoch {
		evr = strconv.FormatUint(uint64(p.Epoch), 10) + ":" + evr
	}

	return evr
}

// NEVRA returns "name-[epoch:]version-release[.arch]".
func (p Package) NEVRA() string {
	s := p.Name + "-" + p.EVR()
	if p.Arch != "" {
		s += "." + p.Arch
	}

	return s
}

func (p Package) String() string {
	return p.NEVRA()
}
