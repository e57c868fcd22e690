package librpm

import "strconv"

// Tag identifies one field of a package header.
//
// Values match the numbers librpm uses on disk, so headers written by this
// package keep the familiar layout.
type Tag uint32

// Header tags.
const (
	TagName        Tag = 1000
	TagVersion     Tag = 1001
	TagRelease     Tag = 1002
	TagEpoch       Tag = 1003
	TagSummary     Tag = 1004
	TagDescription Tag = 1005
	TagBuildTime   Tag = 1006
	TagInstallTime Tag = 1008
	TagSize        Tag = 1009
	TagVendor      Tag = 1011
	TagLicense     Tag = 1014
	TagGroup       Tag = 1016
	TagURL         Tag = 1020
	TagArch        Tag = 1022
	TagProvideName Tag = 1047
	TagDirIndexes  Tag = 1116
	TagBaseNames   Tag = 1117
	TagDirNames    Tag = 1118

	// TagInstFilenames is an extension tag. It is never stored; headers
	// compute it from dirnames, basenames and dirindexes.
	TagInstFilenames Tag = 5040
)

var tagNames = map[Tag]string{
	TagName:          "NAME",
	TagVersion:       "VERSION",
	TagRelease:       "RELEASE",
	TagEpoch:         "EPOCH",
	TagSummary:       "SUMMARY",
	TagDescription:   "DESCRIPTION",
	TagBuildTime:     "BUILDTIME",
	TagInstallTime:   "INSTALLTIME",
	TagSize:          "SIZE",
	TagVendor:        "VENDOR",
	TagLicense:       "LICENSE",
	TagGroup:         "GROUP",
	TagURL:           "URL",
	TagArch:          "ARCH",
	TagProvideName:   "PROVIDENAME",
	TagDirIndexes:    "DIRINDEXES",
	TagBaseNames:     "BASENAMES",
	TagDirNames:      "DIRNAMES",
	TagInstFilenames: "INSTFILENAMES",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}

	return "TAG_" + strconv.FormatUint(uint64(t), 10)
}

// indexedTags are looked up through the "Index" table. Every other tag is
// matched by scanning all headers.
var indexedTags = map[Tag]bool{
	TagName:          true,
	TagProvideName:   true,
	TagInstFilenames: true,
}

// Indexed reports whether queries on t are served from the index table.
func (t Tag) Indexed() bool {
	return indexedTags[t]
}
