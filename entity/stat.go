package entity

import "time"

// Stat holds the subset of file metadata a PROPFIND can answer.
type Stat struct {
	IsDir  bool
	Size   int64
	MTime  time.Time
	FileID uint64
}

// FSInfo is the quota information parsed from a statfs PROPFIND.
type FSInfo struct {
	Quota     uint64
	QuotaUsed uint64
}

// CacheValidators are the server-issued values used to revalidate the
// local cache copy of a file.
type CacheValidators struct {
	LastModified time.Time
	EntityTag    string
}

// DirEntry is one child returned by a depth-1 PROPFIND on a collection.
type DirEntry struct {
	Name  string
	IsDir bool
	Size  int64
	MTime time.Time
	// HeaderBlock is the optional prefetched leading block of the file
	// contents, when the extended property set was requested.
	HeaderBlock []byte
}
