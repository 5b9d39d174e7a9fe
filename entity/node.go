package entity

import (
	"os"
	"sync/atomic"
	"time"
)

// DownloadStatus tracks how much of a node's cache file holds server data.
// The low bits are the status value; FlagTerminated is OR'd in by a request
// thread to ask the background downloader to stop.
type DownloadStatus int32

const (
	DownloadNever DownloadStatus = iota
	DownloadInProgress
	DownloadFinished
	DownloadAborted

	downloadStatusMask DownloadStatus = 0x3f
	// FlagTerminated is set while a download is in progress to request a
	// cooperative stop at the next read iteration.
	FlagTerminated DownloadStatus = 0x40
)

// Node is one cached filesystem entry. The fields that mirror server state
// (validators, lock token) are written only by the network core while the
// caller holds the node's own lock; the download status is atomic because
// the background download thread polls it without that lock.
type Node struct {
	FileID uint64
	// Path is the relative path from the mount root. Directory paths end
	// with a slash, matching what the directory cache hands us.
	Path  string
	IsDir bool

	// File is the local cache copy of the resource contents.
	File *os.File

	status atomic.Int32

	// Provisional marks the cache file as partially filled so it is not
	// mistaken for a complete copy by anyone scanning the cache dir.
	Provisional bool

	LastModified time.Time
	EntityTag    string
	ValidatedAt  time.Time
	CreatedAt    time.Time

	LockToken string
	// LockIdentity is the identity that obtained LockToken; refresh and
	// unlock must authenticate as that identity.
	LockIdentity uint32
}

func (n *Node) DownloadStatus() DownloadStatus {
	return DownloadStatus(n.status.Load()) & downloadStatusMask
}

func (n *Node) SetDownloadStatus(s DownloadStatus) {
	n.status.Store(int32(s))
}

// RequestTerminate asks the background downloader to stop at its next
// check. It is a no-op unless a download is in progress.
func (n *Node) RequestTerminate() {
	for {
		old := n.status.Load()
		if DownloadStatus(old)&downloadStatusMask != DownloadInProgress {
			return
		}
		if n.status.CompareAndSwap(old, old|int32(FlagTerminated)) {
			return
		}
	}
}

func (n *Node) TerminateRequested() bool {
	return DownloadStatus(n.status.Load())&FlagTerminated != 0
}

// ResetCacheState puts the node back to "never downloaded". Used when the
// local cache copy could not be written and must not be trusted.
func (n *Node) ResetCacheState() {
	n.SetDownloadStatus(DownloadNever)
	n.ValidatedAt = time.Time{}
	n.LastModified = time.Time{}
	n.EntityTag = ""
}
