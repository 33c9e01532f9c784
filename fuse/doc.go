// Package fuse mounts a gitfs view as a read-only FUSE filesystem.
//
// Lookups and listings are answered by the view on demand; the kernel
// caches entries and attributes for a short time and file contents for as
// long as a file stays open. Any attempt to open a file for writing fails
// with EROFS.
package fuse
