// Package wrapfs routes filesystem calls either to the host filesystem or
// to gitfs views of repositories found on it.
//
// Any path below a directory whose name ends in .git gains a virtual
// "contents" directory:
//
//	repo.git/contents/branches/<branch>/...
//	repo.git/contents/tags/<tag>/...
//	repo.git/contents/commits/<hash>/...
//	repo.git/contents/index/...
//
// Everything else is passed through to the host filesystem unchanged.
package wrapfs
