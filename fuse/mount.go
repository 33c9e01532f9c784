package fuse

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/jmgilman/go/gitfs"
)

// Options configures a mount.
type Options struct {
	// Mountpoint is the directory the view is mounted on. It is created if
	// it does not exist.
	Mountpoint string

	// AllowOther lets other users access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Debug logs every FUSE request.
	Debug bool

	// Logger receives diagnostics. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Mount mounts view at options.Mountpoint. The caller must call Unmount on
// the returned server when done.
func Mount(view *gitfs.FS, options Options) (*fuse.Server, error) {
	if view == nil {
		return nil, fmt.Errorf("view is required")
	}
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	root := newRoot(view, options.Logger)

	entryTimeout := time.Second
	attrTimeout := time.Second
	negativeTimeout := 100 * time.Millisecond

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     view.String(),
			Name:       "gitfs",
			AllowOther: options.AllowOther,
			Debug:      options.Debug,
			Options:    []string{"ro"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting %s at %s: %w", view, options.Mountpoint, err)
	}

	options.Logger.Info("view mounted", "view", view.String(), "mountpoint", options.Mountpoint)
	return server, nil
}

func newRoot(view *gitfs.FS, logger *slog.Logger) *node {
	return &node{view: view, path: "/", logger: logger}
}
