// Command gitfs browses git repositories as read-only filesystems.
//
// With --repo, paths are resolved inside one view of that repository.
// Without it, paths are host paths and any <name>.git directory exposes its
// branches, tags, commits and index under <name>.git/contents.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmgilman/go/gitfs"
	"github.com/jmgilman/go/gitfs/store"
	"github.com/jmgilman/go/gitfs/wrapfs"
)

type globalFlags struct {
	repo    string
	ref     string
	index   bool
	changes bool
	overlay bool
	verbose bool
}

// filesystem is the part of gitfs.FS and wrapfs.Router the commands use.
type filesystem interface {
	ReadDir(ctx context.Context, name string) ([]string, error)
	ReadFile(ctx context.Context, name string) ([]byte, error)
	Stat(ctx context.Context, name string) (fs.FileInfo, error)
	Lstat(ctx context.Context, name string) (fs.FileInfo, error)
	Readlink(ctx context.Context, name string) (string, error)
}

// viewFS adapts a view to filesystem.
type viewFS struct {
	*gitfs.FS
}

func (v viewFS) Stat(ctx context.Context, name string) (fs.FileInfo, error) {
	info, err := v.FS.Stat(ctx, name)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (v viewFS) Lstat(ctx context.Context, name string) (fs.FileInfo, error) {
	info, err := v.FS.Lstat(ctx, name)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "gitfs",
		Short: "Browse git repositories as read-only filesystems",
		Long: `gitfs exposes a committed reference, the staging index, the changes staged
against HEAD or the working copy overlaid on them as a read-only filesystem.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.repo, "repo", "", "repository to open; host paths are used when empty")
	pf.StringVar(&flags.ref, "ref", "", "branch, tag or commit to view (default HEAD)")
	pf.BoolVar(&flags.index, "index", false, "view the staging index")
	pf.BoolVar(&flags.changes, "changes", false, "view only the paths staged against HEAD")
	pf.BoolVar(&flags.overlay, "overlay", false, "view the working copy over the index")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(
		newLsCmd(flags),
		newCatCmd(flags),
		newStatCmd(flags),
		newRealpathCmd(flags),
		newMountCmd(flags),
	)
	return rootCmd
}

func (f *globalFlags) logger() *slog.Logger {
	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// viewOptions translates the view flags. overlay is the working copy used
// by --overlay.
func (f *globalFlags) viewOptions(overlay func() (gitfs.Option, error)) ([]gitfs.Option, error) {
	var opts []gitfs.Option
	if f.ref != "" {
		opts = append(opts, gitfs.WithRef(f.ref))
	}
	if f.index {
		opts = append(opts, gitfs.WithIndex())
	}
	if f.changes {
		opts = append(opts, gitfs.WithChangesInIndex())
	}
	if f.overlay {
		opt, err := overlay()
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

func (f *globalFlags) openView(ctx context.Context, logger *slog.Logger) (*gitfs.FS, error) {
	repo, err := store.Open(f.repo, store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	opts, err := f.viewOptions(func() (gitfs.Option, error) {
		if _, err := repo.Underlying().Worktree(); err != nil {
			return nil, fmt.Errorf("--overlay needs a working copy: %w", err)
		}
		return gitfs.WithOverlay(repo.Filesystem()), nil
	})
	if err != nil {
		return nil, err
	}
	opts = append(opts, gitfs.WithLogger(logger))

	return gitfs.New(ctx, repo, opts...)
}

// open returns the filesystem the commands read from.
func (f *globalFlags) open(ctx context.Context) (filesystem, error) {
	logger := f.logger()
	if f.repo != "" {
		view, err := f.openView(ctx, logger)
		if err != nil {
			return nil, err
		}
		return viewFS{view}, nil
	}

	if f.ref != "" || f.index || f.changes || f.overlay {
		return nil, fmt.Errorf("view flags require --repo")
	}
	router, err := wrapfs.New(wrapfs.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return router, nil
}
