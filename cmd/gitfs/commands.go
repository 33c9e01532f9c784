package main

import (
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jmgilman/go/gitfs"
	"github.com/jmgilman/go/gitfs/fuse"
)

func newLsCmd(flags *globalFlags) *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir := "/"
			if len(args) == 1 {
				dir = args[0]
			}

			fsys, err := flags.open(ctx)
			if err != nil {
				return err
			}
			names, err := fsys.ReadDir(ctx, dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range names {
				info, err := fsys.Lstat(ctx, path.Join(dir, name))
				if err != nil {
					return err
				}
				if long {
					fmt.Fprintf(out, "%s %8d %s\n", info.Mode(), info.Size(), colorName(info))
					continue
				}
				fmt.Fprintln(out, colorName(info))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show mode and size")
	return cmd
}

func colorName(info fs.FileInfo) string {
	switch {
	case info.IsDir():
		return color.New(color.FgBlue, color.Bold).Sprint(info.Name() + "/")
	case info.Mode()&fs.ModeSymlink != 0:
		return color.New(color.FgCyan).Sprint(info.Name())
	case info.Mode()&0o111 != 0:
		return color.New(color.FgGreen).Sprint(info.Name())
	}
	return info.Name()
}

func newCatCmd(flags *globalFlags) *cobra.Command {
	var encoding string

	cmd := &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fsys, err := flags.open(ctx)
			if err != nil {
				return err
			}
			data, err := fsys.ReadFile(ctx, args[0])
			if err != nil {
				return err
			}

			if encoding == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			enc, err := gitfs.ParseEncoding(encoding)
			if err != nil {
				return err
			}
			s, err := enc.Decode(data)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().StringVarP(&encoding, "encoding", "e", "", "decode as utf8, latin1, hex or base64")
	return cmd
}

func newStatCmd(flags *globalFlags) *cobra.Command {
	var noDeref bool

	cmd := &cobra.Command{
		Use:   "stat <path>",
		Short: "Describe a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fsys, err := flags.open(ctx)
			if err != nil {
				return err
			}

			stat := fsys.Stat
			if noDeref {
				stat = fsys.Lstat
			}
			info, err := stat(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name: %s\n", info.Name())
			fmt.Fprintf(out, "mode: %s\n", info.Mode())
			fmt.Fprintf(out, "size: %d\n", info.Size())
			if gi, ok := info.(*gitfs.FileInfo); ok {
				fmt.Fprintf(out, "path: %s\n", gi.Path())
				fmt.Fprintf(out, "kind: %s\n", gi.Kind())
				fmt.Fprintf(out, "git mode: %o\n", uint32(gi.GitMode()))
				if !gi.Hash().IsZero() {
					fmt.Fprintf(out, "hash: %s\n", gi.Hash())
				}
			}
			if info.Mode()&fs.ModeSymlink != 0 {
				target, err := fsys.Readlink(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "target: %s\n", target)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&noDeref, "no-dereference", "P", false, "describe a symbolic link instead of its target")
	return cmd
}

func newRealpathCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "realpath <path>",
		Short: "Print the canonical path with symbolic links resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.repo == "" {
				return fmt.Errorf("realpath requires --repo")
			}
			ctx := cmd.Context()
			view, err := flags.openView(ctx, flags.logger())
			if err != nil {
				return err
			}
			p, err := view.Realpath(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func newMountCmd(flags *globalFlags) *cobra.Command {
	var (
		allowOther bool
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "mount <mountpoint>",
		Short: "Mount a view read-only with FUSE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.repo == "" {
				return fmt.Errorf("mount requires --repo")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := flags.logger()
			view, err := flags.openView(ctx, logger)
			if err != nil {
				return err
			}

			server, err := fuse.Mount(view, fuse.Options{
				Mountpoint: args[0],
				AllowOther: allowOther,
				Debug:      debug,
				Logger:     logger,
			})
			if err != nil {
				return err
			}

			go func() {
				<-ctx.Done()
				if err := server.Unmount(); err != nil {
					logger.Error("failed to unmount", "mountpoint", args[0], "error", err)
				}
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "mounted %s at %s\n", view, args[0])
			server.Wait()
			return nil
		},
	}
	cmd.Flags().BoolVar(&allowOther, "allow-other", false, "allow other users to access the mount")
	cmd.Flags().BoolVar(&debug, "debug", false, "log every FUSE request")
	return cmd
}
