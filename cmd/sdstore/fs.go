package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tenrok/sdstore/remote"
)

var (
	deepListing         bool
	visibility          string
	directoryVisibility string
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List directory contents",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Write a file to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runCat,
}

var putCmd = &cobra.Command{
	Use:   "put <path> [local-file]",
	Short: "Upload a local file or stdin",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runPut,
}

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Delete a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var rmdirCmd = &cobra.Command{
	Use:   "rmdir <path>",
	Short: "Delete a directory and everything in it",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoveDir,
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runMakeDir,
}

var existsCmd = &cobra.Command{
	Use:   "exists <path>",
	Short: "Report whether a file or directory exists",
	Args:  cobra.ExactArgs(1),
	RunE:  runExists,
}

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Show file metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runStat,
}

var mvCmd = &cobra.Command{
	Use:   "mv <source> <destination>",
	Short: "Move a file",
	Args:  cobra.ExactArgs(2),
	RunE:  runTransfer(false),
}

var cpCmd = &cobra.Command{
	Use:   "cp <source> <destination>",
	Short: "Copy a file",
	Args:  cobra.ExactArgs(2),
	RunE:  runTransfer(true),
}

var visibilityCmd = &cobra.Command{
	Use:   "visibility <path> [public|private]",
	Short: "Show or change file visibility",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runVisibility,
}

func init() {
	lsCmd.Flags().BoolVarP(&deepListing, "recursive", "r", false, "List subdirectories recursively")
	putCmd.Flags().StringVar(&visibility, "visibility", "", "File visibility: public or private")
	mkdirCmd.Flags().StringVar(&directoryVisibility, "visibility", "", "Directory visibility: public or private")
	for _, c := range []*cobra.Command{mvCmd, cpCmd} {
		c.Flags().StringVar(&visibility, "visibility", "", "Destination file visibility")
		c.Flags().StringVar(&directoryVisibility, "directory-visibility", "", "Visibility of created parent directories")
	}

	rootCmd.AddCommand(lsCmd, catCmd, putCmd, rmCmd, rmdirCmd, mkdirCmd, existsCmd, statCmd, mvCmd, cpCmd, visibilityCmd)
}

func options() []remote.Option {
	return []remote.Option{
		remote.WithVisibility(remote.Visibility(visibility)),
		remote.WithDirectoryVisibility(remote.Visibility(directoryVisibility)),
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func runList(cmd *cobra.Command, args []string) error {
	storage, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	var location string
	if len(args) > 0 {
		location = args[0]
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer w.Flush()
	for entry, err := range storage.ListContents(cmd.Context(), location, deepListing) {
		if err != nil {
			return err
		}
		switch e := entry.(type) {
		case *remote.FileAttributes:
			size := "-"
			if e.FileSize != nil {
				size = fmt.Sprint(*e.FileSize)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Type(), e.Visibility, size, formatTime(e.LastModified), e.Path)
		case *remote.DirectoryAttributes:
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Type(), e.Visibility, "-", formatTime(e.LastModified), e.Path+"/")
		}
	}
	return nil
}

func runCat(cmd *cobra.Command, args []string) error {
	storage, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	rc, err := storage.ReadStream(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(cmd.OutOrStdout(), rc)
	return err
}

func runPut(cmd *cobra.Command, args []string) error {
	storage, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}

	var r io.Reader = cmd.InOrStdin()
	if len(args) == 2 && args[1] != "-" {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	return storage.WriteStream(cmd.Context(), args[0], r, options()...)
}

func runRemove(cmd *cobra.Command, args []string) error {
	storage, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	return storage.Delete(cmd.Context(), args[0])
}

func runRemoveDir(cmd *cobra.Command, args []string) error {
	storage, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	return storage.DeleteDirectory(cmd.Context(), args[0])
}

func runMakeDir(cmd *cobra.Command, args []string) error {
	storage, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	return storage.CreateDirectory(cmd.Context(), args[0], options()...)
}

func runExists(cmd *cobra.Command, args []string) error {
	storage, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	ok, err := storage.FileExists(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(cmd.OutOrStdout(), "file")
		return nil
	}
	ok, err = storage.DirectoryExists(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(cmd.OutOrStdout(), "dir")
		return nil
	}
	return fmt.Errorf("%s: not found", args[0])
}

func runStat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	storage, err := openStorage(ctx)
	if err != nil {
		return err
	}

	vis, err := storage.Visibility(ctx, args[0])
	if err != nil {
		return err
	}
	mimeType, err := storage.MimeType(ctx, args[0])
	if err != nil {
		return err
	}
	modified, err := storage.LastModified(ctx, args[0])
	if err != nil {
		return err
	}
	size, err := storage.FileSize(ctx, args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "path\t%s\n", args[0])
	fmt.Fprintf(w, "visibility\t%s\n", vis.Visibility)
	fmt.Fprintf(w, "mime type\t%s\n", mimeType.MimeType)
	fmt.Fprintf(w, "modified\t%s\n", formatTime(modified.LastModified))
	if size.FileSize != nil {
		fmt.Fprintf(w, "size\t%d\n", *size.FileSize)
	}
	return w.Flush()
}

func runTransfer(keepSource bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		storage, err := openStorage(cmd.Context())
		if err != nil {
			return err
		}
		if keepSource {
			return storage.Copy(cmd.Context(), args[0], args[1], options()...)
		}
		return storage.Move(cmd.Context(), args[0], args[1], options()...)
	}
}

func runVisibility(cmd *cobra.Command, args []string) error {
	storage, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	if len(args) == 2 {
		return storage.SetVisibility(cmd.Context(), args[0], remote.Visibility(args[1]))
	}
	attrs, err := storage.Visibility(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), attrs.Visibility)
	return nil
}
