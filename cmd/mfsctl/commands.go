package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/soypat/mfs"
	"github.com/spf13/cobra"
)

var truenameMode string

var truenameCmd = &cobra.Command{
	Use:   "truename PATH",
	Short: "Print the fully qualified form of a DOS path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var mode mfs.TruenameMode
		switch truenameMode {
		case "canonical":
			mode = mfs.TruenameCanonical
		case "short":
			mode = mfs.TruenameShort
		case "long":
			mode = mfs.TruenameLong
		default:
			return errors.Errorf("unknown mode %q", truenameMode)
		}
		name, err := redir.Truename(dosArg(args[0]), mode)
		if err != nil {
			return requestErr(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), guestText(name))
		return nil
	},
}

var (
	dirAttr string
	dirAll  bool
)

var dirCmd = &cobra.Command{
	Use:   "dir PATTERN",
	Short: "List the entries matching a DOS wildcard pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		attr := mfs.SearchAttr(mfs.AttrDirectory | mfs.AttrHidden | mfs.AttrSystem | mfs.AttrReadOnly | mfs.AttrArchive)
		if dirAttr != "" {
			v, err := strconv.ParseUint(dirAttr, 0, 16)
			if err != nil {
				return errors.Wrap(err, "attr")
			}
			attr = mfs.SearchAttr(v)
		}
		const owner = 1
		h, res, err := redir.FindFirst(dosArg(args[0]), attr, owner, mfs.TimeDOS)
		if err == mfs.NoMoreFiles {
			fmt.Fprintln(cmd.OutOrStdout(), "File not found")
			return nil
		} else if err != nil {
			return requestErr(err)
		}
		defer redir.FindClose(h)
		n := 0
		for ; err == nil; res, err = redir.FindNext(h, mfs.TimeDOS) {
			if res.Attr.IsHidden() && !dirAll {
				continue
			}
			printEntry(cmd, res)
			n++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%9d file(s)\n", n)
		return nil
	},
}

func printEntry(cmd *cobra.Command, res mfs.FindResult) {
	date, tm := res.Modified.DOS()
	size := fmt.Sprintf("%12d", res.Size)
	switch {
	case res.Attr.IsVolumeLabel():
		size = fmt.Sprintf("%12s", "<VOL>")
	case res.Attr.IsSubdirectory():
		size = fmt.Sprintf("%12s", "<DIR>")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s %04d-%02d-%02d %02d:%02d  %s\n",
		guestText(res.ShortName), size,
		1980+int(date>>9), (date>>5)&0xf, date&0x1f, tm>>11, (tm>>5)&0x3f,
		guestText(res.LongName))
}

var shortnameFCB bool

var shortnameCmd = &cobra.Command{
	Use:   "shortname NAME",
	Short: "Print the 8.3 name generated for a long name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := redir.GenerateShortName(dosArg(args[0]), shortnameFCB)
		if shortnameFCB {
			fmt.Fprintf(cmd.OutOrStdout(), "%q\n", guestText(name))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), guestText(name))
		}
		return nil
	},
}

var delCmd = &cobra.Command{
	Use:   "del PATH",
	Short: "Delete a file or every file matching a pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := dosArg(args[0])
		wild := strings.ContainsAny(path, "*?")
		return requestErr(redir.Delete(path, wild, mfs.SearchAttr(mfs.AttrArchive|mfs.AttrReadOnly)))
	},
}

var renCmd = &cobra.Command{
	Use:   "ren OLD NEW",
	Short: "Rename a file or directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return requestErr(redir.Rename(dosArg(args[0]), dosArg(args[1])))
	},
}

var mdCmd = &cobra.Command{
	Use:   "md PATH",
	Short: "Create a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return requestErr(redir.Mkdir(dosArg(args[0])))
	},
}

var rdCmd = &cobra.Command{
	Use:   "rd PATH",
	Short: "Remove an empty directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return requestErr(redir.Rmdir(dosArg(args[0])))
	},
}

var cdCmd = &cobra.Command{
	Use:   "cd PATH",
	Short: "Resolve a directory and print it as the new current directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := redir.Chdir(dosArg(args[0]))
		if err != nil {
			return requestErr(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), guestText(dir))
		return nil
	},
}

var attrReadOnly bool

var attrCmd = &cobra.Command{
	Use:   "attr PATH",
	Short: "Show or change the attributes of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := dosArg(args[0])
		if attrReadOnly {
			if err := redir.SetAttributes(path, mfs.AttrReadOnly); err != nil {
				return requestErr(err)
			}
		}
		a, err := redir.GetAttributes(path)
		if err != nil {
			return requestErr(err)
		}
		size, err := redir.PhysicalSize(path)
		if err != nil {
			return requestErr(err)
		}
		flags := []byte("------")
		for i, c := range "RHSVDA" {
			if a&(1<<i) != 0 {
				flags[i] = byte(c)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d %s\n", flags, size, path)
		return nil
	},
}

var volCmd = &cobra.Command{
	Use:   "vol PATH",
	Short: "Show the naming limits of a redirected volume",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := redir.VolumeInfo(dosArg(args[0]))
		if err != nil {
			return requestErr(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "filesystem %s flags %#04x max name %d max path %d\n",
			info.FSName, info.Flags, info.MaxName, info.MaxPath)
		return nil
	},
}

func init() {
	truenameCmd.Flags().StringVar(&truenameMode, "mode", "canonical", "result form: canonical, short or long")
	dirCmd.Flags().StringVar(&dirAttr, "attr", "", "search attribute word, allowed in the low and required in the high byte")
	dirCmd.Flags().BoolVarP(&dirAll, "all", "a", false, "include hidden entries")
	shortnameCmd.Flags().BoolVar(&shortnameFCB, "fcb", false, "print the blank padded 11 byte form")
	attrCmd.Flags().BoolVar(&attrReadOnly, "readonly", false, "mark the file read-only; redirected drives cannot clear the bit")
}

// dosArg converts a command line argument to the guest's code page.
func dosArg(s string) string {
	oem, _ := redir.Codec().FromHost(s)
	return oem
}

// guestText converts OEM bytes for display.
func guestText(s string) string { return redir.Codec().ToHost(s) }

func requestErr(err error) error {
	if err == mfs.ErrNotHandled {
		return errors.New("drive is not redirected")
	}
	return err
}
