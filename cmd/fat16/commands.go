package main

import (
	"fmt"
	"io"
	"os"
	"path"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/aligator/fat16"
	"github.com/aligator/fat16/blockdevice"
	"github.com/aligator/fat16/checkpoint"
)

func newFormatCmd(opts *globalOptions) *cobra.Command {
	var (
		size   string
		format fat16.FormatOptions
	)

	cmd := &cobra.Command{
		Use:   "format",
		Short: "Format the image with an empty FAT16 volume",
		Long: "Format writes a new boot sector and empty FATs and prepares the volume.\n" +
			"With --size the image is created (or truncated) first.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var img *blockdevice.Image
			if size != "" {
				bytes, err := humanize.ParseBytes(size)
				if err != nil {
					return err
				}
				if opts.image == "" {
					return checkpoint.New(errNoImage)
				}
				img, err = blockdevice.CreateImage(hostFs, opts.image, uint32(bytes/blockdevice.SectorSize))
				if err != nil {
					return err
				}
			} else if img, err = opts.openImage(); err != nil {
				return err
			}
			defer func() {
				err = multierr.Append(err, img.Close())
			}()

			bs, err := fat16.Format(img, format)
			if err != nil {
				return err
			}
			v, err := opts.newVolume(img)
			if err != nil {
				return err
			}
			if _, err := v.Setup(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "formatted %s: %s, %s clusters\n",
				opts.image,
				humanize.IBytes(uint64(bs.Sectors())*blockdevice.SectorSize),
				humanize.IBytes(uint64(bs.SectorsPerCluster)*blockdevice.SectorSize))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&size, "size", "", "Create the image with this size, e.g. 16MiB")
	flags.StringVar(&format.VolumeLabel, "label", "", "Volume label")
	flags.StringVar(&format.OEMName, "oem", "", "OEM name")
	flags.Uint32Var(&format.VolumeID, "id", 0, "Volume serial number")
	flags.Uint8Var(&format.SectorsPerCluster, "cluster-sectors", 0, "Sectors per cluster, a power of two (default: smallest fitting)")
	flags.Uint8Var(&format.FATCount, "fats", 0, "Number of FAT copies (default 2)")
	flags.Uint16Var(&format.RootEntries, "root-entries", 0, "Capacity of the root directory (default 512)")
	return cmd
}

func newSetupCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Write the FAT signature and root entries if they are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withVolume(func(v *fat16.Volume) error {
				initialized, err := v.Setup()
				if err != nil {
					return err
				}
				if initialized {
					fmt.Fprintln(cmd.OutOrStdout(), "initialized")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "already initialized")
				}
				return nil
			})
		},
	}
}

func newInfoCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the volume geometry and usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withVolume(func(v *fat16.Volume) error {
				info, err := v.Info()
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 1, ' ', 0)
				cluster := uint64(info.BytesPerCluster)
				fmt.Fprintf(w, "OEM name:\t%s\n", info.OEMName)
				fmt.Fprintf(w, "Volume label:\t%s\n", info.VolumeLabel)
				fmt.Fprintf(w, "Volume ID:\t%08X\n", info.VolumeID)
				fmt.Fprintf(w, "Size:\t%s\n", humanize.IBytes(uint64(info.TotalSectors)*blockdevice.SectorSize))
				fmt.Fprintf(w, "Cluster size:\t%s\n", humanize.IBytes(cluster))
				fmt.Fprintf(w, "FATs:\t%d x %d sectors\n", info.FATCount, info.SectorsPerFAT)
				fmt.Fprintf(w, "Root entries:\t%d\n", info.RootEntries)
				fmt.Fprintf(w, "First data sector:\t%d\n", info.FirstDataSector)
				fmt.Fprintf(w, "Clusters:\t%d (%d free)\n", info.TotalClusters, info.FreeClusters)
				fmt.Fprintf(w, "Free:\t%s\n", humanize.IBytes(uint64(info.FreeClusters)*cluster))
				return w.Flush()
			})
		},
	}
}

func printEntry(w io.Writer, name string, info os.FileInfo) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		info.Mode(),
		humanize.IBytes(uint64(info.Size())),
		info.ModTime().Format("2006-01-02 15:04:05"),
		name)
}

func newLsCmd(opts *globalOptions) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "/"
			if len(args) > 0 {
				dir = args[0]
			}

			return opts.withVolume(func(v *fat16.Volume) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fs := fat16.NewFs(v)

				if recursive {
					err := afero.Walk(fs, dir, func(p string, info os.FileInfo, err error) error {
						if err != nil {
							return err
						}
						printEntry(w, p, info)
						return nil
					})
					if err != nil {
						return err
					}
					return w.Flush()
				}

				entries, err := afero.ReadDir(fs, dir)
				if err != nil {
					return err
				}
				for _, info := range entries {
					printEntry(w, info.Name(), info)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "List all subdirectories")
	return cmd
}

func newStatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Print the directory entry of a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withVolume(func(v *fat16.Volume) error {
				e, err := v.Stat(args[0])
				if err != nil {
					return err
				}

				info := e.FileInfo()
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 1, ' ', 0)
				fmt.Fprintf(w, "Name:\t%s\n", info.Name())
				fmt.Fprintf(w, "Mode:\t%s\n", info.Mode())
				fmt.Fprintf(w, "Attributes:\t%#02x\n", e.Flags)
				fmt.Fprintf(w, "Size:\t%d (%s)\n", e.Size, humanize.IBytes(uint64(e.Size)))
				fmt.Fprintf(w, "First cluster:\t%d\n", e.Cluster())
				fmt.Fprintf(w, "Created:\t%s\n", fat16.ParseTimestamp(e.CreateDate, e.CreateTime).Format("2006-01-02 15:04:05"))
				fmt.Fprintf(w, "Modified:\t%s\n", info.ModTime().Format("2006-01-02 15:04:05"))
				return w.Flush()
			})
		},
	}
}

func newMkdirCmd(opts *globalOptions) *cobra.Command {
	var parents bool

	cmd := &cobra.Command{
		Use:   "mkdir <path>...",
		Short: "Create directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withVolume(func(v *fat16.Volume) error {
				fs := fat16.NewFs(v)
				for _, p := range args {
					var err error
					if parents {
						err = fs.MkdirAll(p, 0o777)
					} else {
						err = fs.Mkdir(p, 0o777)
					}
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&parents, "parents", "p", false, "Create missing parent directories")
	return cmd
}

func newTouchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "touch <path>...",
		Short: "Create empty files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withVolume(func(v *fat16.Volume) error {
				for _, p := range args {
					if err := v.CreateFile(p); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newWriteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "write <path> [local file]",
		Short: "Replace the content of a file, creating it if needed",
		Long:  "Write copies a local file, or stdin if none is given, into the volume.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 2 {
				data, err = afero.ReadFile(hostFs, args[1])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			return opts.withVolume(func(v *fat16.Volume) error {
				if !v.PathExists(args[0]) {
					if err := v.CreateFile(args[0]); err != nil {
						return err
					}
				}
				return v.WriteFile(args[0], data)
			})
		},
	}
}

func newCatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>...",
		Short: "Print files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withVolume(func(v *fat16.Volume) error {
				fs := fat16.NewFs(v)
				for _, p := range args {
					f, err := fs.Open(p)
					if err != nil {
						return err
					}
					_, err = io.Copy(cmd.OutOrStdout(), f)
					if err = multierr.Append(err, f.Close()); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newRmCmd(opts *globalOptions) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "rm <path>...",
		Short: "Remove files and empty directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withVolume(func(v *fat16.Volume) error {
				fs := fat16.NewFs(v)
				for _, p := range args {
					var err error
					if recursive {
						err = fs.RemoveAll(p)
					} else {
						err = fs.Remove(p)
					}
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Remove directories and their contents")
	return cmd
}

func newMvCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <old> <new>",
		Short: "Rename or move a file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[1]
			return opts.withVolume(func(v *fat16.Volume) error {
				// Moving into an existing directory keeps the name.
				if v.IsDirectory(target) {
					target = path.Join(target, path.Base(args[0]))
				}
				return v.Rename(args[0], target)
			})
		},
	}
}
