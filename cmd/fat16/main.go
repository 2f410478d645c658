// Command fat16 inspects and modifies FAT16 image files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/aligator/fat16"
	"github.com/aligator/fat16/blockdevice"
	"github.com/aligator/fat16/checkpoint"
	"github.com/aligator/fat16/heap"
)

// hostFs is where image files and local input files are read from.
var hostFs = afero.NewOsFs()

var errNoImage = errors.New("no image given, use --image")

type globalOptions struct {
	image     string
	arenaSize uint32
	metrics   bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "fat16",
		Short:         "Inspect and modify FAT16 image files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.metrics {
				return nil
			}
			return printMetrics(cmd.ErrOrStderr(), prometheus.DefaultGatherer)
		},
	}

	opts.bind(root.PersistentFlags())

	root.AddCommand(
		newFormatCmd(opts),
		newSetupCmd(opts),
		newInfoCmd(opts),
		newLsCmd(opts),
		newStatCmd(opts),
		newMkdirCmd(opts),
		newTouchCmd(opts),
		newWriteCmd(opts),
		newCatCmd(opts),
		newRmCmd(opts),
		newMvCmd(opts),
	)
	return root
}

func (o *globalOptions) bind(flags *pflag.FlagSet) {
	flags.StringVarP(&o.image, "image", "i", "", "Path of the image file")
	flags.Uint32Var(&o.arenaSize, "arena-size", heap.DefaultCapacity, "Bytes of scratch memory available to volume operations")
	flags.BoolVar(&o.metrics, "metrics", false, "Print the collected metrics to stderr when done")
	// glog registers its flags on the standard flag set.
	flags.AddGoFlagSet(flag.CommandLine)
}

// withVolume opens the image and runs fn on a volume for it. The image is
// closed afterwards.
func (o *globalOptions) withVolume(fn func(v *fat16.Volume) error) (err error) {
	img, err := o.openImage()
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, img.Close())
	}()

	v, err := o.newVolume(img)
	if err != nil {
		return err
	}
	return fn(v)
}

func (o *globalOptions) openImage() (*blockdevice.Image, error) {
	if o.image == "" {
		return nil, checkpoint.New(errNoImage)
	}
	return blockdevice.OpenImage(hostFs, o.image)
}

func (o *globalOptions) newVolume(dev blockdevice.Device) (*fat16.Volume, error) {
	arena, err := heap.New(heap.DefaultOrigin, o.arenaSize)
	if err != nil {
		return nil, err
	}
	if o.metrics {
		dev = blockdevice.NewMetricsDevice(dev)
	}
	return fat16.New(dev, arena)
}

// printMetrics writes all counters of the fat16 namespace.
func printMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}

	var lines []string
	for _, family := range families {
		if family.GetType() != dto.MetricType_COUNTER || !strings.HasPrefix(family.GetName(), "fat16_") {
			continue
		}
		for _, m := range family.GetMetric() {
			name := family.GetName()
			for _, label := range m.GetLabel() {
				name += fmt.Sprintf(" %s=%s", label.GetName(), label.GetValue())
			}
			lines = append(lines, fmt.Sprintf("%s %v", name, m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	defer glog.Flush()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		glog.Flush()
		os.Exit(1)
	}
}
