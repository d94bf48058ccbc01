package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/smazurov/videoloop/internal/config"
	"github.com/smazurov/videoloop/internal/devices"
	"github.com/smazurov/videoloop/internal/pipeline"
	"github.com/smazurov/videoloop/pkg/linuxav/v4l2"
	"github.com/spf13/cobra"
)

// infoOptions picks the configured devices out of the main config file.
type infoOptions struct {
	Config string
	Source string `toml:"devices.source" env:"DEVICES_SOURCE"`
	Sink   string `toml:"devices.sink" env:"DEVICES_SINK"`
}

// inspector prints what a device reports about itself.
type inspector struct {
	out         io.Writer
	opener      pipeline.Opener
	formats     func(path string, typ v4l2.BufType) ([]v4l2.FormatInfo, error)
	resolutions func(path string, pixelFormat uint32) ([]v4l2.Resolution, error)
}

// CreateInfoCmd creates the info command.
func CreateInfoCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "info [device...]",
		Short: "Show capabilities and formats of video devices",
		Long: `Prints driver capabilities, the active format, stream parameters and the ` +
			`supported formats of each device. Without arguments the source and sink ` +
			`from the configuration are shown.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				opts := infoOptions{Config: configFile, Source: "/dev/video0", Sink: "/dev/video20"}
				if err := config.LoadConfig(&opts, nil); err != nil {
					return err
				}
				names = []string{opts.Source, opts.Sink}
			}

			ins := &inspector{
				out:         cmd.OutOrStdout(),
				opener:      pipeline.V4L2Opener{},
				formats:     devices.Formats,
				resolutions: devices.Resolutions,
			}

			var errs []error
			for i, name := range names {
				if i > 0 {
					fmt.Fprintln(ins.out)
				}
				path, err := devices.ResolvePath(name)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", name, err))
					continue
				}
				if err := ins.describe(path); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "videoloop.toml", "Path to configuration file")
	return cmd
}

func (ins *inspector) describe(path string) error {
	dev, err := ins.opener.Open(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	caps, err := dev.Capability()
	if err != nil {
		return err
	}

	fmt.Fprintf(ins.out, "Device: %s\n", path)
	fmt.Fprintf(ins.out, "  Driver:       %s (%s)\n", caps.Driver, caps.VersionString())
	fmt.Fprintf(ins.out, "  Card:         %s\n", caps.Card)
	fmt.Fprintf(ins.out, "  Bus:          %s\n", caps.BusInfo)
	fmt.Fprintf(ins.out, "  Capabilities: 0x%08x %s\n", caps.Effective(), capNames(caps))

	var queues []v4l2.BufType
	if caps.CanCapture() {
		queues = append(queues, v4l2.BufTypeVideoCapture)
	}
	if caps.CanOutput() {
		queues = append(queues, v4l2.BufTypeVideoOutput)
	}
	if len(queues) == 0 {
		fmt.Fprintln(ins.out, "  No video capture or output queue")
	}

	for _, typ := range queues {
		ins.describeQueue(dev, typ)
	}
	return nil
}

// describeQueue prints one queue. Query failures are shown inline; loopback
// devices reject several of them until a producer has set a format.
func (ins *inspector) describeQueue(dev pipeline.Device, typ v4l2.BufType) {
	fmt.Fprintf(ins.out, "  %s:\n", strings.ToUpper(typ.String()[:1])+typ.String()[1:])

	if f, err := dev.Format(typ); err != nil {
		fmt.Fprintf(ins.out, "    Format:     unavailable (%v)\n", err)
	} else {
		fmt.Fprintf(ins.out, "    Format:     %s\n", f)
	}

	if params, err := dev.Params(typ); err != nil {
		fmt.Fprintf(ins.out, "    Parameters: unavailable (%v)\n", err)
	} else {
		fmt.Fprintf(ins.out, "    Parameters: %.2f fps, %d read buffers\n", params.TimePerFrame.FPS(), params.Buffers)
	}

	formats, err := ins.formats(dev.Path(), typ)
	if err != nil {
		fmt.Fprintf(ins.out, "    Formats:    unavailable (%v)\n", err)
		return
	}
	if len(formats) == 0 {
		fmt.Fprintln(ins.out, "    Formats:    none")
		return
	}
	fmt.Fprintln(ins.out, "    Formats:")
	for _, f := range formats {
		line := fmt.Sprintf("      %s %s", v4l2.FormatFourCC(f.PixelFormat), f.FormatName)
		if f.Emulated {
			line += " (emulated)"
		}
		if sizes, err := ins.resolutions(dev.Path(), f.PixelFormat); err == nil && len(sizes) > 0 {
			list := make([]string, 0, len(sizes))
			for _, r := range sizes {
				list = append(list, fmt.Sprintf("%dx%d", r.Width, r.Height))
			}
			line += ": " + strings.Join(list, " ")
		}
		fmt.Fprintln(ins.out, line)
	}
}

func capNames(caps v4l2.Capability) string {
	var names []string
	if caps.CanCapture() {
		names = append(names, "capture")
	}
	if caps.CanOutput() {
		names = append(names, "output")
	}
	if caps.Effective()&v4l2.CapVideoM2M != 0 {
		names = append(names, "m2m")
	}
	if caps.CanStream() {
		names = append(names, "streaming")
	}
	if caps.Effective()&v4l2.CapReadWrite != 0 {
		names = append(names, "readwrite")
	}
	return "[" + strings.Join(names, " ") + "]"
}
