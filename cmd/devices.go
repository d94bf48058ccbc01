package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/smazurov/videoloop/internal/devices"
	"github.com/smazurov/videoloop/pkg/linuxav/v4l2"
	"github.com/spf13/cobra"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List video capture and output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			found, err := devices.List()
			if err != nil {
				return err
			}
			if asJSON {
				return writeDevicesJSON(cmd.OutOrStdout(), found)
			}
			return writeDevicesTable(cmd.OutOrStdout(), found)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print devices as JSON")
	return cmd
}

type deviceJSON struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	ID      string `json:"id"`
	Capture bool   `json:"capture"`
	Output  bool   `json:"output"`
}

func writeDevicesJSON(w io.Writer, found []v4l2.DeviceInfo) error {
	list := make([]deviceJSON, 0, len(found))
	for _, d := range found {
		list = append(list, deviceJSON{
			Path:    d.DevicePath,
			Name:    d.DeviceName,
			ID:      d.DeviceID,
			Capture: d.CanCapture(),
			Output:  d.CanOutput(),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(list)
}

func writeDevicesTable(w io.Writer, found []v4l2.DeviceInfo) error {
	if len(found) == 0 {
		_, err := fmt.Fprintln(w, "No video devices found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tDIRECTION\tNAME\tID")
	for _, d := range found {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.DevicePath, direction(d), d.DeviceName, d.DeviceID)
	}
	return tw.Flush()
}

func direction(d v4l2.DeviceInfo) string {
	switch {
	case d.CanCapture() && d.CanOutput():
		return "capture+output"
	case d.CanCapture():
		return "capture"
	case d.CanOutput():
		return "output"
	default:
		return "-"
	}
}
