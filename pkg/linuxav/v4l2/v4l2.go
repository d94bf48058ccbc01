//go:build linux

// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2) API
// for device enumeration, format negotiation and memory-mapped streaming.
//
// This package does not use cgo, enabling simple cross-compilation for
// different Linux architectures (amd64, arm64, arm).
//
// # Device Enumeration
//
// Use FindDevices to discover all V4L2 capture and output devices:
//
//	devices, err := v4l2.FindDevices()
//	for _, dev := range devices {
//	    fmt.Printf("%s: %s\n", dev.DevicePath, dev.DeviceName)
//	}
//
// # Formats
//
// Open a device to read or change the format of one of its queues. The
// driver may adjust a requested format, so always use the returned value:
//
//	dev, _ := v4l2.Open("/dev/video20")
//	applied, err := dev.SetFormat(v4l2.BufTypeVideoOutput, requested)
//
// # Streaming
//
// MmapStream maps a ring of driver buffers into memory. Dequeue hands out
// one buffer at a time and Release gives it back to the driver:
//
//	stream, _ := v4l2.NewMmapStream(dev, v4l2.BufTypeVideoCapture, 4)
//	defer stream.Close()
//	buf, err := stream.Dequeue(ctx)
//	frame := buf.Data()[:buf.Metadata().BytesUsed]
//	// ...
//	buf.Release()
package v4l2
