// Package logging provides slog loggers with a level per module.
//
// Modules used by videoloop: main, pipeline, devices, api, config, led,
// systemd. Initialize once after the configuration is loaded:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text", // or "json"
//		Modules: map[string]string{"pipeline": "debug"},
//	})
//
//	logger := logging.GetLogger("pipeline").With("source", "/dev/video0")
//	logger.Info("Source format", "format", f.String())
//
// Loggers handed out before Initialize, or before a level change through
// SetModuleLevel, follow the new settings; config file reloads rely on this.
//
// # Outputs
//
// Records go to stdout when it is a terminal, pipe, socket or file, and to
// the systemd journal when journald is reachable, or to both. Journal
// entries carry every attribute as a field, so a unit's logs can be
// filtered by what the pipeline was doing:
//
//	journalctl -t videoloop MODULE=pipeline
//	journalctl -t videoloop DEVICE=/dev/video20
//	journalctl -t videoloop STATE=fatal
//	journalctl -t videoloop ERROR_CODE=FORMAT_MISMATCH
//
// Errors that implement [Coded] add a <KEY>_CODE field next to the error
// text. Keys are upper-cased and characters journald rejects become "_".
package logging
