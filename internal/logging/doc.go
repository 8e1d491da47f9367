// Package logging provides structured logging for the tagstore database.
//
// # Overview
//
// The package exposes a small Logger interface backed by logrus:
//
//   - Four log levels (debug, info, warn, error)
//   - Text and JSON output formats
//   - Field-based contextual logging
//
// # Creating a Logger
//
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/var/log/tagstore.log",
//	})
//
// For testing, use a no-op logger or wrap a logrus test logger:
//
//	logger := logging.NewNop()
//
//	base, hook := test.NewNullLogger()
//	logger := logging.FromLogrus(base)
//	// ... hook.Entries holds every logged entry
//
// # Diagnostic Sink
//
// The tag index and the B-tree iterable never return storage errors to
// their callers. They log them at error level with the error attached and
// substitute an empty result, so the Logger handed to them is where such
// failures surface.
package logging
