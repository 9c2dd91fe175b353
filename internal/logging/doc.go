// Package logging provides structured logging for the tracker.
//
// It wraps log/slog with a JSON handler and adds persistent context
// attributes so every line written while handling a request can be traced
// back to the team and request involved.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(dir, "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.WithTeam("Avionics").WithRequest(4).Info("request created", "source", 1)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"request created","team":"Avionics","request_id":4,"source":1}
//
// # Rotation
//
// [NewLoggerWithRotation] writes through a [RotatingWriter], which renames
// debug.log to debug.log.1 once it reaches the configured size and keeps a
// bounded number of backups, optionally gzipped.
//
// # Aggregation
//
// [AggregateLogs], [FilterLogs] and [ExportLogEntries] read the JSON lines
// back for the "logs" command:
//
//	entries, _ := logging.AggregateLogs(dir)
//	warnings := logging.FilterLogs(entries, logging.LogFilter{Level: "WARN", RequestID: 4})
//	_ = logging.ExportLogEntries(warnings, "out.csv", "csv")
//
// # Thread Safety
//
// [Logger] and [RotatingWriter] are safe for concurrent use. Child loggers
// created with the With* methods share the parent's writer.
package logging
