// Package storage writes run reports.
//
// A report is one JSON file per run holding the run's identity, its summary
// and, for API runs, the outcome of every attempted change. Files are
// written atomically using a temporary file and rename.
//
// Usage:
//
//	manager, err := storage.NewManager(cfg.Output.ReportDirectory)
//	if err != nil {
//	    return err
//	}
//	path, err := manager.SaveReport(report)
package storage
