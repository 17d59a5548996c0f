// Package logger provides structured logging for pxfollow on top of zerolog.
//
// The global logger is configured once from the logging section of the
// configuration and then reached through GetLogger or the package-level
// helpers:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("direction", "private")
//	log.InfoWithFields("page fetched", map[string]interface{}{
//	    "offset": 100,
//	    "count":  100,
//	})
//
// Components take a Logger in their constructors. Tests pass NewNopLogger to
// silence output or NewTestLogger to assert on what was logged.
package logger
