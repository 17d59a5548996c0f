// Package retry retries transient failures with backoff.
//
// pxfollow only retries the session bootstrap request. List pages and
// visibility changes are never retried: a failed page aborts the run and a
// failed change is recorded and skipped.
//
//	cfg := retry.FromConfig(appCfg.Retry, log)
//	page, err := retry.DoWithResult(ctx, cfg, func(ctx context.Context) ([]byte, error) {
//	    return fetch(ctx)
//	})
package retry
