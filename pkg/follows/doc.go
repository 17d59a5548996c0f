// Package follows implements the API strategy: enumerate every account the
// subject follows, then change each one's visibility with one request at a
// time.
//
// Enumeration and mutation are deliberately sequential and paced. A failed
// page aborts the run before anything is changed, since a partial list is
// not safe to act on. A failed change is recorded and the run moves on; it
// is never retried within the same run.
//
//	pipeline := follows.NewPipeline(client, follows.PipelineConfig{
//	    PageSize:      100,
//	    PageDelay:     300 * time.Millisecond,
//	    MutationDelay: 250 * time.Millisecond,
//	    Dedupe:        true,
//	}, log)
//	pipeline.SetReporter(reporter)
//	summary, err := pipeline.Run(ctx, session, pixiv.Private)
package follows
