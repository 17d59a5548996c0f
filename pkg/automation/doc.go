// Package automation drives the follow list through the rendered Pixiv page
// instead of the API.
//
// The Machine observes the page through the Page interface and sleeps on a
// ratelimit.Clock between polls, so it runs the same way against a real
// browser (see pkg/browser) and against a scripted page in tests:
//
//	m := automation.NewMachine(page, ratelimit.RealClock{}, automation.DefaultOptions(), log)
//	result, err := m.Run(ctx)
//
// Every wait is bounded. When MaxPolls observations pass without progress the
// run ends with a *StallError, except when the follow count was unknown and
// the list simply stopped changing, which is reported as Result.Exhausted.
package automation
