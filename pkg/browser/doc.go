// Package browser implements automation.Page on a real Chrome tab through
// the DevTools protocol (chromedp).
//
// Connect attaches to a running Chrome when a debugger URL is configured,
// which keeps the user's logged-in Pixiv session, or launches a new Chrome
// otherwise. All page reads are single JavaScript evaluations; waiting and
// retrying is left to the automation machine.
package browser
