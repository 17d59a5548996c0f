// Package pixiv is a client for the parts of Pixiv's AJAX API that list and
// re-classify the accounts a user follows.
//
// Every call carries the PHPSESSID session cookie. Listing needs the
// subject's user ID in an x-user-id header; changing an account's visibility
// needs the CSRF token found in the page's embedded __NEXT_DATA__ script.
//
//	client := pixiv.NewClient(cfg.Pixiv, log)
//	session, err := client.FetchSession(ctx)
//	if err != nil {
//	    return err
//	}
//	page, err := client.Following(ctx, session.UserID, 0, 100, pixiv.Public)
//	...
//	err = client.SetRestrict(ctx, session, page.Users[0].UserID, pixiv.Private)
//
// Errors are *errors.Error values typed by HTTP status, with the API
// envelope's message when one was returned.
package pixiv
