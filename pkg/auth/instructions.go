package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieGuide explains how to copy the PHPSESSID cookie from a browser
func ShowCookieGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "PIXIV SESSION COOKIE")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "pxfollow uses your Pixiv login cookie to list and update your follows.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Log in at https://www.pixiv.net in your browser.")
	fmt.Fprintln(w, "2. Open Developer Tools (F12, or Cmd+Option+I on macOS).")
	fmt.Fprintln(w, "3. Chrome/Edge: Application tab. Firefox: Storage tab.")
	fmt.Fprintln(w, "4. Under Cookies, select https://www.pixiv.net.")
	fmt.Fprintln(w, "5. Copy the value of the PHPSESSID cookie.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The value looks like 12345678_AbCdEfGhIjKlMnOpQrStUvWxYz012345,")
	fmt.Fprintln(w, "your numeric user ID, an underscore and a random string.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The cookie gives full access to your Pixiv account. Never share it.")
	fmt.Fprintln(w, "pxfollow keeps it in your system keychain or an encrypted file.")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
}

// LooksLikeSessionCookie is a loose shape check for PHPSESSID values
func LooksLikeSessionCookie(cookie string) bool {
	_, ok := UserIDFromCookie(cookie)
	return ok && len(cookie) >= 20 && !strings.ContainsAny(cookie, " ;=")
}
