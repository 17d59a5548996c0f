package pixiv

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is Pixiv's web origin
	DefaultBaseURL = "https://www.pixiv.net"

	// FollowingEndpoint lists the accounts a user follows; %s is the user ID
	FollowingEndpoint = "/ajax/user/%s/following"

	// RestrictChangeEndpoint changes the visibility of one followed account
	RestrictChangeEndpoint = "/ajax/following/user/restrict_change"

	// SessionCookieName is the cookie that carries a logged-in session
	SessionCookieName = "PHPSESSID"
)

// Visibility is how a follow shows on the subject's profile
type Visibility int

const (
	Public Visibility = iota
	Private
)

// ParseVisibility accepts "public" or "private" in any case
func ParseVisibility(s string) (Visibility, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return Public, nil
	case "private":
		return Private, nil
	default:
		return Public, fmt.Errorf("unknown visibility %q", s)
	}
}

func (v Visibility) String() string {
	if v == Private {
		return "private"
	}
	return "public"
}

// Rest is the following endpoint's filter value: show lists public follows,
// hide lists private ones
func (v Visibility) Rest() string {
	if v == Private {
		return "hide"
	}
	return "show"
}

// Restrict is the restrict_change form value: 1 private, 0 public
func (v Visibility) Restrict() string {
	if v == Private {
		return "1"
	}
	return "0"
}

// Opposite returns the other visibility
func (v Visibility) Opposite() Visibility {
	if v == Private {
		return Public
	}
	return Private
}

// FollowingURL builds the URL of one page of the follow list
func FollowingURL(baseURL, userID string, offset, limit int, v Visibility, lang string) string {
	params := url.Values{}
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("rest", v.Rest())
	if lang != "" {
		params.Set("lang", lang)
	}

	path := fmt.Sprintf(FollowingEndpoint, url.PathEscape(userID))
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), path, params.Encode())
}

// RestrictChangeURL builds the URL of the visibility change endpoint
func RestrictChangeURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + RestrictChangeEndpoint
}

// FollowingPageURL is the rendered following page of userID, used as referer
// and as the page the UI automation drives
func FollowingPageURL(baseURL, lang, userID string) string {
	base := strings.TrimRight(baseURL, "/")
	if lang != "" {
		base += "/" + lang
	}
	return fmt.Sprintf("%s/users/%s/following", base, url.PathEscape(userID))
}

// SessionPageURL is the landing page whose __NEXT_DATA__ carries the session
func SessionPageURL(baseURL, lang string) string {
	base := strings.TrimRight(baseURL, "/")
	if lang != "" {
		return base + "/" + lang + "/"
	}
	return base + "/"
}
