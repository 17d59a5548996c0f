package pixiv

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	errs "pxfollow/pkg/errors"
	"pxfollow/pkg/retry"
)

const nextDataScriptID = "__NEXT_DATA__"

// FetchSession loads the landing page with the session cookie and extracts
// the CSRF token and user ID from it. Transient failures of the page load
// are retried; a page without a usable session is a precondition error.
func (c *Client) FetchSession(ctx context.Context) (Session, error) {
	pageURL := SessionPageURL(c.baseURL, c.language)

	session, err := retry.DoWithResult(ctx, c.retry, func(ctx context.Context) (Session, error) {
		req, err := c.newRequest(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return Session{}, err
		}
		req.Header.Set("Accept", "text/html,application/xhtml+xml")
		req.Header.Set("Sec-Fetch-Dest", "document")
		req.Header.Set("Sec-Fetch-Mode", "navigate")

		resp, err := c.doRequest(req)
		if err != nil {
			return Session{}, err
		}
		defer resp.Body.Close()

		if err := c.checkResponseStatus(resp, ""); err != nil {
			return Session{}, err
		}
		return ExtractSession(resp.Body)
	})
	if err != nil {
		return Session{}, err
	}

	c.logger.InfoWithFields("session extracted", map[string]interface{}{
		"user_id": session.UserID,
	})
	return session, nil
}

// ExtractSession reads an HTML document and returns the session found in its
// __NEXT_DATA__ script
func ExtractSession(r io.Reader) (Session, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Session{}, errs.Wrap(errs.ErrorTypePrecondition, err, "failed to parse page")
	}

	script := findElementByID(doc, "script", nextDataScriptID)
	if script == nil {
		return Session{}, errs.New(errs.ErrorTypePrecondition,
			"could not find Pixiv's data element (#__NEXT_DATA__)")
	}

	var data nextData
	if err := json.Unmarshal([]byte(textContent(script)), &data); err != nil {
		return Session{}, errs.Wrap(errs.ErrorTypePrecondition, err, "failed to decode __NEXT_DATA__")
	}

	serialized := data.Props.PageProps.ServerSerializedPreloadedState
	if serialized == "" {
		return Session{}, errs.New(errs.ErrorTypePrecondition,
			"__NEXT_DATA__ has no preloaded state, the page structure may have changed")
	}

	var state preloadedState
	if err := json.Unmarshal([]byte(serialized), &state); err != nil {
		return Session{}, errs.Wrap(errs.ErrorTypePrecondition, err, "failed to decode preloaded state")
	}

	session := Session{Token: state.API.Token}
	if state.UserData.Self != nil {
		session.UserID = state.UserData.Self.ID.String()
	}
	if err := session.Validate(); err != nil {
		return Session{}, errs.Wrap(errs.ErrorTypePrecondition, err,
			"could not extract token or user ID, the session may be logged out")
	}
	return session, nil
}

// findElementByID walks the tree depth-first for the first tag element with
// the given id attribute
func findElementByID(n *html.Node, tag, id string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag && getAttr(n, "id") == id {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElementByID(child, tag, id); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		}
	}
	return sb.String()
}
