package pixiv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pxfollow/pkg/config"
	errs "pxfollow/pkg/errors"
	"pxfollow/pkg/logger"
	"pxfollow/pkg/retry"
)

const bodyPreviewLimit = 200

// Client talks to Pixiv's AJAX API on behalf of one session cookie
type Client struct {
	httpClient    *http.Client
	headers       map[string]string
	baseURL       string
	language      string
	sessionCookie string
	retry         *retry.Config
	logger        logger.Logger
}

// NewClient creates a client from the pixiv section of the configuration
func NewClient(cfg config.PixivConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	headers := map[string]string{
		"Accept":          "application/json",
		"Accept-Language": "en-US,en;q=0.9",
		"Cache-Control":   "no-cache",
		"Pragma":          "no-cache",
		"Sec-Fetch-Dest":  "empty",
		"Sec-Fetch-Mode":  "cors",
		"Sec-Fetch-Site":  "same-origin",
	}
	if cfg.UserAgent != "" {
		headers["User-Agent"] = cfg.UserAgent
	}

	rc := retry.DefaultConfig()
	rc.Logger = log

	return &Client{
		httpClient:    &http.Client{Timeout: cfg.RequestTimeout},
		headers:       headers,
		baseURL:       strings.TrimRight(baseURL, "/"),
		language:      cfg.Language,
		sessionCookie: cfg.SessionCookie,
		retry:         rc,
		logger:        log,
	}
}

// SetHeader sets a custom header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetRetry replaces the retry policy used by FetchSession
func (c *Client) SetRetry(rc *retry.Config) {
	if rc != nil {
		c.retry = rc
	}
}

// BaseURL returns the origin requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Language returns the lang query value
func (c *Client) Language() string {
	return c.language
}

// newRequest builds a request with the shared headers and session cookie
func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if c.sessionCookie != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: c.sessionCookie})
	}
	return req, nil
}

// doRequest performs req and logs its timing. Transport failures come back
// as network errors.
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "network error")
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// readBody reads the whole response body
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
			Err:     err,
		}
	}
	return body, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > bodyPreviewLimit {
		s = s[:bodyPreviewLimit] + "..."
	}
	return s
}

// checkResponseStatus maps non-2xx statuses to typed errors. message is the
// API envelope message when the body carried one.
func (c *Client) checkResponseStatus(resp *http.Response, message string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	errType := errs.FromStatus(resp.StatusCode)
	if message == "" {
		message = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
	}

	fields := map[string]interface{}{
		"status":  resp.StatusCode,
		"type":    string(errType),
		"message": message,
	}
	if resp.Request != nil {
		fields["url"] = resp.Request.URL.String()
	}
	if errType == errs.ErrorTypeServerError {
		c.logger.ErrorWithFields("server error", fields)
	} else {
		c.logger.WarnWithFields("request rejected", fields)
	}

	return &errs.Error{Type: errType, Message: message, Code: resp.StatusCode}
}

// decodeEnvelope decodes body into an envelope, returning a parsing error
// with a body preview on failure
func decodeEnvelope[T any](c *Client, body []byte, status int, target *Envelope[T]) error {
	if err := json.Unmarshal(body, target); err != nil {
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"status":       status,
			"error":        err.Error(),
			"body_preview": preview(body),
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    status,
			Err:     err,
		}
	}
	return nil
}

// Following fetches one page of the accounts userID follows with visibility v
func (c *Client) Following(ctx context.Context, userID string, offset, limit int, v Visibility) (*FollowingBody, error) {
	pageURL := FollowingURL(c.baseURL, userID, offset, limit, v, c.language)

	req, err := c.newRequest(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-user-id", userID)

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	// error envelopes carry an empty array body, so the page is decoded only
	// after the error flag is checked
	var envelope Envelope[json.RawMessage]
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// error pages may still carry an envelope message
		_ = json.Unmarshal(body, &envelope)
		return nil, c.checkResponseStatus(resp, envelope.Message)
	}
	if err := decodeEnvelope(c, body, resp.StatusCode, &envelope); err != nil {
		return nil, err
	}
	if envelope.Error {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeAPI,
			Message: envelopeMessage(envelope.Message),
			Code:    resp.StatusCode,
		}
	}

	var page FollowingBody
	if err := json.Unmarshal(envelope.Body, &page); err != nil {
		c.logger.ErrorWithFields("failed to parse following page", map[string]interface{}{
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview(body),
		})
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
			Err:     err,
		}
	}
	return &page, nil
}

// SetRestrict sets the visibility of one followed account. The endpoint sets
// rather than toggles, so repeating a call is harmless.
func (c *Client) SetRestrict(ctx context.Context, session Session, targetUserID string, v Visibility) error {
	form := url.Values{}
	form.Set("user_id", targetUserID)
	form.Set("restrict", v.Restrict())

	req, err := c.newRequest(ctx, http.MethodPost, RestrictChangeURL(c.baseURL), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	req.Header.Set("x-csrf-token", session.Token)
	req.Header.Set("Referer", FollowingPageURL(c.baseURL, c.language, session.UserID))
	req.Header.Set("Origin", c.baseURL)

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return err
	}

	var envelope Envelope[json.RawMessage]
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	var decodeErr error
	if ok {
		decodeErr = decodeEnvelope(c, body, resp.StatusCode, &envelope)
	} else {
		_ = json.Unmarshal(body, &envelope)
	}

	if !ok || envelope.Error {
		message := envelopeMessage(envelope.Message)
		if !ok && envelope.Message == "" {
			message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		c.logger.WarnWithFields("visibility change rejected", map[string]interface{}{
			"user_id": targetUserID,
			"status":  resp.StatusCode,
			"message": message,
		})
		return &errs.Error{Type: errs.ErrorTypeAPI, Message: message, Code: resp.StatusCode}
	}
	if decodeErr != nil {
		return decodeErr
	}

	return nil
}

func envelopeMessage(m string) string {
	if m == "" {
		return "unknown error"
	}
	return m
}
