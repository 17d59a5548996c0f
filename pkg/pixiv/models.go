package pixiv

import (
	"bytes"
	"encoding/json"
	"fmt"

	errs "pxfollow/pkg/errors"
)

// Session is what a run needs to act as the logged-in user
type Session struct {
	// Token is the CSRF token sent as x-csrf-token on mutations
	Token string
	// UserID is the subject whose follow list is processed
	UserID string
}

// Validate returns a precondition error when either field is missing
func (s Session) Validate() error {
	switch {
	case s.Token == "" && s.UserID == "":
		return errs.New(errs.ErrorTypePrecondition, "session token and user ID are missing")
	case s.Token == "":
		return errs.New(errs.ErrorTypePrecondition, "session token is missing")
	case s.UserID == "":
		return errs.New(errs.ErrorTypePrecondition, "session user ID is missing")
	}
	return nil
}

// Envelope is the wrapper around every AJAX response
type Envelope[T any] struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Body    T      `json:"body"`
}

// FollowingBody is one page of the follow list
type FollowingBody struct {
	Users []FollowedUser `json:"users"`
	// Total is the declared size of the whole list, not of this page
	Total int `json:"total"`
}

// FollowedUser is one followed account
type FollowedUser struct {
	UserID   ID     `json:"userId"`
	UserName string `json:"userName"`
}

// ID is a Pixiv user ID. Pixiv serializes IDs as strings in most payloads
// and as numbers in a few; both decode.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user ID is neither string nor number: %s", data)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// preloadedState is the part of serverSerializedPreloadedState pxfollow reads
type preloadedState struct {
	API struct {
		Token string `json:"token"`
	} `json:"api"`
	UserData struct {
		Self *struct {
			ID ID `json:"id"`
		} `json:"self"`
	} `json:"userData"`
}

// nextData is the part of the __NEXT_DATA__ script pxfollow reads
type nextData struct {
	Props struct {
		PageProps struct {
			ServerSerializedPreloadedState string `json:"serverSerializedPreloadedState"`
		} `json:"pageProps"`
	} `json:"props"`
}
