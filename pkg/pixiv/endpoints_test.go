package pixiv

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "pxfollow/pkg/errors"
)

func TestVisibility(t *testing.T) {
	assert.Equal(t, "show", Public.Rest())
	assert.Equal(t, "hide", Private.Rest())
	assert.Equal(t, "0", Public.Restrict())
	assert.Equal(t, "1", Private.Restrict())
	assert.Equal(t, Private, Public.Opposite())
	assert.Equal(t, Public, Private.Opposite())
	assert.Equal(t, "private", Private.String())

	v, err := ParseVisibility(" Private ")
	require.NoError(t, err)
	assert.Equal(t, Private, v)

	_, err = ParseVisibility("friends")
	assert.Error(t, err)
}

func TestURLs(t *testing.T) {
	assert.Equal(t,
		"https://www.pixiv.net/ajax/user/42/following?lang=en&limit=100&offset=200&rest=hide",
		FollowingURL("https://www.pixiv.net/", "42", 200, 100, Private, "en"))
	assert.Equal(t,
		"https://www.pixiv.net/ajax/user/42/following?limit=50&offset=0&rest=show",
		FollowingURL("https://www.pixiv.net", "42", 0, 50, Public, ""))
	assert.Equal(t, "https://www.pixiv.net/ajax/following/user/restrict_change", RestrictChangeURL("https://www.pixiv.net"))
	assert.Equal(t, "https://www.pixiv.net/en/users/42/following", FollowingPageURL("https://www.pixiv.net", "en", "42"))
	assert.Equal(t, "https://www.pixiv.net/users/42/following", FollowingPageURL("https://www.pixiv.net", "", "42"))
	assert.Equal(t, "https://www.pixiv.net/en/", SessionPageURL("https://www.pixiv.net", "en"))
}

func TestSessionValidate(t *testing.T) {
	assert.NoError(t, Session{Token: "t", UserID: "1"}.Validate())

	for _, s := range []Session{{}, {Token: "t"}, {UserID: "1"}} {
		err := s.Validate()
		assert.True(t, errs.HasType(err, errs.ErrorTypePrecondition), "%+v", s)
	}
}

func TestIDDecodesStringsAndNumbers(t *testing.T) {
	var users []FollowedUser
	require.NoError(t, json.Unmarshal([]byte(`[
		{"userId":"11","userName":"a"},
		{"userId":12,"userName":"b"},
		{"userId":null,"userName":"c"}
	]`), &users))

	assert.Equal(t, ID("11"), users[0].UserID)
	assert.Equal(t, ID("12"), users[1].UserID)
	assert.Equal(t, ID(""), users[2].UserID)

	var id ID
	assert.Error(t, json.Unmarshal([]byte(`true`), &id))
}
