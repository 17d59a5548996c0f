package follows

import "pxfollow/pkg/pixiv"

// Entity is one followed account
type Entity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

func entitiesFromUsers(users []pixiv.FollowedUser) []Entity {
	out := make([]Entity, len(users))
	for i, u := range users {
		out[i] = Entity{ID: u.UserID.String(), DisplayName: u.UserName}
	}
	return out
}
