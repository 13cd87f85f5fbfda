package models

import "time"

type Profile struct {
	Wallet      string       `json:"wallet"`
	Username    string       `json:"username,omitempty"`
	Email       string       `json:"email,omitempty"`
	Avatar      string       `json:"avatar,omitempty"`
	Bio         string       `json:"bio,omitempty"`
	StreamKey   string       `json:"streamKey,omitempty"`
	SocialLinks []SocialLink `json:"socialLinks"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type SocialLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ProfileField names an updatable profile attribute by its form field name.
// The wallet is deliberately absent: it identifies the row and never changes.
type ProfileField string

const (
	FieldUsername    ProfileField = "username"
	FieldEmail       ProfileField = "email"
	FieldAvatar      ProfileField = "avatar"
	FieldBio         ProfileField = "bio"
	FieldStreamKey   ProfileField = "streamKey"
	FieldSocialLinks ProfileField = "socialLinks"
)

// ProfileUpdate holds only the fields a caller supplied. A missing key means
// "leave the column alone", which is different from an empty value.
type ProfileUpdate map[ProfileField]interface{}
