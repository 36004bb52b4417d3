package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a marketplace account. Secret fields never leave the server.
type User struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username         string               `bson:"username" json:"username"`
	Email            string               `bson:"email" json:"email"`
	PasswordHash     string               `bson:"password_hash,omitempty" json:"-"`
	RefreshTokenHash string               `bson:"refresh_token_hash,omitempty" json:"-"`
	ProfilePicture   string               `bson:"profile_picture,omitempty" json:"profilePicture,omitempty"`
	Listings         []primitive.ObjectID `bson:"listings" json:"listings"`
	Bookmarks        []primitive.ObjectID `bson:"bookmarks" json:"bookmarks"`
	CreatedAt        time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time            `bson:"updated_at" json:"updatedAt"`
}

// UserSummary is the expanded form of a user reference.
type UserSummary struct {
	ID             primitive.ObjectID `json:"id"`
	Username       string             `json:"username"`
	ProfilePicture string             `json:"profilePicture,omitempty"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture}
}

// Public strips the secret fields.
func (u User) Public() User {
	u.PasswordHash = ""
	u.RefreshTokenHash = ""
	return u
}
