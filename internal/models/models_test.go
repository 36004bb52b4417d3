package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParticipantKeyIsOrderIndependent(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	assert.Equal(t, ParticipantKey(a, b), ParticipantKey(b, a))
	assert.NotEqual(t, ParticipantKey(a, b), ParticipantKey(a, primitive.NewObjectID()))
}

func TestListingKey(t *testing.T) {
	assert.Equal(t, NoListingKey, ListingKey(nil))
	zero := primitive.NilObjectID
	assert.Equal(t, NoListingKey, ListingKey(&zero))
	id := primitive.NewObjectID()
	assert.Equal(t, id.Hex(), ListingKey(&id))
}

func TestConversationOthers(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	c := Conversation{Participants: []primitive.ObjectID{a, b}}
	assert.Equal(t, []primitive.ObjectID{b}, c.Others(a))
	assert.True(t, c.HasParticipant(b))
	assert.False(t, c.HasParticipant(primitive.NewObjectID()))
}

func TestUserJSONHidesSecrets(t *testing.T) {
	u := User{ID: primitive.NewObjectID(), Username: "alice", PasswordHash: "hash", RefreshTokenHash: "r"}
	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hash")
	assert.Contains(t, string(b), `"username":"alice"`)
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategoryBooks.Valid())
	assert.False(t, Category("weapons").Valid())
}
