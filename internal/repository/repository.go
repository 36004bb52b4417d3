package repository

import (
	"context"
	"errors"
	"time"

	"github.com/viraj-gavade/Thriftify-sub000/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	AddListing(ctx context.Context, userID, listingID primitive.ObjectID) error
	RemoveListing(ctx context.Context, userID, listingID primitive.ObjectID) error
	SetBookmark(ctx context.Context, userID, listingID primitive.ObjectID, on bool) error
}

type ListingFilter struct {
	Category    string
	Owner       *primitive.ObjectID
	IDs         []primitive.ObjectID
	IncludeSold bool
	Skip        int64
	Limit       int64
}

type ListingUpdate struct {
	Title       *string
	Description *string
	Price       *float64
	Category    *models.Category
	Location    *string
	Images      []string
}

type ListingRepository interface {
	Create(ctx context.Context, l *models.Listing) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Listing, error)
	List(ctx context.Context, f ListingFilter) ([]models.Listing, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, upd ListingUpdate) (*models.Listing, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	MarkSold(ctx context.Context, id primitive.ObjectID) (*models.Listing, error)
	SetBookmark(ctx context.Context, listingID, userID primitive.ObjectID, on bool) error
}

type ConversationRepository interface {
	// Create returns ErrDuplicate when a conversation with the same
	// participant and listing keys already exists.
	Create(ctx context.Context, c *models.Conversation) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error)
	FindByKeys(ctx context.Context, participantKey, listingKey string) (*models.Conversation, error)
	// ListByParticipant returns conversations ordered by updatedAt descending.
	ListByParticipant(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error)
	SetLastMessage(ctx context.Context, id primitive.ObjectID, last models.LastMessage) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	// ListRecent returns up to limit messages after skipping the newest skip,
	// ordered oldest-first.
	ListRecent(ctx context.Context, conversationID primitive.ObjectID, skip, limit int64) ([]models.Message, error)
	Count(ctx context.Context, conversationID primitive.ObjectID) (int64, error)
	// MarkRead flips read on every unread message in the conversation not sent by readerID.
	MarkRead(ctx context.Context, conversationID, readerID primitive.ObjectID) (int64, error)
	// UnreadByConversation counts unread messages not sent by userID, per conversation.
	UnreadByConversation(ctx context.Context, conversationIDs []primitive.ObjectID, userID primitive.ObjectID) (map[primitive.ObjectID]int64, error)
}

// now is truncated to the store's millisecond precision.
func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
