package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/viraj-gavade/Thriftify-sub000/internal/apperr"
	"github.com/viraj-gavade/Thriftify-sub000/internal/events"
	"github.com/viraj-gavade/Thriftify-sub000/internal/metrics"
	"github.com/viraj-gavade/Thriftify-sub000/internal/models"
	"github.com/viraj-gavade/Thriftify-sub000/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Notifier pushes a freshly sent message to the personal rooms of its recipients.
type Notifier interface {
	NotifyNewMessage(recipientIDs []string, conversationID string, msg *models.MessageView)
}

type ConversationOptions struct {
	DefaultPageSize  int
	MaxPageSize      int
	MaxMessageLength int
}

func DefaultConversationOptions() ConversationOptions {
	return ConversationOptions{DefaultPageSize: 50, MaxPageSize: 100, MaxMessageLength: 5000}
}

type ConversationService struct {
	convs     repository.ConversationRepository
	msgs      repository.MessageRepository
	users     repository.UserRepository
	listings  repository.ListingRepository
	notifier  Notifier
	publisher events.Publisher
	logger    *zap.Logger
	opts      ConversationOptions
}

func NewConversationService(
	convs repository.ConversationRepository,
	msgs repository.MessageRepository,
	users repository.UserRepository,
	listings repository.ListingRepository,
	notifier Notifier,
	publisher events.Publisher,
	logger *zap.Logger,
	opts ConversationOptions,
) *ConversationService {
	def := DefaultConversationOptions()
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = def.DefaultPageSize
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = def.MaxPageSize
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = def.MaxMessageLength
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ConversationService{
		convs:     convs,
		msgs:      msgs,
		users:     users,
		listings:  listings,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
	}
}

// SetNotifier wires the realtime hub after construction; the hub itself
// depends on the service for room authorization.
func (s *ConversationService) SetNotifier(n Notifier) { s.notifier = n }

// FindOrCreate returns the conversation between initiator and recipient about
// listingID (empty for none), creating it when missing. created reports
// whether this call inserted it.
func (s *ConversationService) FindOrCreate(ctx context.Context, initiatorID, recipientID, listingID string) (view *models.ConversationView, created bool, err error) {
	initiator, err := parseID(initiatorID, "user id")
	if err != nil {
		return nil, false, err
	}
	recipient, err := parseID(recipientID, "recipient id")
	if err != nil {
		return nil, false, err
	}
	if initiator == recipient {
		return nil, false, apperr.InvalidArgument("cannot start a conversation with yourself")
	}
	var listing *primitive.ObjectID
	if listingID != "" {
		id, err := parseID(listingID, "listing id")
		if err != nil {
			return nil, false, err
		}
		listing = &id
	}

	if _, err := s.users.FindByID(ctx, recipient); err != nil {
		return nil, false, storeErr(err, "recipient not found")
	}
	if listing != nil {
		if _, err := s.listings.FindByID(ctx, *listing); err != nil {
			return nil, false, storeErr(err, "listing not found")
		}
	}

	pkey, lkey := models.ParticipantKey(initiator, recipient), models.ListingKey(listing)
	conv, err := s.convs.FindByKeys(ctx, pkey, lkey)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		conv = &models.Conversation{
			Participants:   []primitive.ObjectID{initiator, recipient},
			ParticipantKey: pkey,
			Listing:        listing,
			ListingKey:     lkey,
		}
		err = s.convs.Create(ctx, conv)
		if errors.Is(err, repository.ErrDuplicate) {
			// lost the race to a concurrent creator
			conv, err = s.convs.FindByKeys(ctx, pkey, lkey)
			if err != nil {
				return nil, false, storeErr(err, "conversation not found")
			}
		} else if err != nil {
			return nil, false, apperr.Internal(err)
		} else {
			created = true
			publish(ctx, s.publisher, s.logger, events.New(events.TypeConversationCreated, conv.ID.Hex(), map[string]any{
				"participants": conv.Participants,
				"listing":      conv.Listing,
			}))
		}
	default:
		return nil, false, apperr.Internal(err)
	}

	views, err := s.expand(ctx, []models.Conversation{*conv}, nil)
	if err != nil {
		return nil, false, err
	}
	return &views[0], created, nil
}

// ListConversations returns the user's conversations, most recently active first.
func (s *ConversationService) ListConversations(ctx context.Context, userID string) ([]models.ConversationView, error) {
	uid, err := parseID(userID, "user id")
	if err != nil {
		return nil, err
	}
	convs, err := s.convs.ListByParticipant(ctx, uid)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	unread, err := s.msgs.UnreadByConversation(ctx, conversationIDs(convs), uid)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.expand(ctx, convs, unread)
}

// ListMessages returns one page of the conversation and marks the peer's
// messages as read.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID, requesterID string, page, limit int) (*models.MessagePage, error) {
	conv, requester, err := s.authorize(ctx, conversationID, requesterID)
	if err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit, s.opts.DefaultPageSize, s.opts.MaxPageSize)

	if _, err := s.msgs.MarkRead(ctx, conv.ID, requester); err != nil {
		return nil, apperr.Internal(err)
	}
	total, err := s.msgs.Count(ctx, conv.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	var msgs []models.Message
	if offset := pageOffset(page, limit); offset < total {
		msgs, err = s.msgs.ListRecent(ctx, conv.ID, offset, int64(limit))
		if err != nil {
			return nil, apperr.Internal(err)
		}
	}
	views, err := s.messageViews(ctx, msgs)
	if err != nil {
		return nil, err
	}
	return &models.MessagePage{
		Messages:   views,
		Total:      total,
		Page:       page,
		TotalPages: totalPages(total, limit),
	}, nil
}

func (s *ConversationService) SendMessage(ctx context.Context, conversationID, senderID, content string) (*models.MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.InvalidArgument("message content is required")
	}
	if utf8.RuneCountInString(content) > s.opts.MaxMessageLength {
		return nil, apperr.InvalidArgument("message content is too long")
	}
	conv, sender, err := s.authorize(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{ConversationID: conv.ID, Sender: sender, Content: content}
	if err := s.msgs.Create(ctx, msg); err != nil {
		return nil, apperr.Internal(err)
	}
	last := models.LastMessage{Content: msg.Content, Sender: sender, CreatedAt: msg.CreatedAt}
	if err := s.convs.SetLastMessage(ctx, conv.ID, last); err != nil {
		return nil, storeErr(err, "conversation not found")
	}
	metrics.MessagesSent.Inc()

	views, err := s.messageViews(ctx, []models.Message{*msg})
	if err != nil {
		return nil, err
	}
	view := &views[0]

	if s.notifier != nil {
		others := conv.Others(sender)
		recipients := make([]string, 0, len(others))
		for _, id := range others {
			recipients = append(recipients, id.Hex())
		}
		s.notifier.NotifyNewMessage(recipients, conv.ID.Hex(), view)
	}
	publish(ctx, s.publisher, s.logger, events.New(events.TypeMessageSent, conv.ID.Hex(), view))
	return view, nil
}

// MarkAsRead flips every unread message from the other participant. Idempotent.
func (s *ConversationService) MarkAsRead(ctx context.Context, conversationID, requesterID string) error {
	conv, requester, err := s.authorize(ctx, conversationID, requesterID)
	if err != nil {
		return err
	}
	n, err := s.msgs.MarkRead(ctx, conv.ID, requester)
	if err != nil {
		return apperr.Internal(err)
	}
	if n > 0 {
		publish(ctx, s.publisher, s.logger, events.New(events.TypeConversationRead, conv.ID.Hex(), map[string]any{
			"reader": requester.Hex(),
			"count":  n,
		}))
	}
	return nil
}

// UnreadCount is the sum of the per-conversation unread counts.
func (s *ConversationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	uid, err := parseID(userID, "user id")
	if err != nil {
		return 0, err
	}
	convs, err := s.convs.ListByParticipant(ctx, uid)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	counts, err := s.msgs.UnreadByConversation(ctx, conversationIDs(convs), uid)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// CanAccess reports NotFound or Forbidden when userID may not see the conversation.
func (s *ConversationService) CanAccess(ctx context.Context, conversationID, userID string) error {
	_, _, err := s.authorize(ctx, conversationID, userID)
	return err
}

func (s *ConversationService) authorize(ctx context.Context, conversationID, userID string) (*models.Conversation, primitive.ObjectID, error) {
	cid, err := parseID(conversationID, "conversation id")
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	uid, err := parseID(userID, "user id")
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	conv, err := s.convs.FindByID(ctx, cid)
	if err != nil {
		return nil, primitive.NilObjectID, storeErr(err, "conversation not found")
	}
	if !conv.HasParticipant(uid) {
		return nil, primitive.NilObjectID, apperr.Forbidden("you are not a participant of this conversation")
	}
	return conv, uid, nil
}

func (s *ConversationService) expand(ctx context.Context, convs []models.Conversation, unread map[primitive.ObjectID]int64) ([]models.ConversationView, error) {
	var userIDs, listingIDs []primitive.ObjectID
	for _, c := range convs {
		userIDs = append(userIDs, c.Participants...)
		if c.Listing != nil {
			listingIDs = append(listingIDs, *c.Listing)
		}
	}
	users, err := s.userSummaries(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	listings := map[primitive.ObjectID]models.ListingSummary{}
	if len(listingIDs) > 0 {
		found, err := s.listings.FindByIDs(ctx, listingIDs)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		for i := range found {
			listings[found[i].ID] = found[i].Summary()
		}
	}

	out := make([]models.ConversationView, 0, len(convs))
	for _, c := range convs {
		v := models.ConversationView{
			ID:           c.ID,
			Participants: make([]models.UserSummary, 0, len(c.Participants)),
			LastMessage:  c.LastMessage,
			UnreadCount:  unread[c.ID],
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
		}
		for _, p := range c.Participants {
			v.Participants = append(v.Participants, users[p])
		}
		if c.Listing != nil {
			if l, ok := listings[*c.Listing]; ok {
				v.Listing = &l
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *ConversationService) messageViews(ctx context.Context, msgs []models.Message) ([]models.MessageView, error) {
	ids := make([]primitive.ObjectID, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.Sender)
	}
	users, err := s.userSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, models.MessageView{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			Sender:         users[m.Sender],
			Content:        m.Content,
			Read:           m.Read,
			CreatedAt:      m.CreatedAt,
		})
	}
	return out, nil
}

// userSummaries resolves ids to summaries; deleted users keep their bare id.
func (s *ConversationService) userSummaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	out := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	for _, id := range ids {
		out[id] = models.UserSummary{ID: id}
	}
	if len(ids) == 0 {
		return out, nil
	}
	users, err := s.users.FindByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for i := range users {
		out[users[i].ID] = users[i].Summary()
	}
	return out, nil
}

func conversationIDs(convs []models.Conversation) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	return ids
}

func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
