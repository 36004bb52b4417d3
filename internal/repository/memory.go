package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/viraj-gavade/Thriftify-sub000/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repositories back the "memory" storage driver and the tests.
// They hand out copies so callers can never mutate stored records.

func idLess(a, b primitive.ObjectID) bool { return a.Hex() < b.Hex() }

func addID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	return append([]primitive.ObjectID{}, ids...)
}

type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[primitive.ObjectID]models.User)}
}

func cloneUser(u models.User) *models.User {
	u.Listings = cloneIDs(u.Listings)
	u.Bookmarks = cloneIDs(u.Bookmarks)
	return &u
}

func (r *MemoryUserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = *cloneUser(*u)
	return nil
}

// Delete is only used by tests to simulate an account vanishing under a valid token.
func (r *MemoryUserRepo) Delete(id primitive.ObjectID) {
	r.mu.Lock()
	delete(r.users, id)
	r.mu.Unlock()
}

func (r *MemoryUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryUserRepo) findBy(match func(models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return r.findBy(func(u models.User) bool { return u.Email == email })
}

func (r *MemoryUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return r.findBy(func(u models.User) bool { return u.Username == username })
}

func (r *MemoryUserRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, *cloneUser(u))
		}
	}
	return out, nil
}

func (r *MemoryUserRepo) update(id primitive.ObjectID, fn func(*models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = now()
	r.users[id] = u
	return nil
}

func (r *MemoryUserRepo) AddListing(_ context.Context, userID, listingID primitive.ObjectID) error {
	return r.update(userID, func(u *models.User) { u.Listings = addID(u.Listings, listingID) })
}

func (r *MemoryUserRepo) RemoveListing(_ context.Context, userID, listingID primitive.ObjectID) error {
	return r.update(userID, func(u *models.User) { u.Listings = removeID(u.Listings, listingID) })
}

func (r *MemoryUserRepo) SetBookmark(_ context.Context, userID, listingID primitive.ObjectID, on bool) error {
	return r.update(userID, func(u *models.User) {
		if on {
			u.Bookmarks = addID(u.Bookmarks, listingID)
		} else {
			u.Bookmarks = removeID(u.Bookmarks, listingID)
		}
	})
}

type MemoryListingRepo struct {
	mu       sync.RWMutex
	listings map[primitive.ObjectID]models.Listing
}

func NewMemoryListingRepo() *MemoryListingRepo {
	return &MemoryListingRepo{listings: make(map[primitive.ObjectID]models.Listing)}
}

func cloneListing(l models.Listing) *models.Listing {
	l.Images = append([]string{}, l.Images...)
	l.BookmarkedBy = cloneIDs(l.BookmarkedBy)
	return &l
}

func (r *MemoryListingRepo) Create(_ context.Context, l *models.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	l.CreatedAt = now()
	l.UpdatedAt = l.CreatedAt
	r.listings[l.ID] = *cloneListing(*l)
	return nil
}

func (r *MemoryListingRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneListing(l), nil
}

func (r *MemoryListingRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := r.listings[id]; ok {
			out = append(out, *cloneListing(l))
		}
	}
	return out, nil
}

func (r *MemoryListingRepo) List(_ context.Context, f ListingFilter) ([]models.Listing, int64, error) {
	r.mu.RLock()
	var matched []models.Listing
	var ids map[primitive.ObjectID]bool
	if f.IDs != nil {
		ids = make(map[primitive.ObjectID]bool, len(f.IDs))
		for _, id := range f.IDs {
			ids[id] = true
		}
	}
	for _, l := range r.listings {
		if f.Category != "" && !strings.EqualFold(string(l.Category), f.Category) {
			continue
		}
		if f.Owner != nil && l.Owner != *f.Owner {
			continue
		}
		if ids != nil && !ids[l.ID] {
			continue
		}
		if l.Sold && !f.IncludeSold {
			continue
		}
		matched = append(matched, *cloneListing(l))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return idLess(matched[j].ID, matched[i].ID)
	})
	total := int64(len(matched))
	start := max(min(f.Skip, total), 0)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	return matched[start:end], total, nil
}

func (r *MemoryListingRepo) Update(_ context.Context, id primitive.ObjectID, upd ListingUpdate) (*models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Title != nil {
		l.Title = *upd.Title
	}
	if upd.Description != nil {
		l.Description = *upd.Description
	}
	if upd.Price != nil {
		l.Price = *upd.Price
	}
	if upd.Category != nil {
		l.Category = *upd.Category
	}
	if upd.Location != nil {
		l.Location = *upd.Location
	}
	if upd.Images != nil {
		l.Images = append([]string{}, upd.Images...)
	}
	l.UpdatedAt = now()
	r.listings[id] = l
	return cloneListing(l), nil
}

func (r *MemoryListingRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[id]; !ok {
		return ErrNotFound
	}
	delete(r.listings, id)
	return nil
}

func (r *MemoryListingRepo) MarkSold(_ context.Context, id primitive.ObjectID) (*models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	l.Sold = true
	l.UpdatedAt = now()
	r.listings[id] = l
	return cloneListing(l), nil
}

func (r *MemoryListingRepo) SetBookmark(_ context.Context, listingID, userID primitive.ObjectID, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[listingID]
	if !ok {
		return ErrNotFound
	}
	if on {
		l.BookmarkedBy = addID(l.BookmarkedBy, userID)
	} else {
		l.BookmarkedBy = removeID(l.BookmarkedBy, userID)
	}
	r.listings[listingID] = l
	return nil
}

type MemoryConversationRepo struct {
	mu    sync.RWMutex
	convs map[primitive.ObjectID]models.Conversation
}

func NewMemoryConversationRepo() *MemoryConversationRepo {
	return &MemoryConversationRepo{convs: make(map[primitive.ObjectID]models.Conversation)}
}

func cloneConversation(c models.Conversation) *models.Conversation {
	c.Participants = cloneIDs(c.Participants)
	if c.Listing != nil {
		id := *c.Listing
		c.Listing = &id
	}
	if c.LastMessage != nil {
		lm := *c.LastMessage
		c.LastMessage = &lm
	}
	return &c
}

func (r *MemoryConversationRepo) Create(_ context.Context, c *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.convs {
		if existing.ParticipantKey == c.ParticipantKey && existing.ListingKey == c.ListingKey {
			return ErrDuplicate
		}
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	r.convs[c.ID] = *cloneConversation(*c)
	return nil
}

func (r *MemoryConversationRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.convs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneConversation(c), nil
}

func (r *MemoryConversationRepo) FindByKeys(_ context.Context, participantKey, listingKey string) (*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.convs {
		if c.ParticipantKey == participantKey && c.ListingKey == listingKey {
			return cloneConversation(c), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryConversationRepo) ListByParticipant(_ context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	r.mu.RLock()
	out := []models.Conversation{}
	for _, c := range r.convs {
		if c.HasParticipant(userID) {
			out = append(out, *cloneConversation(c))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return idLess(out[j].ID, out[i].ID)
	})
	return out, nil
}

func (r *MemoryConversationRepo) SetLastMessage(_ context.Context, id primitive.ObjectID, last models.LastMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return ErrNotFound
	}
	c.LastMessage = &last
	if c.UpdatedAt.Before(last.CreatedAt) {
		c.UpdatedAt = last.CreatedAt
	}
	r.convs[id] = c
	return nil
}

type MemoryMessageRepo struct {
	mu   sync.RWMutex
	msgs map[primitive.ObjectID][]models.Message
}

func NewMemoryMessageRepo() *MemoryMessageRepo {
	return &MemoryMessageRepo{msgs: make(map[primitive.ObjectID][]models.Message)}
}

func (r *MemoryMessageRepo) Create(_ context.Context, m *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	r.msgs[m.ConversationID] = append(r.msgs[m.ConversationID], *m)
	return nil
}

func (r *MemoryMessageRepo) ListRecent(_ context.Context, conversationID primitive.ObjectID, skip, limit int64) ([]models.Message, error) {
	r.mu.RLock()
	all := append([]models.Message{}, r.msgs[conversationID]...)
	r.mu.RUnlock()

	// newest first, then page, then flip back to oldest first
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return idLess(all[j].ID, all[i].ID)
	})
	n := int64(len(all))
	start := max(min(skip, n), 0)
	end := max(min(start+limit, n), start)
	page := all[start:end]
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

func (r *MemoryMessageRepo) Count(_ context.Context, conversationID primitive.ObjectID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.msgs[conversationID])), nil
}

func (r *MemoryMessageRepo) MarkRead(_ context.Context, conversationID, readerID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	msgs := r.msgs[conversationID]
	for i := range msgs {
		if !msgs[i].Read && msgs[i].Sender != readerID {
			msgs[i].Read = true
			n++
		}
	}
	return n, nil
}

func (r *MemoryMessageRepo) UnreadByConversation(_ context.Context, conversationIDs []primitive.ObjectID, userID primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[primitive.ObjectID]int64, len(conversationIDs))
	for _, cid := range conversationIDs {
		for _, m := range r.msgs[cid] {
			if !m.Read && m.Sender != userID {
				out[cid]++
			}
		}
	}
	return out, nil
}
