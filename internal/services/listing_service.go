package services

import (
	"context"
	"strings"

	"github.com/viraj-gavade/Thriftify-sub000/internal/apperr"
	"github.com/viraj-gavade/Thriftify-sub000/internal/events"
	"github.com/viraj-gavade/Thriftify-sub000/internal/models"
	"github.com/viraj-gavade/Thriftify-sub000/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type CreateListingInput struct {
	Title       string   `json:"title" validate:"required,min=3,max=120"`
	Description string   `json:"description" validate:"required,max=5000"`
	Price       float64  `json:"price" validate:"gte=0"`
	Category    string   `json:"category" validate:"required,oneof=electronics furniture clothing books sports toys vehicles home other"`
	Location    string   `json:"location" validate:"max=120"`
	Images      []string `json:"images" validate:"max=10,dive,url"`
}

// UpdateListingInput only touches the fields that are present.
type UpdateListingInput struct {
	Title       *string  `json:"title" validate:"omitempty,min=3,max=120"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Category    *string  `json:"category" validate:"omitempty,oneof=electronics furniture clothing books sports toys vehicles home other"`
	Location    *string  `json:"location" validate:"omitempty,max=120"`
	Images      []string `json:"images" validate:"omitempty,max=10,dive,url"`
}

type ListingQuery struct {
	Category    string
	Owner       string
	IncludeSold bool
	Page        int
	Limit       int
}

type ListingPage struct {
	Listings   []models.Listing `json:"listings"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
}

type ListingService struct {
	listings  repository.ListingRepository
	users     repository.UserRepository
	publisher events.Publisher
	logger    *zap.Logger
	pageSize  int
	maxPage   int
}

func NewListingService(listings repository.ListingRepository, users repository.UserRepository, publisher events.Publisher, logger *zap.Logger, pageSize, maxPage int) *ListingService {
	if pageSize <= 0 {
		pageSize = 20
	}
	if maxPage < pageSize {
		maxPage = pageSize
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ListingService{
		listings:  listings,
		users:     users,
		publisher: publisher,
		logger:    logger,
		pageSize:  pageSize,
		maxPage:   maxPage,
	}
}

func (s *ListingService) Create(ctx context.Context, ownerID string, in CreateListingInput) (*models.Listing, error) {
	owner, err := parseID(ownerID, "user id")
	if err != nil {
		return nil, err
	}
	cat := models.Category(strings.ToLower(in.Category))
	if !cat.Valid() {
		return nil, apperr.InvalidArgument("invalid category")
	}
	images := in.Images
	if images == nil {
		images = []string{}
	}
	l := &models.Listing{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Category:    cat,
		Location:    strings.TrimSpace(in.Location),
		Images:      images,
		Owner:       owner,
	}
	if err := s.listings.Create(ctx, l); err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.users.AddListing(ctx, owner, l.ID); err != nil {
		s.logger.Warn("link listing to owner", zap.String("listing_id", l.ID.Hex()), zap.Error(err))
	}
	publish(ctx, s.publisher, s.logger, events.New(events.TypeListingCreated, l.ID.Hex(), l))
	return l, nil
}

func (s *ListingService) Get(ctx context.Context, listingID string) (*models.Listing, error) {
	id, err := parseID(listingID, "listing id")
	if err != nil {
		return nil, err
	}
	l, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "listing not found")
	}
	return l, nil
}

// List is newest first; sold listings are hidden unless asked for.
func (s *ListingService) List(ctx context.Context, q ListingQuery) (*ListingPage, error) {
	page, limit := normalizePage(q.Page, q.Limit, s.pageSize, s.maxPage)
	f := repository.ListingFilter{
		IncludeSold: q.IncludeSold,
		Skip:        pageOffset(page, limit),
		Limit:       int64(limit),
	}
	if q.Category != "" {
		cat := models.Category(strings.ToLower(q.Category))
		if !cat.Valid() {
			return nil, apperr.InvalidArgument("invalid category")
		}
		f.Category = string(cat)
	}
	if q.Owner != "" {
		owner, err := parseID(q.Owner, "owner id")
		if err != nil {
			return nil, err
		}
		f.Owner = &owner
	}
	items, total, err := s.listings.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if items == nil {
		items = []models.Listing{}
	}
	return &ListingPage{Listings: items, Total: total, Page: page, TotalPages: totalPages(total, limit)}, nil
}

func (s *ListingService) owned(ctx context.Context, listingID, callerID string) (*models.Listing, error) {
	l, err := s.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	caller, err := parseID(callerID, "user id")
	if err != nil {
		return nil, err
	}
	if l.Owner != caller {
		return nil, apperr.Forbidden("only the owner can change this listing")
	}
	return l, nil
}

func (s *ListingService) Update(ctx context.Context, listingID, callerID string, in UpdateListingInput) (*models.Listing, error) {
	l, err := s.owned(ctx, listingID, callerID)
	if err != nil {
		return nil, err
	}
	upd := repository.ListingUpdate{
		Title:       trimmed(in.Title),
		Description: trimmed(in.Description),
		Price:       in.Price,
		Location:    trimmed(in.Location),
		Images:      in.Images,
	}
	if in.Category != nil {
		cat := models.Category(strings.ToLower(*in.Category))
		if !cat.Valid() {
			return nil, apperr.InvalidArgument("invalid category")
		}
		upd.Category = &cat
	}
	updated, err := s.listings.Update(ctx, l.ID, upd)
	if err != nil {
		return nil, storeErr(err, "listing not found")
	}
	return updated, nil
}

// Delete refuses sold listings; they stay as the record of the sale.
func (s *ListingService) Delete(ctx context.Context, listingID, callerID string) error {
	l, err := s.owned(ctx, listingID, callerID)
	if err != nil {
		return err
	}
	if l.Sold {
		return apperr.Conflict("a sold listing cannot be deleted")
	}
	if err := s.listings.Delete(ctx, l.ID); err != nil {
		return storeErr(err, "listing not found")
	}
	if err := s.users.RemoveListing(ctx, l.Owner, l.ID); err != nil {
		s.logger.Warn("unlink listing from owner", zap.String("listing_id", l.ID.Hex()), zap.Error(err))
	}
	publish(ctx, s.publisher, s.logger, events.New(events.TypeListingDeleted, l.ID.Hex(), nil))
	return nil
}

// MarkSold is idempotent; the event is only emitted on the first call.
func (s *ListingService) MarkSold(ctx context.Context, listingID, callerID string) (*models.Listing, error) {
	l, err := s.owned(ctx, listingID, callerID)
	if err != nil {
		return nil, err
	}
	if l.Sold {
		return l, nil
	}
	sold, err := s.listings.MarkSold(ctx, l.ID)
	if err != nil {
		return nil, storeErr(err, "listing not found")
	}
	publish(ctx, s.publisher, s.logger, events.New(events.TypeListingSold, sold.ID.Hex(), sold))
	return sold, nil
}

// ToggleBookmark flips the caller's bookmark and reports the new state.
func (s *ListingService) ToggleBookmark(ctx context.Context, listingID, userID string) (bool, error) {
	l, err := s.Get(ctx, listingID)
	if err != nil {
		return false, err
	}
	uid, err := parseID(userID, "user id")
	if err != nil {
		return false, err
	}
	on := !l.IsBookmarkedBy(uid)
	if err := s.listings.SetBookmark(ctx, l.ID, uid, on); err != nil {
		return false, storeErr(err, "listing not found")
	}
	if err := s.users.SetBookmark(ctx, uid, l.ID, on); err != nil {
		return false, storeErr(err, "user not found")
	}
	return on, nil
}

func (s *ListingService) Bookmarks(ctx context.Context, userID string) ([]models.Listing, error) {
	uid, err := parseID(userID, "user id")
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	if len(u.Bookmarks) == 0 {
		return []models.Listing{}, nil
	}
	return s.listingsByIDs(ctx, u.Bookmarks)
}

func (s *ListingService) listingsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Listing, error) {
	out, err := s.listings.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
