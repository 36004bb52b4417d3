package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/viraj-gavade/Thriftify-sub000/internal/apperr"
	"github.com/viraj-gavade/Thriftify-sub000/internal/middleware"
	"github.com/viraj-gavade/Thriftify-sub000/internal/services"
	"github.com/viraj-gavade/Thriftify-sub000/internal/storage"
	"github.com/viraj-gavade/Thriftify-sub000/internal/utils"
)

// UploadPresigner hands out direct-to-bucket upload URLs.
type UploadPresigner interface {
	PresignUpload(ctx context.Context, key, contentType string) (*storage.Upload, error)
}

type ListingHandler struct {
	svc     *services.ListingService
	uploads UploadPresigner
}

func NewListingHandler(svc *services.ListingService, uploads UploadPresigner) *ListingHandler {
	return &ListingHandler{svc: svc, uploads: uploads}
}

type uploadURLRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required,oneof=image/jpeg image/png image/webp image/gif"`
}

// GET /api/v1/listings?category=&owner=&page=&limit=&includeSold=
func (h *ListingHandler) List(c *fiber.Ctx) error {
	page, err := h.svc.List(c.UserContext(), services.ListingQuery{
		Category:    c.Query("category"),
		Owner:       c.Query("owner"),
		IncludeSold: c.QueryBool("includeSold", false),
		Page:        c.QueryInt("page", 1),
		Limit:       c.QueryInt("limit", 0),
	})
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Listings fetched", page)
}

func (h *ListingHandler) Get(c *fiber.Ctx) error {
	l, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Listing fetched", l)
}

func (h *ListingHandler) Create(c *fiber.Ctx) error {
	var req services.CreateListingInput
	if err := bind(c, &req); err != nil {
		return err
	}
	l, err := h.svc.Create(c.UserContext(), middleware.CurrentUserID(c), req)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, "Listing created", l)
}

func (h *ListingHandler) Update(c *fiber.Ctx) error {
	var req services.UpdateListingInput
	if err := bind(c, &req); err != nil {
		return err
	}
	l, err := h.svc.Update(c.UserContext(), c.Params("id"), middleware.CurrentUserID(c), req)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Listing updated", l)
}

func (h *ListingHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.UserContext(), c.Params("id"), middleware.CurrentUserID(c)); err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Listing deleted", nil)
}

func (h *ListingHandler) MarkSold(c *fiber.Ctx) error {
	l, err := h.svc.MarkSold(c.UserContext(), c.Params("id"), middleware.CurrentUserID(c))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Listing marked as sold", l)
}

func (h *ListingHandler) ToggleBookmark(c *fiber.Ctx) error {
	on, err := h.svc.ToggleBookmark(c.UserContext(), c.Params("id"), middleware.CurrentUserID(c))
	if err != nil {
		return err
	}
	msg := "Bookmark removed"
	if on {
		msg = "Bookmark added"
	}
	return utils.JSONSuccess(c, fiber.StatusOK, msg, fiber.Map{"bookmarked": on})
}

func (h *ListingHandler) Bookmarks(c *fiber.Ctx) error {
	items, err := h.svc.Bookmarks(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Bookmarks fetched", items)
}

// POST /api/v1/listings/images/upload-url
func (h *ListingHandler) UploadURL(c *fiber.Ctx) error {
	if h.uploads == nil {
		return apperr.New(apperr.KindNotFound, "image uploads are not configured")
	}
	var req uploadURLRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	key := storage.ListingImageKey(middleware.CurrentUserID(c), req.Filename)
	up, err := h.uploads.PresignUpload(c.UserContext(), key, req.ContentType)
	if err != nil {
		return apperr.Internal(err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Upload URL created", up)
}
