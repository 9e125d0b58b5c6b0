package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cloud-asset-api/internal/middleware"
	"github.com/iliyamo/cloud-asset-api/internal/model"
	"github.com/iliyamo/cloud-asset-api/internal/repository"
	"github.com/iliyamo/cloud-asset-api/internal/service"
)

// Assets is the asset service as seen by the HTTP layer.
type Assets interface {
	Create(ctx context.Context, identity string, in service.AssetInput) (*model.Asset, error)
	List(ctx context.Context, identity string) ([]model.Asset, error)
	Get(ctx context.Context, identity, id string) (*model.Asset, error)
	Update(ctx context.Context, identity, id string, in service.AssetInput) (*model.Asset, error)
	Delete(ctx context.Context, identity, id string) error
}

// AssetHandler serves /assets.  Every route runs behind JWTAuth.
type AssetHandler struct {
	Assets Assets
	Log    *zap.SugaredLogger
}

func NewAssetHandler(a Assets, log *zap.SugaredLogger) *AssetHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &AssetHandler{Assets: a, Log: log}
}

// assetReq carries the client-settable fields.  Any owner in the body is
// ignored.
type assetReq struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Region string `json:"region"`
}

func (r assetReq) input() service.AssetInput {
	return service.AssetInput{Name: r.Name, Type: r.Type, Region: r.Region}
}

func (h *AssetHandler) Create(c echo.Context) error {
	var req assetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Assets.Create(ctx, middleware.Subject(c), req.input())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *AssetHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Assets.List(ctx, middleware.Subject(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *AssetHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Assets.Get(ctx, middleware.Subject(c), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AssetHandler) Update(c echo.Context) error {
	var req assetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Assets.Update(ctx, middleware.Subject(c), c.Param("id"), req.input())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AssetHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id := c.Param("id")
	if err := h.Assets.Delete(ctx, middleware.Subject(c), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": fmt.Sprintf("Asset with id '%s' deleted successfully", id)})
}

// fail maps service errors to responses.  Missing and not-owned assets get
// the same 404 body.
func (h *AssetHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidAssetID):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid asset id"})
	case errors.Is(err, service.ErrInvalidAsset):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrAssetNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "asset not found"})
	default:
		h.Log.Errorw("asset request failed", "path", c.Path(), "error", err)
		return internalError(c)
	}
}
