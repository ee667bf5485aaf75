package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"immobile-portal/internal/apierror"
	"immobile-portal/internal/metrics"
	"immobile-portal/internal/middleware"
	"immobile-portal/internal/models"
	"immobile-portal/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response messages returned by the image endpoints
const (
	MsgImagesCreated    = "Imagens criadas com sucesso!"
	MsgMissingFields    = "Os campos 'url' e 'immobileId' são obrigatórios"
	MsgCreateForbidden  = "Você não tem permissão para criar imagens"
	MsgImageNotFound    = "Imagem não encontrado"
	MsgInvalidImageID   = "Identificador de imagem inválido"
	MsgImmobileNotFound = "Imóvel não encontrado"
)

const immobileIDFormField = "immobileId"

// ImageHandler serves the listing image endpoints
type ImageHandler struct {
	repo   repository.ImageRepository
	logger *zap.Logger
}

// NewImageHandler creates a new image handler
func NewImageHandler(repo repository.ImageRepository, logger *zap.Logger) *ImageHandler {
	return &ImageHandler{repo: repo, logger: logger}
}

// GetAllImages returns every stored image
func (h *ImageHandler) GetAllImages(c *gin.Context) {
	images, err := h.repo.FindAll(c.Request.Context())
	if err != nil {
		_ = c.Error(apierror.Internal(err))
		return
	}

	c.JSON(http.StatusOK, images)
}

// GetImageByID returns one image by its numeric id
func (h *ImageHandler) GetImageByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.Error(apierror.Validation(MsgInvalidImageID))
		return
	}

	image, err := h.repo.FindByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		_ = c.Error(apierror.NotFound(MsgImageNotFound))
		return
	}
	if err != nil {
		_ = c.Error(apierror.Internal(err))
		return
	}

	c.JSON(http.StatusOK, image)
}

// CreateImage stores one image row per uploaded file for the given property.
// Input is validated before the caller's role is checked.
func (h *ImageHandler) CreateImage(c *gin.Context) {
	urls := middleware.StorageURLs(middleware.UploadedFiles(c))
	immobileID, ok := parseImmobileID(c.PostForm(immobileIDFormField))
	if len(urls) == 0 || !ok {
		_ = c.Error(apierror.Validation(MsgMissingFields))
		return
	}

	user, _ := middleware.CurrentUser(c)
	if !user.IsOwner() {
		_ = c.Error(apierror.Forbidden(MsgCreateForbidden))
		return
	}

	images := make([]models.Image, 0, len(urls))
	for _, url := range urls {
		images = append(images, models.Image{URL: url, ImmobileID: immobileID})
	}

	created, err := h.repo.CreateMany(c.Request.Context(), images)
	if errors.Is(err, repository.ErrImmobileNotFound) {
		_ = c.Error(apierror.Validation(MsgImmobileNotFound))
		return
	}
	if err != nil {
		_ = c.Error(apierror.Internal(err))
		return
	}

	metrics.ImagesCreated.Add(float64(created))
	h.logger.Info("images created",
		zap.Int64("immobile_id", immobileID),
		zap.Int64("count", created),
		zap.String("user_id", user.ID),
	)

	c.JSON(http.StatusOK, gin.H{"message": MsgImagesCreated})
}

// parseImmobileID accepts a positive base-10 integer
func parseImmobileID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
