package backend

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/ocrgateway/internal/backend/database"
	"github.com/jo-hoe/ocrgateway/internal/backend/imageprocessing"
	"github.com/jo-hoe/ocrgateway/internal/backend/ocr"
	"github.com/jo-hoe/ocrgateway/internal/common"
	"github.com/jo-hoe/ocrgateway/internal/core"

	"github.com/labstack/echo/v4"
)

// uploadFormField is the multipart field carrying the image
const uploadFormField = "file"

type APIService struct {
	coreService *core.CoreService
}

type messageResponse struct {
	Message string `json:"message"`
}

func NewAPIService(coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
	}
}

// SetRoutes registers the public routes and the JSON error handler
func (s *APIService) SetRoutes(e *echo.Echo) {
	e.HTTPErrorHandler = common.NewErrorHandler(classifyDomainError)

	e.GET("/", s.rootHandler)
	e.GET("/probe", s.probeHandler)

	e.GET("/history", s.listHistoryHandler)
	e.POST("/history", s.appendHistoryHandler)
	e.DELETE("/history", s.clearHistoryHandler)

	e.POST("/upload-image", s.uploadImageHandler)
}

func (s *APIService) rootHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, messageResponse{Message: "OCR gateway is running"})
}

func (s *APIService) probeHandler(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "ok")
}

func (s *APIService) listHistoryHandler(ctx echo.Context) error {
	records, err := s.coreService.ListHistory(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, records)
}

func (s *APIService) appendHistoryHandler(ctx echo.Context) error {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return common.NewBadRequestError("failed to read request body", err)
	}
	record, err := database.ParseRecord(body)
	if err != nil {
		return err
	}

	stored, err := s.coreService.AddHistory(ctx.Request().Context(), record)
	if err != nil {
		return err
	}
	slog.Debug("history record saved", "keys", len(stored))
	return ctx.JSON(http.StatusOK, messageResponse{Message: "history saved"})
}

func (s *APIService) clearHistoryHandler(ctx echo.Context) error {
	if err := s.coreService.ClearHistory(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "history cleared"})
}

func (s *APIService) uploadImageHandler(ctx echo.Context) error {
	file, err := ctx.FormFile(uploadFormField)
	if err != nil {
		return common.NewBadRequestError("no file provided", err)
	}

	src, err := file.Open()
	if err != nil {
		return common.NewInternalError("failed to open uploaded file", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("uploadImageHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	image, err := io.ReadAll(src)
	if err != nil {
		return common.NewInternalError("failed to read uploaded file", err)
	}

	result, err := s.coreService.ProcessImage(ctx.Request().Context(), file.Filename, image)
	if err != nil {
		slog.Error("uploadImageHandler: failed to process uploaded image", "error", err, "filename", file.Filename)
		return err
	}
	return ctx.JSONBlob(http.StatusOK, result)
}

// classifyDomainError maps errors from the normalizer, the OCR client and the
// history store onto client-facing responses
func classifyDomainError(err error) *common.APIError {
	switch {
	case errors.Is(err, imageprocessing.ErrUnsupportedImage):
		return common.NewUnsupportedImageError(err)
	case errors.Is(err, database.ErrInvalidRecord):
		return common.NewBadRequestError("history record must be a JSON object", err)
	case errors.Is(err, ocr.ErrTransport):
		return common.NewBadGatewayError("OCR gateway could not be reached", err)
	case errors.Is(err, ocr.ErrInvalidResponse):
		return common.NewBadGatewayError("OCR gateway returned an unreadable response", err)
	}
	return nil
}
