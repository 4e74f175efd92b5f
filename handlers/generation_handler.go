package handlers

import (
	"errors"
	"net/http"

	"jurisdraft-backend/checklist"
	"jurisdraft-backend/models"
	"jurisdraft-backend/service"

	"github.com/gin-gonic/gin"
)

// GenerationHandler handles HTTP requests for document generation
type GenerationHandler struct {
	generationService *service.GenerationService
	registry          *checklist.Registry
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(generationService *service.GenerationService, registry *checklist.Registry) *GenerationHandler {
	return &GenerationHandler{
		generationService: generationService,
		registry:          registry,
	}
}

// GenerateDocumentRequest represents the request body for document generation
type GenerateDocumentRequest struct {
	DocumentType   string            `json:"document_type" binding:"required"`
	UserInputs     map[string]string `json:"user_inputs"`
	Jurisdiction   string            `json:"jurisdiction" binding:"required"`
	OutputFormat   string            `json:"output_format"`
	IncludeSources bool              `json:"include_sources"`
}

// GenerateDocument handles POST /api/documents/generate
func (h *GenerationHandler) GenerateDocument(c *gin.Context) {
	var req GenerateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	serviceReq := service.GenerateDocumentRequest{
		DocumentType:   req.DocumentType,
		UserInputs:     req.UserInputs,
		Jurisdiction:   req.Jurisdiction,
		OutputFormat:   models.OutputFormat(req.OutputFormat),
		IncludeSources: req.IncludeSources,
	}

	result, err := h.generationService.GenerateDocument(c.Request.Context(), serviceReq)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedJurisdiction):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNSUPPORTED_JURISDICTION",
					"message": err.Error(),
				},
			})
		case errors.Is(err, checklist.ErrUnknownDocumentType):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNKNOWN_DOCUMENT_TYPE",
					"message": err.Error(),
				},
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "GENERATION_FAILED",
					"message": err.Error(),
				},
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// ListDocumentTypes handles GET /api/documents/types
func (h *GenerationHandler) ListDocumentTypes(c *gin.Context) {
	keys := h.registry.Keys()

	types := make([]gin.H, 0, len(keys))
	for _, key := range keys {
		cl, err := h.registry.Get(key)
		if err != nil {
			continue
		}
		types = append(types, gin.H{
			"key":             key,
			"display_name":    cl.DisplayName,
			"governing_acts":  cl.GoverningActs,
			"checklist_items": len(cl.ChecklistItems),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    types,
	})
}
