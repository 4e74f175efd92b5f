package handlers

import (
	"errors"
	"net/http"

	"jurisdraft-backend/checklist"
	"jurisdraft-backend/service"

	"github.com/gin-gonic/gin"
)

// ComplianceHandler handles HTTP requests for compliance checks
type ComplianceHandler struct {
	complianceService *service.ComplianceService
}

// NewComplianceHandler creates a new compliance handler
func NewComplianceHandler(complianceService *service.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{complianceService: complianceService}
}

// CheckComplianceRequest represents the request body for a compliance check
type CheckComplianceRequest struct {
	DocumentText string `json:"document_text" binding:"required"`
	DocumentType string `json:"document_type" binding:"required"`
	Jurisdiction string `json:"jurisdiction" binding:"required"`
}

// CheckCompliance handles POST /api/compliance/check
func (h *ComplianceHandler) CheckCompliance(c *gin.Context) {
	var req CheckComplianceRequest
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

	serviceReq := service.CheckDocumentRequest{
		DocumentText: req.DocumentText,
		DocumentType: req.DocumentType,
		Jurisdiction: req.Jurisdiction,
	}

	result, err := h.complianceService.CheckDocument(c.Request.Context(), serviceReq)
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
					"code":    "CHECK_FAILED",
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
