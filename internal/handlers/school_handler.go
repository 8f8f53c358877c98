package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "sikeu/internal/errors"
	"sikeu/internal/pagination"
	"sikeu/internal/services"
)

// SchoolHandler handles tenant profile requests.
type SchoolHandler struct {
	schoolService services.SchoolServicer
}

// NewSchoolHandler creates a new SchoolHandler.
func NewSchoolHandler(schoolService services.SchoolServicer) *SchoolHandler {
	return &SchoolHandler{schoolService: schoolService}
}

// CreateSchoolRequest represents the payload for registering a school.
type CreateSchoolRequest struct {
	Name          string `json:"name" binding:"required,max=200"`
	Address       string `json:"address" binding:"max=500"`
	Phone         string `json:"phone" binding:"max=30"`
	Email         string `json:"email" binding:"omitempty,email"`
	PrincipalName string `json:"principal_name" binding:"max=200"`
}

// CreateSchool registers a new school; super admin only.
func (h *SchoolHandler) CreateSchool(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	school, err := h.schoolService.Create(p, req.Name, req.Address, req.Phone, req.Email, req.PrincipalName)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"school": school})
}

// GetSchool returns a school profile.
func (h *SchoolHandler) GetSchool(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	school, err := h.schoolService.Get(p, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"school": school})
}

// ListSchools returns all schools; super admin only.
func (h *SchoolHandler) ListSchools(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.schoolService.List(p, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateSchoolRequest represents a partial school profile update.
type UpdateSchoolRequest struct {
	Name          *string `json:"name" binding:"omitempty,max=200"`
	Address       *string `json:"address" binding:"omitempty,max=500"`
	Phone         *string `json:"phone" binding:"omitempty,max=30"`
	Email         *string `json:"email" binding:"omitempty,email"`
	PrincipalName *string `json:"principal_name" binding:"omitempty,max=200"`
}

// UpdateSchool applies a partial update to a school profile.
func (h *SchoolHandler) UpdateSchool(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	school, err := h.schoolService.Update(p, c.Param("id"), services.SchoolPatch{
		Name:          req.Name,
		Address:       req.Address,
		Phone:         req.Phone,
		Email:         req.Email,
		PrincipalName: req.PrincipalName,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"school": school})
}
