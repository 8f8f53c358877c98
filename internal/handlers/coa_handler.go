package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "sikeu/internal/errors"
	"sikeu/internal/models"
	"sikeu/internal/services"
)

// CoaHandler handles chart-of-accounts requests.
type CoaHandler struct {
	coaService services.CoaServicer
}

// NewCoaHandler creates a new CoaHandler.
func NewCoaHandler(coaService services.CoaServicer) *CoaHandler {
	return &CoaHandler{coaService: coaService}
}

// CreateCategoryRequest represents the payload for creating a COA category.
type CreateCategoryRequest struct {
	Code string         `json:"code" binding:"required,max=20"`
	Name string         `json:"name" binding:"required,max=200"`
	Type models.CoaType `json:"type" binding:"required,coa_type"`
}

// CreateCategory creates a top-level COA category.
// @Summary     Create a COA category
// @Tags        coa
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateCategoryRequest true "Category details"
// @Success     201 {object} map[string]interface{} "Category created"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     409 {object} ErrorResponse "Duplicate code"
// @Router      /coa/categories [post]
func (h *CoaHandler) CreateCategory(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.coaService.CreateCategory(p, req.Code, req.Name, req.Type)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// UpdateCategoryRequest represents a partial category update.
type UpdateCategoryRequest struct {
	Code     *string `json:"code" binding:"omitempty,max=20"`
	Name     *string `json:"name" binding:"omitempty,max=200"`
	IsActive *bool   `json:"is_active"`
}

// UpdateCategory applies a partial update to a category.
// @Summary     Update a COA category
// @Tags        coa
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Param       request body UpdateCategoryRequest true "Fields to update"
// @Success     200 {object} map[string]interface{} "Category updated"
// @Router      /coa/categories/{id} [patch]
func (h *CoaHandler) UpdateCategory(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.coaService.UpdateCategory(p, c.Param("id"), services.CategoryPatch{
		Code:     req.Code,
		Name:     req.Name,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// DeleteCategory deletes a category without dependents.
// @Summary     Delete a COA category
// @Tags        coa
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Success     204 "Deleted"
// @Failure     409 {object} ErrorResponse "Has dependents"
// @Router      /coa/categories/{id} [delete]
func (h *CoaHandler) DeleteCategory(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.coaService.DeleteCategory(p, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateSubCategoryRequest represents the payload for creating a sub-category.
type CreateSubCategoryRequest struct {
	CategoryID string `json:"category_id" binding:"required,uuid"`
	Code       string `json:"code" binding:"required,max=20"`
	Name       string `json:"name" binding:"required,max=200"`
}

// CreateSubCategory creates a sub-category under a category.
// @Summary     Create a COA sub-category
// @Tags        coa
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateSubCategoryRequest true "Sub-category details"
// @Success     201 {object} map[string]interface{} "Sub-category created"
// @Router      /coa/subcategories [post]
func (h *CoaHandler) CreateSubCategory(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateSubCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	subCategory, err := h.coaService.CreateSubCategory(p, req.CategoryID, req.Code, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"sub_category": subCategory})
}

// UpdateSubCategoryRequest represents a partial sub-category update.
type UpdateSubCategoryRequest struct {
	Code     *string `json:"code" binding:"omitempty,max=20"`
	Name     *string `json:"name" binding:"omitempty,max=200"`
	IsActive *bool   `json:"is_active"`
}

// UpdateSubCategory applies a partial update to a sub-category.
func (h *CoaHandler) UpdateSubCategory(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateSubCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	subCategory, err := h.coaService.UpdateSubCategory(p, c.Param("id"), services.SubCategoryPatch{
		Code:     req.Code,
		Name:     req.Name,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sub_category": subCategory})
}

// DeleteSubCategory deletes a sub-category without dependents.
func (h *CoaHandler) DeleteSubCategory(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.coaService.DeleteSubCategory(p, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateAccountRequest represents the payload for creating a COA account.
type CreateAccountRequest struct {
	SubCategoryID      string `json:"sub_category_id" binding:"required,uuid"`
	Code               string `json:"code" binding:"required,max=20"`
	Name               string `json:"name" binding:"required,max=200"`
	VisibleToTreasurer *bool  `json:"visible_to_treasurer"`
}

// CreateAccount creates a leaf account under a sub-category.
// @Summary     Create a COA account
// @Tags        coa
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateAccountRequest true "Account details"
// @Success     201 {object} map[string]interface{} "Account created"
// @Router      /coa/accounts [post]
func (h *CoaHandler) CreateAccount(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	visible := true
	if req.VisibleToTreasurer != nil {
		visible = *req.VisibleToTreasurer
	}

	account, err := h.coaService.CreateAccount(p, req.SubCategoryID, req.Code, req.Name, visible)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": account})
}

// UpdateAccountRequest represents a partial account update.
type UpdateAccountRequest struct {
	Code               *string `json:"code" binding:"omitempty,max=20"`
	Name               *string `json:"name" binding:"omitempty,max=200"`
	VisibleToTreasurer *bool   `json:"visible_to_treasurer"`
	IsActive           *bool   `json:"is_active"`
}

// UpdateAccount applies a partial update to an account.
func (h *CoaHandler) UpdateAccount(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.coaService.UpdateAccount(p, c.Param("id"), services.AccountPatch{
		Code:               req.Code,
		Name:               req.Name,
		VisibleToTreasurer: req.VisibleToTreasurer,
		IsActive:           req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// DeleteAccount deletes an account not referenced by any transaction.
func (h *CoaHandler) DeleteAccount(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.coaService.DeleteAccount(p, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// parseCoaTypeFilter reads the optional ?type= query parameter.
func parseCoaTypeFilter(c *gin.Context) (*models.CoaType, error) {
	raw := c.Query("type")
	if raw == "" {
		return nil, nil
	}
	t := models.CoaType(raw)
	if t != models.CoaTypeRevenue && t != models.CoaTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be REVENUE or EXPENSE")
	}
	return &t, nil
}

// ListHierarchy returns the nested COA view.
// @Summary     List the COA hierarchy
// @Tags        coa
// @Produce     json
// @Security    BearerAuth
// @Param       type query string false "Filter by type (REVENUE or EXPENSE)"
// @Success     200 {object} map[string]interface{} "Nested categories"
// @Router      /coa/hierarchy [get]
func (h *CoaHandler) ListHierarchy(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	typeFilter, err := parseCoaTypeFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categories, err := h.coaService.ListHierarchy(p, typeFilter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// ListFlat returns one row per active account with its parent names.
// @Summary     List flattened COA accounts
// @Tags        coa
// @Produce     json
// @Security    BearerAuth
// @Param       type query string false "Filter by type (REVENUE or EXPENSE)"
// @Success     200 {object} map[string]interface{} "Flat account rows"
// @Router      /coa/accounts [get]
func (h *CoaHandler) ListFlat(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	typeFilter, err := parseCoaTypeFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accounts, err := h.coaService.ListFlat(p, typeFilter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}
