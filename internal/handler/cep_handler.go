package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/consultacep/cep-api/internal/models"
	"github.com/consultacep/cep-api/internal/service"
	"github.com/consultacep/cep-api/internal/utils"
)

// CepHandler handles CEP HTTP requests.
type CepHandler struct {
	svc      *service.CepService
	pageSize int
}

// NewCepHandler creates a new CepHandler.
func NewCepHandler(svc *service.CepService, pageSize int) *CepHandler {
	return &CepHandler{svc: svc, pageSize: pageSize}
}

// cepRequest is the payload for create/update operations.
type cepRequest struct {
	CepNumber   string `json:"cep" binding:"required"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf" binding:"omitempty,len=2"`
	Unidade     int64  `json:"unidade"`
	IBGE        int    `json:"ibge"`
	GIA         string `json:"gia"`
}

func (r *cepRequest) toModel() *models.CEP {
	return &models.CEP{
		CepNumber:   r.CepNumber,
		Logradouro:  r.Logradouro,
		Complemento: r.Complemento,
		Bairro:      r.Bairro,
		Localidade:  r.Localidade,
		UF:          strings.ToUpper(r.UF),
		Unidade:     r.Unidade,
		IBGE:        r.IBGE,
		GIA:         r.GIA,
	}
}

// GetCEP resolves a postal code, database first with ViaCEP fallback.
// GET /v1/cep/:code
func (h *CepHandler) GetCEP(c *gin.Context) {
	ctx := c.Request.Context()

	code := c.Param("code")
	if !utils.IsValidCEP(code) {
		utils.Error(c, http.StatusBadRequest, "INVALID_CEP", "CEP must be exactly 8 numeric digits")
		return
	}

	record, source, err := h.svc.Resolve(ctx, code)
	if err != nil {
		if errors.Is(err, utils.ErrUpstreamMalformed) {
			utils.Error(c, http.StatusBadGateway, "UPSTREAM_MALFORMED", "Upstream returned malformed data for this CEP")
			return
		}
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resolve CEP")
		return
	}
	if record == nil {
		utils.Error(c, http.StatusNotFound, "CEP_NOT_FOUND", "CEP not found")
		return
	}

	utils.Success(c, http.StatusOK, "CEP resolved successfully", gin.H{
		"record": record,
		"source": source,
	})
}

// ExistsCEP reports whether a postal code is already persisted. The remote
// fallback is never consulted here.
// GET /v1/cep/:code/exists
func (h *CepHandler) ExistsCEP(c *gin.Context) {
	ctx := c.Request.Context()

	code := c.Param("code")
	if !utils.IsValidCEP(code) {
		utils.Error(c, http.StatusBadRequest, "INVALID_CEP", "CEP must be exactly 8 numeric digits")
		return
	}

	exists, err := h.svc.ExistsInDB(ctx, code)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check CEP")
		return
	}

	utils.Success(c, http.StatusOK, "CEP existence checked", gin.H{"exists": exists})
}

// ListByUF returns one page of records for a federative unit.
// GET /v1/ceps/uf/:uf?page=1
func (h *CepHandler) ListByUF(c *gin.Context) {
	ctx := c.Request.Context()

	uf := strings.ToUpper(c.Param("uf"))
	if !utils.IsValidUF(uf) {
		utils.Error(c, http.StatusBadRequest, "INVALID_UF", "Unknown federative unit code")
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	items, total, err := h.svc.GetByUFPaged(ctx, uf, page, h.pageSize)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list CEPs")
		return
	}

	data := models.NewPaginatedList(items, total, page, h.pageSize)
	utils.SuccessWithPagination(c, http.StatusOK, "CEPs retrieved successfully", data, page, h.pageSize, total)
}

// ListAllByUF returns every record for a federative unit, unpaginated.
// GET /v1/admin/ceps/uf/:uf
func (h *CepHandler) ListAllByUF(c *gin.Context) {
	ctx := c.Request.Context()

	uf := strings.ToUpper(c.Param("uf"))
	if !utils.IsValidUF(uf) {
		utils.Error(c, http.StatusBadRequest, "INVALID_UF", "Unknown federative unit code")
		return
	}

	items, err := h.svc.GetByUF(ctx, uf)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list CEPs")
		return
	}

	utils.Success(c, http.StatusOK, "CEPs retrieved successfully", items)
}

// CreateCEP registers a new record. A code already on file is a distinct
// outcome carrying the stored record, not an error.
// POST /v1/admin/ceps
func (h *CepHandler) CreateCEP(c *gin.Context) {
	ctx := c.Request.Context()

	var req cepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if !utils.IsValidCEP(req.CepNumber) {
		utils.Error(c, http.StatusBadRequest, "INVALID_CEP", "CEP must be exactly 8 numeric digits")
		return
	}

	result, err := h.svc.Add(ctx, req.toModel())
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register CEP")
		return
	}

	switch {
	case result.Exists:
		utils.Success(c, http.StatusOK, "CEP already registered", result)
	case result.Success:
		utils.Success(c, http.StatusCreated, "CEP registered successfully", result)
	default:
		message := "Failed to register CEP"
		if len(result.Errors) > 0 {
			message = result.Errors[0]
		}
		utils.Error(c, http.StatusInternalServerError, "INSERT_FAILED", message)
	}
}

// UpdateCEP rewrites a record by id.
// PUT /v1/admin/ceps/:id
func (h *CepHandler) UpdateCEP(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid record id")
		return
	}

	var req cepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if !utils.IsValidCEP(req.CepNumber) {
		utils.Error(c, http.StatusBadRequest, "INVALID_CEP", "CEP must be exactly 8 numeric digits")
		return
	}

	record := req.toModel()
	record.ID = id

	updated, err := h.svc.Update(ctx, record)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update CEP")
		return
	}
	if !updated {
		utils.Error(c, http.StatusNotFound, "CEP_NOT_FOUND", "No record with that id")
		return
	}

	utils.Success(c, http.StatusOK, "CEP updated successfully", record)
}

// DeleteCEP removes a record by id.
// DELETE /v1/admin/ceps/:id
func (h *CepHandler) DeleteCEP(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid record id")
		return
	}

	removed, err := h.svc.Remove(ctx, id)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to remove CEP")
		return
	}
	if !removed {
		utils.Error(c, http.StatusNotFound, "CEP_NOT_FOUND", "No record with that id")
		return
	}

	utils.Success(c, http.StatusOK, "CEP removed successfully", gin.H{"id": id})
}
