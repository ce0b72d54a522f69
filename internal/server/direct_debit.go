package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	directdebitdomain "github.com/southtrip/caravel/internal/directdebit/domain"
)

// maxImportBytes caps an uploaded response file. Bank response files for a
// single business date run to a few thousand rows, well under this.
const maxImportBytes = 10 << 20

type createBatchRequest struct {
	BusinessDate string `json:"business_date"`
	ActorUserID  string `json:"actor_user_id"`
}

// @Summary      Create presentment batch
// @Description  Collects every eligible pending attempt for the business date into one outbound bank file
// @Tags         direct-debit
// @Accept       json
// @Produce      json
// @Param        request body createBatchRequest true "Create Batch Request"
// @Success      200  {object}  directdebitdomain.BatchSummary
// @Router       /direct-debit/batches [post]
func (s *Server) CreateDirectDebitBatch(c *gin.Context) {
	if s.directDebitSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.BusinessDate) == "" {
		AbortWithError(c, newValidationError("business_date", "missing_business_date", "business_date is required"))
		return
	}

	summary, err := s.directDebitSvc.CreatePresentmentBatch(c.Request.Context(), directdebitdomain.CreatePresentmentRequest{
		BusinessDate: strings.TrimSpace(req.BusinessDate),
		ActorUserID:  actorFromRequest(c, req.ActorUserID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// @Summary      Import bank response file
// @Description  Reconciles an uploaded response file against the outbound batch it answers
// @Tags         direct-debit
// @Accept       multipart/form-data
// @Produce      json
// @Param        id   path      string  true  "Outbound batch ID"
// @Param        file formData  file    true  "Bank response file"
// @Success      200  {object}  directdebitdomain.ImportResult
// @Router       /direct-debit/batches/{id}/responses [post]
func (s *Server) ImportDirectDebitResponses(c *gin.Context) {
	if s.directDebitSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	if !s.importLimiter.Allow(c.ClientIP()) {
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	data, fileName, err := readResponseUpload(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.directDebitSvc.ImportResponseBatch(c.Request.Context(), directdebitdomain.ImportRequest{
		OutboundBatchID: c.Param("id"),
		FileName:        fileName,
		Data:            data,
		ActorUserID:     actorFromRequest(c, c.PostForm("actor_user_id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// readResponseUpload accepts either a multipart "file" field or a raw body
// with an optional X-File-Name header for curl-style uploads.
func readResponseUpload(c *gin.Context) ([]byte, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	file, header, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", uploadReadError(err)
		}
		return data, filepath.Base(header.Filename), nil
	}
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", newValidationError("file", "missing_file", "multipart field 'file' is required")
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, "", uploadReadError(err)
	}
	return data, strings.TrimSpace(c.GetHeader("X-File-Name")), nil
}

func uploadReadError(err error) *apiError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return ErrRequestTooLarge
	}
	return invalidRequestError()
}

// @Summary      List batches
// @Description  Lists outbound and inbound batches newest first
// @Tags         direct-debit
// @Produce      json
// @Param        from       query  string  false  "Business date lower bound (YYYY-MM-DD)"
// @Param        to         query  string  false  "Business date upper bound (YYYY-MM-DD)"
// @Param        direction  query  string  false  "OUTBOUND or INBOUND"
// @Param        limit      query  int     false  "Page size"
// @Success      200  {object}  directdebitdomain.ListBatchesResponse
// @Router       /direct-debit/batches [get]
func (s *Server) ListDirectDebitBatches(c *gin.Context) {
	if s.directDebitSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	resp, err := s.directDebitSvc.ListBatches(c.Request.Context(), directdebitdomain.ListBatchesRequest{
		From:      c.Query("from"),
		To:        c.Query("to"),
		Direction: c.Query("direction"),
		Limit:     limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary      Download batch file
// @Description  Returns the exact stored bytes of a batch file
// @Tags         direct-debit
// @Produce      octet-stream
// @Param        id  path  string  true  "Batch ID"
// @Success      200  {file}  file
// @Router       /direct-debit/batches/{id}/file [get]
func (s *Server) DownloadDirectDebitBatchFile(c *gin.Context) {
	if s.directDebitSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	file, err := s.directDebitSvc.DownloadBatchFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
