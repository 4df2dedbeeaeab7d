package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/raine/ai-camera-cloud/internal/imaging"
	"github.com/raine/ai-camera-cloud/internal/llm"
	"github.com/raine/ai-camera-cloud/internal/pipeline"
	"github.com/raine/ai-camera-cloud/internal/price"
	"github.com/raine/ai-camera-cloud/internal/search"
	"github.com/rs/zerolog/log"
)

type llavaAnalyzeForm struct {
	Prompt      string   `form:"prompt" binding:"required"`
	Model       string   `form:"model"`
	MaxTokens   int      `form:"max_tokens" binding:"gte=0,lte=8192"`
	Temperature *float64 `form:"temperature" binding:"omitempty,gte=0,lte=2"`
}

type analyzeForm struct {
	Category   string   `form:"category" binding:"required"`
	Confidence *float64 `form:"confidence" binding:"required,gte=0,lte=1"`
	Prompt     string   `form:"prompt"`
}

type webSearchRequest struct {
	Query       string `json:"query" binding:"required"`
	MaxResults  *int   `json:"max_results"`
	IncludeWiki *bool  `json:"include_wiki"`
	IncludeNews *bool  `json:"include_news"`
}

type priceCheckRequest struct {
	Category    string   `json:"category" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Sources     []string `json:"sources"`
}

func (s *Server) handleRoot(c *gin.Context) {
	llava := "unavailable"
	if s.orch.Live() {
		llava = "available"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": ServiceName,
		"version": ServiceVersion,
		"status":  "running",
		"services": gin.H{
			"llava":       llava,
			"web_search":  "available",
			"price_check": "available",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	llava := "unavailable"
	if s.orch.Live() {
		llava = "ok"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339Nano),
		"services": gin.H{
			"llava":       llava,
			"web_search":  "ok",
			"price_check": "ok",
		},
	})
}

func (s *Server) handleLlavaAnalyze(c *gin.Context) {
	var form llavaAnalyzeForm
	if err := c.ShouldBind(&form); err != nil {
		s.writeError(c, bindStatus(err), err)
		return
	}

	data, err := readImage(c)
	if err != nil {
		s.writeError(c, bindStatus(err), err)
		return
	}

	if form.Model != "" {
		log.Debug().Str("requestedModel", form.Model).Msg("model selection is fixed at startup, ignoring requested model")
	}

	result, err := s.orch.AnalyzeImage(c.Request.Context(), data, form.Prompt, llm.Options{
		MaxTokens:   form.MaxTokens,
		Temperature: form.Temperature,
	})
	if err != nil {
		s.writeFailure(c, "image analysis failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleWebSearch(c *gin.Context) {
	var req webSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusUnprocessableEntity, err)
		return
	}

	q := search.NewQuery(req.Query)
	if req.MaxResults != nil {
		q.MaxResults = *req.MaxResults
	}
	if req.IncludeWiki != nil {
		q.IncludeWiki = *req.IncludeWiki
	}
	if req.IncludeNews != nil {
		q.IncludeNews = *req.IncludeNews
	}

	result, err := s.orch.Search(c.Request.Context(), q)
	if err != nil {
		s.writeFailure(c, "web search failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handlePriceCheck(c *gin.Context) {
	var req priceCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusUnprocessableEntity, err)
		return
	}

	sources := req.Sources
	if sources == nil {
		sources = price.DefaultSources
	}
	if unknown := price.UnknownSources(sources); len(unknown) > 0 {
		s.writeError(c, http.StatusUnprocessableEntity, fmt.Errorf("unknown price sources: %s", strings.Join(unknown, ", ")))
		return
	}

	result, err := s.orch.CheckPrice(c.Request.Context(), req.Category, req.Description, sources)
	if err != nil {
		s.writeFailure(c, "price check failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var form analyzeForm
	if err := c.ShouldBind(&form); err != nil {
		s.writeError(c, bindStatus(err), err)
		return
	}

	data, err := readImage(c)
	if err != nil {
		s.writeError(c, bindStatus(err), err)
		return
	}

	result, err := s.orch.Run(c.Request.Context(), pipeline.Request{
		Image:      data,
		Category:   form.Category,
		Confidence: *form.Confidence,
		Prompt:     form.Prompt,
	})
	if err != nil {
		s.writeFailure(c, "combined analysis failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func readImage(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("image file is required: %w", err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded image: %w", err)
	}
	return data, nil
}

// bindStatus maps request parsing failures: oversized or malformed bodies are
// 400, missing or invalid fields are 422.
func bindStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

// writeFailure reports a failed operation: undecodable uploads are the
// client's fault, everything else is an internal error.
func (s *Server) writeFailure(c *gin.Context, msg string, err error) {
	log.Error().Err(err).Str("requestID", c.GetString(requestIDKey)).Msg(msg)

	var decodeErr *imaging.DecodeError
	if errors.As(err, &decodeErr) {
		s.writeError(c, http.StatusBadRequest, err)
		return
	}
	s.writeError(c, http.StatusInternalServerError, err)
}

func (s *Server) writeError(c *gin.Context, status int, err error) {
	detail := err.Error()
	if status >= http.StatusInternalServerError && !s.opts.ExposeErrorDetails {
		detail = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{
		"detail":     detail,
		"request_id": c.GetString(requestIDKey),
	})
}

func (s *Server) recover(c *gin.Context, recovered any) {
	s.writeError(c, http.StatusInternalServerError, fmt.Errorf("panic: %v", recovered))
}
