package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trendscout/internal/intent"
	"trendscout/internal/model"
	"trendscout/internal/trends"
)

const (
	requestIDHeader = "X-Request-ID"

	msgMissingQuery = "Missing query parameter ?q="
	msgInvalidParam = "invalid parameter"
	msgInternal     = "internal error"
)

type handler struct {
	ranker Ranker
}

type rankedResponse struct {
	Results []model.RankedResult `json:"results"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *handler) ranked(c *gin.Context) {
	in := intent.Input{
		Query:    c.Query("q"),
		Criteria: nonEmpty(c.QueryArray("criteria")),
	}
	if in.Empty() {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgMissingQuery})
		return
	}

	overrides, err := parseOverrides(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidParam, Details: err.Error()})
		return
	}

	resp, err := h.ranker.Trending(c.Request.Context(), in, overrides)
	switch {
	case err == nil:
	case errors.Is(err, trends.ErrMissingQuery):
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgMissingQuery})
		return
	case errors.Is(err, trends.ErrUpstream):
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error:   trends.ErrUpstream.Error(),
			Details: strings.TrimPrefix(err.Error(), trends.ErrUpstream.Error()+": "),
		})
		return
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: msgInternal})
		return
	}

	c.Header(requestIDHeader, resp.RequestID)
	c.JSON(http.StatusOK, rankedResponse{Results: resp.Results})
}

func (h *handler) criteria(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"groups": intent.Vocabulary()})
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
