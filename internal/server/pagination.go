package server

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/foodgram/internal/apperror"
	"github.com/MarcoPoloResearchLab/foodgram/internal/recipes"
	"github.com/gin-gonic/gin"
)

const (
	opParsePage  = "request.parse_page"
	maxPageLimit = 100
	// maxPage keeps page*limit within 32 bits.
	maxPage = math.MaxInt32 / maxPageLimit
)

type pagination struct {
	page  int
	limit int
}

func (p pagination) window() recipes.Page {
	return recipes.Page{Offset: (p.page - 1) * p.limit, Limit: p.limit}
}

type pageEnvelope struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

// parsePagination reads page (>= 1) and limit (1..100) from the query string.
func parsePagination(c *gin.Context, defaultLimit int) (pagination, error) {
	result := pagination{page: 1, limit: defaultLimit}
	fields := map[string]string{}

	if raw := strings.TrimSpace(c.Query("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 || page > maxPage {
			fields["page"] = fmt.Sprintf("page must be an integer between 1 and %d", maxPage)
		} else {
			result.page = page
		}
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxPageLimit {
			fields["limit"] = fmt.Sprintf("limit must be an integer between 1 and %d", maxPageLimit)
		} else {
			result.limit = limit
		}
	}
	if len(fields) > 0 {
		return pagination{}, apperror.Validation(opParsePage, "invalid_query", "invalid pagination parameters", fields)
	}
	return result, nil
}

// envelope wraps results with the total count and links to the neighbouring pages.
func (p pagination) envelope(c *gin.Context, total int64, results interface{}) pageEnvelope {
	envelope := pageEnvelope{Count: total, Results: results}
	if int64(p.page)*int64(p.limit) < total {
		next := pageURL(c, p.page+1)
		envelope.Next = &next
	}
	if p.page > 1 {
		previous := pageURL(c, p.page-1)
		envelope.Previous = &previous
	}
	return envelope
}

func pageURL(c *gin.Context, page int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if forwarded := c.GetHeader("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	query := c.Request.URL.Query()
	query.Set("page", strconv.Itoa(page))
	target := url.URL{
		Scheme:   scheme,
		Host:     c.Request.Host,
		Path:     c.Request.URL.Path,
		RawQuery: query.Encode(),
	}
	return target.String()
}
