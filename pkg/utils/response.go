package utils

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ResponseData is the JSON envelope returned by every REST endpoint.
type ResponseData struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ResponseError `json:"error,omitempty"`
	Meta    *Pagination    `json:"meta,omitempty"`
}

type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Pagination describes a page of a list endpoint.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PageRequest is parsed from ?page=&limit=.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

func (p PageRequest) Meta(total int64) *Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	return &Pagination{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}

// NewPageRequest clamps page and limit to sane bounds.
func NewPageRequest(page, limit int) PageRequest {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return PageRequest{Page: page, Limit: limit}
}

// ParsePageRequest reads pagination query params from a fiber request.
func ParsePageRequest(c *fiber.Ctx) PageRequest {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(DefaultPageLimit)))
	return NewPageRequest(page, limit)
}

func Success(data any) ResponseData {
	return ResponseData{Success: true, Data: data}
}

func Paginated(data any, meta *Pagination) ResponseData {
	return ResponseData{Success: true, Data: data, Meta: meta}
}

func Failure(code, message string, details any) ResponseData {
	return ResponseData{Success: false, Error: &ResponseError{Code: code, Message: message, Details: details}}
}
