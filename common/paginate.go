package common

import (
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PageRequest is a validated limit/page pair plus the URL the navigation
// links are built from.
type PageRequest struct {
	Limit int
	Page  int
	Path  string
}

func (r PageRequest) Offset() int {
	return (r.Page - 1) * r.Limit
}

// Paging holds the list defaults. MaxLimit caps client supplied limits;
// zero disables the cap.
type Paging struct {
	DefaultLimit int
	MaxLimit     int
	BaseURL      string
}

// ParsePageRequest reads the limit and page query parameters. Missing or
// non-positive values fall back to the defaults; non-integers are rejected.
func (p Paging) ParsePageRequest(c *gin.Context) (PageRequest, error) {
	defaultLimit := p.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = 10
	}

	limit, err := queryInt(c, "limit", defaultLimit)
	if err != nil {
		return PageRequest{}, err
	}
	if p.MaxLimit > 0 && limit > p.MaxLimit {
		limit = p.MaxLimit
	}

	page, err := queryInt(c, "page", 1)
	if err != nil {
		return PageRequest{}, err
	}
	// (page-1)*limit must fit in an int or the offset wraps negative
	if page-1 > math.MaxInt/limit {
		return PageRequest{}, ValidationError("The page is out of range.")
	}

	return PageRequest{Limit: limit, Page: page, Path: requestPath(c, p.BaseURL)}, nil
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e := ValidationError(fmt.Sprintf("The %s must be an integer.", name))
		e.Err = err
		return 0, e
	}
	if v < 1 {
		return fallback, nil
	}
	return v, nil
}

func requestPath(c *gin.Context, baseURL string) string {
	if baseURL == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		baseURL = scheme + "://" + c.Request.Host
	}
	return baseURL + c.Request.URL.Path
}

// Page is one slice of a listing together with the total row count.
type Page[T any] struct {
	Items   []T
	Total   int64
	Request PageRequest
}

type PageMeta struct {
	CurrentPage int    `json:"current_page"`
	From        *int   `json:"from"`
	LastPage    int    `json:"last_page"`
	Path        string `json:"path"`
	PerPage     int    `json:"per_page"`
	To          *int   `json:"to"`
	Total       int64  `json:"total"`
}

type PageLinks struct {
	First string  `json:"first"`
	Last  string  `json:"last"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
}

func (p Page[T]) LastPage() int {
	if p.Total == 0 || p.Request.Limit <= 0 {
		return 1
	}
	last := int((p.Total + int64(p.Request.Limit) - 1) / int64(p.Request.Limit))
	if last < 1 {
		return 1
	}
	return last
}

func (p Page[T]) Meta() PageMeta {
	meta := PageMeta{
		CurrentPage: p.Request.Page,
		LastPage:    p.LastPage(),
		Path:        p.Request.Path,
		PerPage:     p.Request.Limit,
		Total:       p.Total,
	}
	if len(p.Items) > 0 {
		from := p.Request.Offset() + 1
		to := p.Request.Offset() + len(p.Items)
		meta.From = &from
		meta.To = &to
	}
	return meta
}

func (p Page[T]) Links() PageLinks {
	last := p.LastPage()
	links := PageLinks{
		First: p.url(1),
		Last:  p.url(last),
	}
	if p.Request.Page > 1 {
		prev := p.url(p.Request.Page - 1)
		links.Prev = &prev
	}
	if p.Request.Page < last {
		next := p.url(p.Request.Page + 1)
		links.Next = &next
	}
	return links
}

func (p Page[T]) url(page int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(p.Request.Limit))
	q.Set("page", strconv.Itoa(page))
	return p.Request.Path + "?" + q.Encode()
}

// Body is the data field of a list response; key names the item list.
func (p Page[T]) Body(key string) gin.H {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	return gin.H{
		key:     items,
		"links": p.Links(),
		"meta":  p.Meta(),
	}
}

// Paginate counts the rows matched by query and loads the requested page.
// Scopes are applied to the page fetch only (preloads, ordering).
func Paginate[T any](query *gorm.DB, req PageRequest, scopes ...func(*gorm.DB) *gorm.DB) (Page[T], error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Model(new(T)).Count(&total).Error; err != nil {
		return Page[T]{}, err
	}

	items := make([]T, 0, min(int64(req.Limit), total))
	if total > int64(req.Offset()) {
		err := query.Session(&gorm.Session{}).
			Scopes(scopes...).
			Offset(req.Offset()).
			Limit(req.Limit).
			Find(&items).Error
		if err != nil {
			return Page[T]{}, err
		}
	}

	return Page[T]{Items: items, Total: total, Request: req}, nil
}
