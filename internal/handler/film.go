package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/starwars-api/internal/apperr"
	"github.com/iliyamo/starwars-api/internal/film"
	"github.com/iliyamo/starwars-api/internal/model"
)

// FilmHandler bundles dependencies for catalog and comment endpoints.
type FilmHandler struct {
	Svc *film.Service
}

func NewFilmHandler(svc *film.Service) *FilmHandler {
	return &FilmHandler{Svc: svc}
}

type createCommentReq struct {
	Body string `json:"body"`
}

type commentPart struct {
	ID        uint64 `json:"id"`
	FilmID    string `json:"filmId"`
	Body      string `json:"body"`
	Author    string `json:"author,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type commentPage struct {
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	Limit    int           `json:"limit"`
	Comments []commentPart `json:"comments"`
}

// ListFilms: catalog listing, newest release first, with comment counts.
func (h *FilmHandler) ListFilms(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	films, err := h.Svc.ListFilms(ctx, strings.TrimSpace(c.QueryParam("search")))
	if err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, "Films fetched successfully", films)
}

// ListCharacters: catalog character list, optionally ordered.
func (h *FilmHandler) ListCharacters(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	chars, err := h.Svc.ListCharacters(ctx, c.QueryParam("orderBy"), c.QueryParam("order"))
	if err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, "Characters fetched successfully", chars)
}

// CreateComment: attach a comment to a film (protected).
func (h *FilmHandler) CreateComment(c echo.Context) error {
	var req createCommentReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Body) == "" {
		return fail(c, apperr.BadRequest("body is required"))
	}
	uid, ok := c.Get("user_id").(uint64)
	if !ok {
		return fail(c, apperr.Unauthorized("Please sign in or create an account"))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	comment, err := h.Svc.CreateComment(ctx, c.Param("id"), uid, strings.TrimSpace(req.Body))
	if err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusCreated, "Comment was created successfully", commentPart{
		ID:        comment.ID,
		FilmID:    comment.FilmID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// ListComments: one page of a film's comments, newest first.
func (h *FilmHandler) ListComments(c echo.Context) error {
	page := atoiDefault(c.QueryParam("page"), 1)
	limit := atoiDefault(c.QueryParam("limit"), 10)

	ctx, cancel := reqCtx(c)
	defer cancel()

	comments, total, err := h.Svc.ListComments(ctx, c.Param("id"), page, limit)
	if err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, "Comments fetched successfully", commentPage{
		Total:    total,
		Page:     page,
		Limit:    limit,
		Comments: toCommentParts(comments),
	})
}

func toCommentParts(in []model.CommentWithAuthor) []commentPart {
	out := make([]commentPart, 0, len(in))
	for _, cm := range in {
		out = append(out, commentPart{
			ID:        cm.ID,
			FilmID:    cm.FilmID,
			Body:      cm.Body,
			Author:    strings.TrimSpace(cm.AuthorFirstName + " " + cm.AuthorLastName),
			CreatedAt: cm.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
