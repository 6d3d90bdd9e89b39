// Package film proxies the upstream catalog and attaches locally
// stored comments to its film records.
package film

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/starwars-api/internal/apperr"
	"github.com/iliyamo/starwars-api/internal/model"
	"github.com/iliyamo/starwars-api/internal/repository"
	"github.com/iliyamo/starwars-api/internal/swapi"
)

const (
	filmsCacheKey = "films"
	filmsCacheTTL = 365 * 24 * time.Hour
)

// Service serves film and character listings from the upstream
// catalog, read-through cached in Redis, and manages film comments.
type Service struct {
	catalog  *swapi.Client
	comments *repository.CommentRepo
	rdb      *redis.Client // nil disables caching
}

func NewService(catalog *swapi.Client, comments *repository.CommentRepo, rdb *redis.Client) *Service {
	return &Service{catalog: catalog, comments: comments, rdb: rdb}
}

// ListFilms returns the film catalog sorted by release date, newest
// first, each film annotated with its local comment count. The
// unfiltered list is cached; searches always go upstream.
func (s *Service) ListFilms(ctx context.Context, search string) ([]model.Film, error) {
	films, err := s.loadFilms(ctx, search)
	if err != nil {
		return nil, apperr.BadRequest("Unable to fetch films")
	}
	for i := range films {
		n, err := s.comments.CountByFilm(ctx, filmID(films[i]))
		if err != nil {
			return nil, apperr.Internal("Unable to fetch films")
		}
		films[i].CommentCount = n
	}
	sortFilmsByReleaseDate(films)
	return films, nil
}

func (s *Service) loadFilms(ctx context.Context, search string) ([]model.Film, error) {
	if search != "" || s.rdb == nil {
		return s.catalog.Films(ctx, search)
	}
	if raw, err := s.rdb.Get(ctx, filmsCacheKey).Bytes(); err == nil {
		var films []model.Film
		if err := json.Unmarshal(raw, &films); err == nil {
			return films, nil
		}
		// A corrupt cache entry falls through to the upstream fetch.
	}
	films, err := s.catalog.Films(ctx, "")
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(films); err == nil {
		if err := s.rdb.Set(ctx, filmsCacheKey, raw, filmsCacheTTL).Err(); err != nil {
			log.Printf("film: cache films failed: %v", err)
		}
	}
	return films, nil
}

// ListCharacters returns the character catalog, optionally ordered.
// orderBy must be "name" or "gender" and order "asc" or "desc";
// both parameters must be given together or not at all.
func (s *Service) ListCharacters(ctx context.Context, orderBy, order string) ([]model.Character, error) {
	if orderBy == "" && order == "" {
		return s.fetchCharacters(ctx)
	}
	if orderBy == "" || order == "" {
		return nil, apperr.BadRequest("incomplete filter parameters")
	}
	if orderBy != "name" && orderBy != "gender" {
		return nil, apperr.BadRequest("Invalid filter for ordering. Ordering can only be by gender or name")
	}
	if order != "asc" && order != "desc" {
		return nil, apperr.BadRequest("order param can only be asc or desc")
	}

	chars, err := s.fetchCharacters(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(chars, func(i, j int) bool {
		var a, b string
		if orderBy == "name" {
			a, b = chars[i].Name, chars[j].Name
		} else {
			a, b = chars[i].Gender, chars[j].Gender
		}
		if order == "asc" {
			return a < b
		}
		return a > b
	})
	return chars, nil
}

func (s *Service) fetchCharacters(ctx context.Context) ([]model.Character, error) {
	chars, err := s.catalog.Characters(ctx)
	if err != nil {
		return nil, apperr.BadRequest("Unable to fetch characters")
	}
	return chars, nil
}

// CreateComment attaches a comment to a film. The film must exist
// upstream.
func (s *Service) CreateComment(ctx context.Context, filmID string, userID uint64, body string) (model.Comment, error) {
	if err := s.requireFilm(ctx, filmID); err != nil {
		return model.Comment{}, err
	}
	c, err := s.comments.Create(ctx, userID, filmID, body)
	if err != nil {
		return model.Comment{}, apperr.Internal("Unable to save comment")
	}
	return c, nil
}

// ListComments returns one page of a film's comments, newest first,
// together with the film's total comment count.
func (s *Service) ListComments(ctx context.Context, filmID string, page, limit int) ([]model.CommentWithAuthor, int, error) {
	if err := s.requireFilm(ctx, filmID); err != nil {
		return nil, 0, err
	}
	comments, err := s.comments.ListByFilm(ctx, filmID, page, limit)
	if err != nil {
		return nil, 0, apperr.Internal("Unable to fetch comments")
	}
	total, err := s.comments.CountByFilm(ctx, filmID)
	if err != nil {
		return nil, 0, apperr.Internal("Unable to fetch comments")
	}
	return comments, total, nil
}

func (s *Service) requireFilm(ctx context.Context, filmID string) error {
	if _, err := s.catalog.Film(ctx, filmID); err != nil {
		if errors.Is(err, swapi.ErrNotFound) {
			return apperr.NotFound("You can't comment on a film that does not exist")
		}
		return apperr.Internal("Unable to reach the film catalog")
	}
	return nil
}

// filmID derives the comment key for a film from its upstream
// episode ID.
func filmID(f model.Film) string {
	return strconv.Itoa(f.EpisodeID)
}

// sortFilmsByReleaseDate orders films newest first. Release dates
// come from the upstream as YYYY-MM-DD strings, which sort
// lexicographically.
func sortFilmsByReleaseDate(films []model.Film) {
	sort.SliceStable(films, func(i, j int) bool {
		return films[i].ReleaseDate > films[j].ReleaseDate
	})
}
