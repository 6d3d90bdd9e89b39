package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/starwars-api/internal/model"
)

// CommentRepo persists rows of the 'comments' table.
type CommentRepo struct{ DB *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{DB: db} }

// Create inserts a comment and returns the stored row.
func (r *CommentRepo) Create(ctx context.Context, userID uint64, filmID, body string) (model.Comment, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO comments (user_id, film_id, comment_body) VALUES (?,?,?)",
		userID, filmID, body)
	if err != nil {
		return model.Comment{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Comment{}, err
	}
	var c model.Comment
	err = r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,film_id,comment_body,created_at FROM comments WHERE id=? LIMIT 1", id).
		Scan(&c.ID, &c.UserID, &c.FilmID, &c.Body, &c.CreatedAt)
	return c, err
}

// CountByFilm returns the number of comments attached to a film.
func (r *CommentRepo) CountByFilm(ctx context.Context, filmID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM comments WHERE film_id=?", filmID).Scan(&n)
	return n, err
}

// ListByFilm returns one page of a film's comments, newest first,
// joined with the commenter's name. page is 1-based; values below 1
// select the first page.
func (r *CommentRepo) ListByFilm(ctx context.Context, filmID string, page, limit int) ([]model.CommentWithAuthor, error) {
	if limit <= 0 {
		limit = 10
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	rows, err := r.DB.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.film_id, c.comment_body, c.created_at, u.first_name, u.last_name
		 FROM comments c JOIN users u ON u.id = c.user_id
		 WHERE c.film_id=? ORDER BY c.created_at DESC LIMIT ? OFFSET ?`,
		filmID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.CommentWithAuthor, 0, limit)
	for rows.Next() {
		var c model.CommentWithAuthor
		if err := rows.Scan(&c.ID, &c.UserID, &c.FilmID, &c.Body, &c.CreatedAt,
			&c.AuthorFirstName, &c.AuthorLastName); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
