package model

import "time"

// Comment models an entry in the `comments` table.  Comments are
// attached to films by the upstream catalog's numeric episode ID;
// the film itself is never stored locally.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – author of the comment.
//  FilmID    – upstream episode ID the comment belongs to.
//  Body      – comment text.
//  CreatedAt – timestamp of creation.
type Comment struct {
	ID        uint64    // comments.id
	UserID    uint64    // comments.user_id
	FilmID    string    // comments.film_id
	Body      string    // comments.comment_body
	CreatedAt time.Time // comments.created_at
}

// CommentWithAuthor joins a comment with the commenter's display
// name for list responses.
type CommentWithAuthor struct {
	Comment
	AuthorFirstName string
	AuthorLastName  string
}
