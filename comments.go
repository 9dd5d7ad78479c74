package cleanblog

import (
	"database/sql"
	"fmt"
	"strings"
)

// AddComment stores a comment by author on the post postID. A nil author is an
// anonymous caller and yields ErrLoginRequired without touching the database.
func (s *Store) AddComment(postID int64, author *User, in CommentInput) (Comment, error) {
	if author == nil {
		return Comment{}, ErrLoginRequired
	}
	in.Text = strings.TrimSpace(SanitizeHTML(strings.TrimSpace(in.Text)))
	if err := validateInput(in); err != nil {
		return Comment{}, err
	}
	c := Comment{
		PostID:     postID,
		AuthorID:   author.ID,
		AuthorName: author.Username,
		Text:       in.Text,
		CreatedAt:  s.now().UTC(),
	}
	err := s.withTx(func(tx *sql.Tx) error {
		known, err := rowExists(tx, `SELECT 1 FROM posts WHERE id = ?`, postID)
		if err != nil {
			return err
		}
		if !known {
			return ErrNotFound
		}
		known, err = rowExists(tx, `SELECT 1 FROM users WHERE id = ?`, author.ID)
		if err != nil {
			return err
		}
		if !known {
			return ErrLoginRequired
		}
		res, err := tx.Exec(`INSERT INTO comments (text, post_id, author_id, created_at) VALUES (?, ?, ?, ?)`,
			c.Text, c.PostID, c.AuthorID, formatTimestamp(c.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		c.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return Comment{}, err
	}
	return c, nil
}

// GetCommentsByPost returns the comments on postID, oldest first.
func (s *Store) GetCommentsByPost(postID int64) ([]Comment, error) {
	rows, err := s.db.Query(`SELECT c.id, c.post_id, c.author_id, u.username, c.text, c.created_at
FROM comments c JOIN users u ON u.id = c.author_id
WHERE c.post_id = ? ORDER BY c.id`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		var created string
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.AuthorName, &c.Text, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTimestamp(created)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
