package cleanblog

import (
	"database/sql"
	"fmt"
)

const postSelect = `SELECT p.id, p.title, p.subtitle, p.date, p.body, p.img_url, p.author_id, u.username
FROM posts p JOIN users u ON u.id = p.author_id`

// ListPosts returns every post in insertion order.
func (s *Store) ListPosts() ([]BlogPost, error) {
	return s.queryPosts(postSelect + ` ORDER BY p.id`)
}

// GetPostsByAuthor returns the posts written by userID in insertion order.
func (s *Store) GetPostsByAuthor(userID int64) ([]BlogPost, error) {
	return s.queryPosts(postSelect+` WHERE p.author_id = ? ORDER BY p.id`, userID)
}

// GetPost returns a single post by id.
func (s *Store) GetPost(id int64) (BlogPost, error) {
	return scanPost(s.db.QueryRow(postSelect+` WHERE p.id = ?`, id))
}

func (s *Store) queryPosts(query string, args ...any) ([]BlogPost, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func scanPost(row scanner) (BlogPost, error) {
	var p BlogPost
	err := row.Scan(&p.ID, &p.Title, &p.Subtitle, &p.Date, &p.Body, &p.ImgURL, &p.AuthorID, &p.AuthorName)
	if err == sql.ErrNoRows {
		return BlogPost{}, ErrNotFound
	}
	return p, err
}

// preparePost normalizes, sanitizes and validates a post submission.
func preparePost(in PostInput) (PostInput, error) {
	in.normalize()
	in.Body = SanitizeHTML(in.Body)
	in.normalize()
	if err := validateInput(in); err != nil {
		return PostInput{}, err
	}
	return in, nil
}

// CreatePost stores a new post written by author, stamped with today's date.
// Only the administrator may author posts.
func (s *Store) CreatePost(author User, in PostInput) (BlogPost, error) {
	if !author.IsAdmin() {
		return BlogPost{}, ErrForbidden
	}
	in, err := preparePost(in)
	if err != nil {
		return BlogPost{}, err
	}
	p := BlogPost{
		Title:      in.Title,
		Subtitle:   in.Subtitle,
		Date:       s.now().Format(PostDateLayout),
		Body:       in.Body,
		ImgURL:     in.ImgURL,
		AuthorID:   author.ID,
		AuthorName: author.Username,
	}
	err = s.withTx(func(tx *sql.Tx) error {
		known, err := rowExists(tx, `SELECT 1 FROM users WHERE id = ?`, author.ID)
		if err != nil {
			return err
		}
		if !known {
			return ErrNotFound
		}
		taken, err := rowExists(tx, `SELECT 1 FROM posts WHERE title = ?`, p.Title)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateTitle
		}
		res, err := tx.Exec(`INSERT INTO posts (title, subtitle, date, body, img_url, author_id) VALUES (?, ?, ?, ?, ?, ?)`,
			p.Title, p.Subtitle, p.Date, p.Body, p.ImgURL, p.AuthorID)
		if isUniqueViolation(err, "posts.title") {
			return ErrDuplicateTitle
		}
		if err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		p.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return BlogPost{}, err
	}
	return p, nil
}

// UpdatePost replaces the fields set in u. Author and date never change.
func (s *Store) UpdatePost(id int64, u PostUpdate) (BlogPost, error) {
	var updated BlogPost
	err := s.withTx(func(tx *sql.Tx) error {
		current, err := scanPost(tx.QueryRow(postSelect+` WHERE p.id = ?`, id))
		if err != nil {
			return err
		}
		in, err := preparePost(u.apply(current))
		if err != nil {
			return err
		}
		taken, err := rowExists(tx, `SELECT 1 FROM posts WHERE title = ? AND id <> ?`, in.Title, id)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateTitle
		}
		_, err = tx.Exec(`UPDATE posts SET title = ?, subtitle = ?, body = ?, img_url = ? WHERE id = ?`,
			in.Title, in.Subtitle, in.Body, in.ImgURL, id)
		if isUniqueViolation(err, "posts.title") {
			return ErrDuplicateTitle
		}
		if err != nil {
			return fmt.Errorf("update post: %w", err)
		}
		current.Title, current.Subtitle, current.Body, current.ImgURL = in.Title, in.Subtitle, in.Body, in.ImgURL
		updated = current
		return nil
	})
	if err != nil {
		return BlogPost{}, err
	}
	return updated, nil
}

// DeletePost removes a post together with its comments.
func (s *Store) DeletePost(id int64) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM comments WHERE post_id = ?`, id); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		res, err := tx.Exec(`DELETE FROM posts WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
