package cleanblog

import (
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// passwordCost is the bcrypt work factor for new password hashes.
const passwordCost = 10

// Register validates in, hashes the password and persists a new user.
// The email check runs before the username check.
func (s *Store) Register(in RegisterInput) (User, error) {
	in.normalize()
	if err := validateInput(in); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), passwordCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	err = s.withTx(func(tx *sql.Tx) error {
		taken, err := rowExists(tx, `SELECT 1 FROM users WHERE email = ?`, u.Email)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateEmail
		}
		taken, err = rowExists(tx, `SELECT 1 FROM users WHERE username = ?`, u.Username)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateUsername
		}
		res, err := tx.Exec(`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
			u.Username, u.Email, u.PasswordHash, formatTimestamp(u.CreatedAt))
		switch {
		case isUniqueViolation(err, "users.email"):
			return ErrDuplicateEmail
		case isUniqueViolation(err, "users.username"):
			return ErrDuplicateUsername
		case err != nil:
			return fmt.Errorf("insert user: %w", err)
		}
		u.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// Authenticate returns the user owning email if password matches its hash.
func (s *Store) Authenticate(email, password string) (User, error) {
	u, err := s.GetUserByEmail(email)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrUnknownEmail
	}
	if err != nil {
		return User{}, err
	}
	err = bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return User{}, ErrBadPassword
	}
	if err != nil {
		return User{}, fmt.Errorf("compare password: %w", err)
	}
	return u, nil
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(id int64) (User, error) {
	return scanUser(s.db.QueryRow(`SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?`, id))
}

// GetUserByEmail looks a user up by (case-insensitive) email.
func (s *Store) GetUserByEmail(email string) (User, error) {
	return scanUser(s.db.QueryRow(`SELECT id, username, email, password_hash, created_at FROM users WHERE email = ?`, normalizeEmail(email)))
}

func scanUser(row scanner) (User, error) {
	var u User
	var created string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &created)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.CreatedAt = parseTimestamp(created)
	return u, nil
}
