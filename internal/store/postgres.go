package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- FAQ entries ----

const faqColumns = `id, question, answer, category, is_pinned, visibility, created_by, updated_by, created_at, updated_at`

func scanFAQ(row interface{ Scan(...any) error }) (FAQ, error) {
	var item FAQ
	err := row.Scan(
		&item.ID, &item.Question, &item.Answer, &item.Category,
		&item.IsPinned, &item.Visibility, &item.CreatedBy, &item.UpdatedBy,
		&item.CreatedAt, &item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) ListFAQs(ctx context.Context, filter FAQFilter) ([]FAQ, error) {
	query := `
		SELECT ` + faqColumns + `
		FROM faqs
		WHERE (visibility = 'public' OR $1)
	`
	args := []any{filter.IncludeInternal}

	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		query += fmt.Sprintf(` AND (question ILIKE $%d OR answer ILIKE $%d)`, len(args), len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}
	defer rows.Close()

	items := make([]FAQ, 0)
	for rows.Next() {
		item, err := scanFAQ(rows)
		if err != nil {
			return nil, fmt.Errorf("scan faq: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faqs: %w", err)
	}

	for i := range items {
		comments, err := s.listComments(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Comments = comments
	}
	return items, nil
}

// GetFAQ applies the same visibility predicate as ListFAQs so a caller who
// may not see an entry gets sql.ErrNoRows, indistinguishable from absence.
func (s *PostgresStore) GetFAQ(ctx context.Context, id string, includeInternal bool) (FAQ, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+faqColumns+`
		FROM faqs
		WHERE id = $1 AND (visibility = 'public' OR $2)
	`, id, includeInternal)
	item, err := scanFAQ(row)
	if err != nil {
		return FAQ{}, err
	}
	comments, err := s.listComments(ctx, item.ID)
	if err != nil {
		return FAQ{}, err
	}
	item.Comments = comments
	return item, nil
}

func (s *PostgresStore) InsertFAQ(ctx context.Context, item FAQ) (FAQ, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO faqs (id, question, answer, category, is_pinned, visibility, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING `+faqColumns+`
	`, item.ID, item.Question, item.Answer, item.Category, item.IsPinned, item.Visibility, item.CreatedBy)
	created, err := scanFAQ(row)
	if err != nil {
		return FAQ{}, fmt.Errorf("insert faq: %w", err)
	}
	created.Comments = []Comment{}
	return created, nil
}

// UpdateFAQ merges the non-nil fields into the entry in a single statement,
// so two concurrent updates serialize in the database and the result is one
// of them fully applied. Audit fields refresh on every call.
func (s *PostgresStore) UpdateFAQ(ctx context.Context, id string, fields FAQUpdate, updatedBy string) (FAQ, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE faqs SET
			question   = COALESCE($2, question),
			answer     = COALESCE($3, answer),
			category   = COALESCE($4, category),
			is_pinned  = COALESCE($5, is_pinned),
			visibility = COALESCE($6, visibility),
			updated_by = $7,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+faqColumns+`
	`, id, fields.Question, fields.Answer, fields.Category, fields.IsPinned, fields.Visibility, updatedBy)
	item, err := scanFAQ(row)
	if err != nil {
		return FAQ{}, err
	}
	comments, err := s.listComments(ctx, item.ID)
	if err != nil {
		return FAQ{}, err
	}
	item.Comments = comments
	return item, nil
}

// TogglePin flips is_pinned atomically. Modeled as an update, not a lighter
// operation: updated_by/updated_at refresh like any other edit.
func (s *PostgresStore) TogglePin(ctx context.Context, id, updatedBy string) (FAQ, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE faqs SET
			is_pinned  = NOT is_pinned,
			updated_by = $2,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+faqColumns+`
	`, id, updatedBy)
	item, err := scanFAQ(row)
	if err != nil {
		return FAQ{}, err
	}
	comments, err := s.listComments(ctx, item.ID)
	if err != nil {
		return FAQ{}, err
	}
	item.Comments = comments
	return item, nil
}

func (s *PostgresStore) DeleteFAQ(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM faqs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete faq: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete faq rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AppendComment inserts the comment only if the parent entry still exists;
// the existence check and the insert are one statement so the append cannot
// race a concurrent delete. The parent's audit fields are left untouched.
func (s *PostgresStore) AppendComment(ctx context.Context, comment Comment) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO faq_comments (id, faq_id, author_id, content)
		SELECT $1, $2, $3, $4
		WHERE EXISTS (SELECT 1 FROM faqs WHERE id = $2)
	`, comment.ID, comment.FAQID, comment.AuthorID, comment.Content)
	if err != nil {
		return fmt.Errorf("append comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("append comment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) listComments(ctx context.Context, faqID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, faq_id, author_id, content, created_at
		FROM faq_comments
		WHERE faq_id = $1
		ORDER BY seq ASC
	`, faqID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]Comment, 0)
	for rows.Next() {
		var comment Comment
		if err := rows.Scan(&comment.ID, &comment.FAQID, &comment.AuthorID, &comment.Content, &comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

// ---- Users ----

const userColumns = `id, display_name, email, password_hash, role, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var user User
	err := row.Scan(
		&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash,
		&user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash, user.Role)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	return scanUser(row)
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) UpdateUserRole(ctx context.Context, userID, role string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1
	`, userID, role)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user role rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ---- Refresh sessions and token revocation ----

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM refresh_sessions
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > NOW()
	`, tokenHash).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}
