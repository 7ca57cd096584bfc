package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"faqhub/api/internal/auth"
	"faqhub/api/internal/authpw"
	"faqhub/api/internal/config"
	"faqhub/api/internal/export"
	"faqhub/api/internal/rbac"
	"faqhub/api/internal/session"
	"faqhub/api/internal/store"
	"faqhub/api/internal/util"
)

// Session is the resolved identity for one request. The zero value is the
// anonymous caller: no subject, no role, readable-public-only.
type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

func (s Session) IsAnonymous() bool {
	return s.UserID == ""
}

func (s Session) role() rbac.Role {
	if s.IsAnonymous() {
		return rbac.RoleAnonymous
	}
	return rbac.Normalize(s.Role)
}

type CreateFAQInput struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Category   string `json:"category"`
	Visibility string `json:"visibility"`
}

// UpdateFAQInput is a partial update: nil fields stay untouched.
type UpdateFAQInput struct {
	Question   *string `json:"question"`
	Answer     *string `json:"answer"`
	Category   *string `json:"category"`
	IsPinned   *bool   `json:"isPinned"`
	Visibility *string `json:"visibility"`
}

type dataStore interface {
	ListFAQs(ctx context.Context, filter store.FAQFilter) ([]store.FAQ, error)
	GetFAQ(ctx context.Context, id string, includeInternal bool) (store.FAQ, error)
	InsertFAQ(ctx context.Context, item store.FAQ) (store.FAQ, error)
	UpdateFAQ(ctx context.Context, id string, fields store.FAQUpdate, updatedBy string) (store.FAQ, error)
	TogglePin(ctx context.Context, id, updatedBy string) (store.FAQ, error)
	DeleteFAQ(ctx context.Context, id string) error
	AppendComment(ctx context.Context, comment store.Comment) error
	CreateUser(ctx context.Context, user store.User) error
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	ListUsers(ctx context.Context) ([]store.User, error)
	CountUsers(ctx context.Context) (int, error)
	UpdateUserRole(ctx context.Context, userID, role string) error
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
	Ping(ctx context.Context) error
}

// sessionStore holds refresh tokens; Postgres and Redis both satisfy it.
// Lookup resolves a token hash to a user id only, the current role is always
// re-read from the user record at refresh time.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (string, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	passwords *authpw.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore) *Service {
	return &Service{
		cfg:       cfg,
		store:     dataStore,
		sessions:  dataStore,
		passwords: authpw.NewService(dataStore),
	}
}

func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessions *session.RedisStore) *Service {
	return &Service{
		cfg:       cfg,
		store:     dataStore,
		sessions:  sessions,
		passwords: authpw.NewService(dataStore),
	}
}

// Bootstrap seeds the admin account on an empty database so a fresh
// deployment has someone who can grant roles.
func (s *Service) Bootstrap(ctx context.Context) error {
	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := s.cfg.AdminPassword
	if password == "" {
		password = util.NewID("")
		log.Printf("generated bootstrap admin password for %s: %s", s.cfg.AdminEmail, password)
	}
	hash, err := authpw.HashPassword(password)
	if err != nil {
		return err
	}

	return s.store.CreateUser(ctx, store.User{
		ID:           util.NewID("usr"),
		DisplayName:  s.cfg.AdminName,
		Email:        s.cfg.AdminEmail,
		PasswordHash: hash,
		Role:         string(rbac.RoleAdmin),
	})
}

// ---- Authentication ----

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	user, err := s.passwords.SignUp(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, req authpw.SignInRequest) (Session, error) {
	user, err := s.passwords.SignIn(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates the refresh token: the presented token is revoked and a
// new pair is issued against the user's current role.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	userID, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Role:  user.Role,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// ---- Access policy ----

func (s *Service) requireWrite(session Session) error {
	if session.IsAnonymous() {
		return errUnauthenticated()
	}
	if !rbac.Can(session.role(), rbac.ActionWrite) {
		return errForbidden()
	}
	return nil
}

func (s *Service) requireComment(session Session) error {
	if session.IsAnonymous() {
		return errUnauthenticated()
	}
	if !rbac.Can(session.role(), rbac.ActionComment) {
		return errForbidden()
	}
	return nil
}

func (s *Service) requireAdmin(session Session) error {
	if session.IsAnonymous() {
		return errUnauthenticated()
	}
	if !rbac.Can(session.role(), rbac.ActionAdmin) {
		return errForbidden()
	}
	return nil
}

// includeInternal is the visibility filter: every authenticated role may see
// internal entries, anonymous callers only public ones.
func includeInternal(session Session) bool {
	return rbac.CanReadEntry(session.role(), rbac.VisibilityInternal)
}

// ---- FAQ operations ----

func (s *Service) ListFAQs(ctx context.Context, session Session, query, category string) ([]map[string]any, error) {
	items, err := s.store.ListFAQs(ctx, store.FAQFilter{
		Query:           strings.TrimSpace(query),
		Category:        strings.TrimSpace(category),
		IncludeInternal: includeInternal(session),
	})
	if err != nil {
		return nil, err
	}

	payload := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payload = append(payload, faqPayload(item))
	}
	return payload, nil
}

func (s *Service) GetFAQ(ctx context.Context, session Session, id string) (map[string]any, error) {
	item, err := s.store.GetFAQ(ctx, id, includeInternal(session))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound()
	}
	if err != nil {
		return nil, err
	}
	return faqPayload(item), nil
}

func (s *Service) CreateFAQ(ctx context.Context, session Session, input CreateFAQInput) (map[string]any, error) {
	if err := s.requireWrite(session); err != nil {
		return nil, err
	}

	question := strings.TrimSpace(input.Question)
	answer := strings.TrimSpace(input.Answer)
	if question == "" {
		return nil, errValidation("question is required")
	}
	if answer == "" {
		return nil, errValidation("answer is required")
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = "General"
	}

	created, err := s.store.InsertFAQ(ctx, store.FAQ{
		ID:         util.NewID("faq"),
		Question:   question,
		Answer:     answer,
		Category:   category,
		Visibility: string(rbac.NormalizeVisibility(input.Visibility)),
		CreatedBy:  session.UserID,
	})
	if err != nil {
		return nil, err
	}
	return faqPayload(created), nil
}

func (s *Service) UpdateFAQ(ctx context.Context, session Session, id string, input UpdateFAQInput) (map[string]any, error) {
	if err := s.requireWrite(session); err != nil {
		return nil, err
	}

	fields := store.FAQUpdate{
		Question: input.Question,
		Answer:   input.Answer,
		Category: input.Category,
		IsPinned: input.IsPinned,
	}
	if input.Question != nil && strings.TrimSpace(*input.Question) == "" {
		return nil, errValidation("question cannot be blank")
	}
	if input.Answer != nil && strings.TrimSpace(*input.Answer) == "" {
		return nil, errValidation("answer cannot be blank")
	}
	if input.Category != nil && strings.TrimSpace(*input.Category) == "" {
		general := "General"
		fields.Category = &general
	}
	if input.Visibility != nil {
		normalized := string(rbac.NormalizeVisibility(*input.Visibility))
		fields.Visibility = &normalized
	}

	item, err := s.store.UpdateFAQ(ctx, id, fields, session.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound()
	}
	if err != nil {
		return nil, err
	}
	return faqPayload(item), nil
}

// TogglePin is a restricted update: only the pin flag flips, but it is gated
// and audited exactly like a full edit.
func (s *Service) TogglePin(ctx context.Context, session Session, id string) (map[string]any, error) {
	if err := s.requireWrite(session); err != nil {
		return nil, err
	}

	item, err := s.store.TogglePin(ctx, id, session.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound()
	}
	if err != nil {
		return nil, err
	}
	return faqPayload(item), nil
}

func (s *Service) DeleteFAQ(ctx context.Context, session Session, id string) error {
	if err := s.requireWrite(session); err != nil {
		return err
	}

	err := s.store.DeleteFAQ(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return errNotFound()
	}
	return err
}

// AddComment appends to the entry's comment sequence and returns the updated
// entry. The parent's updated_by/updated_at are deliberately not refreshed:
// commenting is discussion, not a content edit.
func (s *Service) AddComment(ctx context.Context, session Session, faqID, content string) (map[string]any, error) {
	if err := s.requireComment(session); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, errValidation("content is required")
	}

	err := s.store.AppendComment(ctx, store.Comment{
		ID:       util.NewID("cmt"),
		FAQID:    faqID,
		AuthorID: session.UserID,
		Content:  strings.TrimSpace(content),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound()
	}
	if err != nil {
		return nil, err
	}

	item, err := s.store.GetFAQ(ctx, faqID, includeInternal(session))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound()
	}
	if err != nil {
		return nil, err
	}
	return faqPayload(item), nil
}

// ExportFAQs renders the caller-visible FAQ set to the requested format.
func (s *Service) ExportFAQs(ctx context.Context, session Session, format export.Format, category string) (*export.Result, error) {
	items, err := s.store.ListFAQs(ctx, store.FAQFilter{
		Category:        strings.TrimSpace(category),
		IncludeInternal: includeInternal(session),
	})
	if err != nil {
		return nil, err
	}

	names := map[string]string{}
	resolve := func(userID string) string {
		if name, ok := names[userID]; ok {
			return name
		}
		name := userID
		if user, err := s.store.GetUserByID(ctx, userID); err == nil {
			name = user.DisplayName
		}
		names[userID] = name
		return name
	}

	entries := make([]export.Entry, 0, len(items))
	for _, item := range items {
		entry := export.Entry{
			Question:  item.Question,
			Answer:    item.Answer,
			Category:  item.Category,
			IsPinned:  item.IsPinned,
			UpdatedBy: resolve(item.UpdatedBy),
			UpdatedAt: item.UpdatedAt,
		}
		for _, comment := range item.Comments {
			entry.Comments = append(entry.Comments, export.Comment{
				Author:    resolve(comment.AuthorID),
				Content:   comment.Content,
				CreatedAt: comment.CreatedAt,
			})
		}
		entries = append(entries, entry)
	}

	return export.Export(export.Request{
		Title:   "FAQ Knowledge Base",
		Format:  format,
		Entries: entries,
	})
}

// ---- User administration ----

func (s *Service) ListUsers(ctx context.Context, session Session) ([]map[string]any, error) {
	if err := s.requireAdmin(session); err != nil {
		return nil, err
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	payload := make([]map[string]any, 0, len(users))
	for _, user := range users {
		payload = append(payload, map[string]any{
			"id":          user.ID,
			"displayName": user.DisplayName,
			"email":       user.Email,
			"role":        user.Role,
			"createdAt":   user.CreatedAt,
		})
	}
	return payload, nil
}

func (s *Service) UpdateUserRole(ctx context.Context, session Session, userID, role string) error {
	if err := s.requireAdmin(session); err != nil {
		return err
	}
	if !rbac.Assignable(role) {
		return errValidation("role must be one of viewer, editor, admin")
	}

	err := s.store.UpdateUserRole(ctx, userID, role)
	if errors.Is(err, sql.ErrNoRows) {
		return errNotFound()
	}
	return err
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func faqPayload(item store.FAQ) map[string]any {
	comments := make([]map[string]any, 0, len(item.Comments))
	for _, comment := range item.Comments {
		comments = append(comments, map[string]any{
			"id":        comment.ID,
			"authorId":  comment.AuthorID,
			"content":   comment.Content,
			"createdAt": comment.CreatedAt,
		})
	}
	return map[string]any{
		"id":         item.ID,
		"question":   item.Question,
		"answer":     item.Answer,
		"category":   item.Category,
		"isPinned":   item.IsPinned,
		"visibility": item.Visibility,
		"createdBy":  item.CreatedBy,
		"updatedBy":  item.UpdatedBy,
		"createdAt":  item.CreatedAt,
		"updatedAt":  item.UpdatedAt,
		"comments":   comments,
	}
}
