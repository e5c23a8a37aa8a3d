package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studentreminder/reminder/internal/client/auth"
	"github.com/studentreminder/reminder/internal/client/models"
	"github.com/studentreminder/reminder/internal/client/notify"
	"github.com/studentreminder/reminder/internal/client/persist"
	"github.com/studentreminder/reminder/internal/client/repositories/kv"
	"github.com/studentreminder/reminder/internal/common"
	"github.com/studentreminder/reminder/internal/cryptox"
	"github.com/studentreminder/reminder/internal/logging"
)

// AuthService is the identity surface consumed by the presentation layer.
type AuthService interface {
	Login(ctx context.Context, email, password string) error
	Signup(ctx context.Context, username, email, password string, role models.Role) error
	Logout(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error
	UpdateProfile(ctx context.Context, username string) error

	State() AuthState
	CurrentUser() *models.User
	Subscribe(fn func(AuthState)) (cancel func())
}

// AuthState is what observers of the identity store see.
// IsAuthenticated == (CurrentUser != nil) always holds.
type AuthState struct {
	CurrentUser     *models.User
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

// authState is the persisted snapshot: session plus directory.
type authState struct {
	User            *models.User     `json:"user"`
	IsAuthenticated bool             `json:"isAuthenticated"`
	Token           string           `json:"token,omitempty"`
	Directory       []models.Account `json:"directory"`
}

func (s authState) Clone() authState {
	if s.User != nil {
		u := s.User.Clone()
		s.User = &u
	}
	if s.Directory != nil {
		dir := make([]models.Account, len(s.Directory))
		for i, a := range s.Directory {
			dir[i] = a.Clone()
		}
		s.Directory = dir
	}
	return s
}

func (s *authState) findByEmail(email string) (int, bool) {
	for i, a := range s.Directory {
		if a.Email == email {
			return i, true
		}
	}
	return -1, false
}

func (s *authState) findByID(id string) (int, bool) {
	for i, a := range s.Directory {
		if a.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s *authState) clearSession() {
	s.User = nil
	s.IsAuthenticated = false
	s.Token = ""
}

// demoAccount is the identity every fresh device knows about.
func demoAccount(now time.Time) models.Account {
	return models.Account{User: models.User{
		ID:        "1",
		Username:  "johndoe",
		Email:     "john@example.com",
		Role:      models.RoleStudent,
		CreatedAt: now,
	}}
}

type IdentityOptions struct {
	Latency  Latency
	Notifier notify.Notifier
	Logger   logging.Logger
	Now      func() time.Time

	// VerifyPasswords turns on credential storage and checking. When off,
	// login accepts any password for a known email and password changes
	// are accepted without being stored.
	VerifyPasswords bool
	HashParams      cryptox.Params

	// SessionSecret signs the persisted session. Empty disables tokens.
	SessionSecret []byte
	SessionTTL    time.Duration
}

// IdentityStore owns the current session and the simulated user directory.
type IdentityStore struct {
	store    *persist.Store[authState]
	latency  Latency
	notifier *notify.Async
	log      logging.Logger
	now      func() time.Time

	verifyPasswords bool
	hashParams      cryptox.Params
	hashPassword    func(password []byte, p cryptox.Params) string
	secret          []byte
	ttl             time.Duration

	status status[AuthState]
}

var _ AuthService = (*IdentityStore)(nil)

// NewIdentityStore rehydrates the identity snapshot from repo. A persisted
// session whose token no longer verifies is dropped.
func NewIdentityStore(ctx context.Context, repo kv.Repository, opts IdentityOptions) (*IdentityStore, error) {
	if opts.Latency == nil {
		opts.Latency = NoDelay
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLogNotifier(opts.Logger)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HashParams == (cryptox.Params{}) {
		opts.HashParams = cryptox.DefaultParams
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}

	log := opts.Logger.With("component", "identity")
	now := opts.Now

	store, err := persist.Open(ctx, repo, common.AuthStoreName, func() authState {
		return authState{Directory: []models.Account{demoAccount(now())}}
	}, log)
	if err != nil {
		return nil, err
	}

	s := &IdentityStore{
		store:           store,
		latency:         opts.Latency,
		notifier:        notify.NewAsync(opts.Notifier, log),
		log:             log,
		now:             now,
		verifyPasswords: opts.VerifyPasswords,
		hashParams:      opts.HashParams,
		hashPassword:    cryptox.HashPassword,
		secret:          opts.SessionSecret,
		ttl:             opts.SessionTTL,
	}

	if err := s.normalize(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// normalize repairs a rehydrated snapshot: a missing directory is reseeded,
// a session that fails token verification is cleared, and a session user
// missing from the directory is added back.
func (s *IdentityStore) normalize(ctx context.Context) error {
	_, err := s.store.Update(ctx, func(st *authState) error {
		changed := false
		if st.Directory == nil {
			st.Directory = []models.Account{demoAccount(s.now())}
			changed = true
		}

		switch {
		case st.User == nil:
			if st.IsAuthenticated || st.Token != "" {
				st.clearSession()
				changed = true
			}
		case !s.sessionValid(st):
			s.log.Info(ctx, "persisted session rejected", "user_id", st.User.ID)
			st.clearSession()
			changed = true
		default:
			if _, ok := st.findByID(st.User.ID); !ok {
				st.Directory = append(st.Directory, models.Account{User: st.User.Clone()})
				changed = true
			}
			if !st.IsAuthenticated {
				st.IsAuthenticated = true
				changed = true
			}
		}

		if !changed {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}
	return err
}

func (s *IdentityStore) sessionValid(st *authState) bool {
	if len(s.secret) == 0 {
		return true
	}
	uid, err := auth.GetUserIDFromToken(st.Token, s.secret, s.now())
	return err == nil && uid == st.User.ID
}

func (s *IdentityStore) State() AuthState {
	st := s.store.Get()
	loading, msg := s.status.get()
	return AuthState{
		CurrentUser:     st.User,
		IsAuthenticated: st.User != nil,
		IsLoading:       loading,
		Error:           msg,
	}
}

// CurrentUser returns a copy of the session identity, or nil when logged out.
func (s *IdentityStore) CurrentUser() *models.User {
	return s.store.Get().User
}

// LookupUser finds an identity in the directory by id.
func (s *IdentityStore) LookupUser(id string) (models.User, bool) {
	st := s.store.Get()
	if i, ok := st.findByID(id); ok {
		return st.Directory[i].User, true
	}
	return models.User{}, false
}

// Directory returns every known identity in registration order.
func (s *IdentityStore) Directory() []models.User {
	st := s.store.Get()
	users := make([]models.User, len(st.Directory))
	for i, a := range st.Directory {
		users[i] = a.User
	}
	return users
}

func (s *IdentityStore) Subscribe(fn func(AuthState)) (cancel func()) {
	return s.status.subscribe(fn)
}

// Wait blocks until pending notifications have been handed off.
func (s *IdentityStore) Wait() {
	s.notifier.Wait()
}

func (s *IdentityStore) begin() {
	s.status.set(true, "")
	s.status.notify(s.State())
}

func (s *IdentityStore) succeed() {
	s.status.set(false, "")
	s.status.notify(s.State())
}

func (s *IdentityStore) fail(ctx context.Context, op string, err error, msg string) error {
	s.log.Info(ctx, op+" failed", "error", err)
	s.status.set(false, msg)
	s.status.notify(s.State())
	return fmt.Errorf("%s: %w", op, err)
}

func (s *IdentityStore) issueToken(userID string) (string, error) {
	if len(s.secret) == 0 {
		return "", nil
	}
	return auth.GenerateToken(userID, s.secret, s.ttl, s.now())
}

// Login opens a session for the identity registered under email (exact,
// case-sensitive match). Unless password checks are enabled any password
// is accepted. A confirmation notification is sent on success.
func (s *IdentityStore) Login(ctx context.Context, email, password string) error {
	s.begin()
	if err := s.latency.Wait(ctx); err != nil {
		return s.fail(ctx, "login", err, err.Error())
	}

	var user models.User
	_, err := s.store.Update(ctx, func(st *authState) error {
		i, ok := st.findByEmail(email)
		if !ok {
			return common.ErrInvalidCredentials
		}
		acct := st.Directory[i]

		if s.verifyPasswords && acct.PasswordHash != "" {
			match, err := cryptox.VerifyPassword([]byte(password), acct.PasswordHash)
			if err != nil {
				return err
			}
			if !match {
				return common.ErrInvalidCredentials
			}
		}

		token, err := s.issueToken(acct.ID)
		if err != nil {
			return err
		}

		user = acct.User.Clone()
		u := user
		st.User = &u
		st.IsAuthenticated = true
		st.Token = token
		return nil
	})
	if err != nil {
		return s.fail(ctx, "login", err, messageFor(err))
	}

	s.log.Info(ctx, "logged in", "user_id", user.ID)
	s.succeed()

	s.notifier.Send(ctx, notify.Notification{
		Kind:      notify.KindLoginConfirmation,
		Recipient: user.Email,
		Subject:   "Confirmation email",
		Body:      fmt.Sprintf("Hello %s, you have signed in.", user.Username),
	})
	return nil
}

// Signup registers a new identity and opens a session for it. The email is
// stored as given and must not match an existing one exactly.
func (s *IdentityStore) Signup(ctx context.Context, username, email, password string, role models.Role) error {
	s.begin()
	if err := s.latency.Wait(ctx); err != nil {
		return s.fail(ctx, "signup", err, err.Error())
	}

	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return s.fail(ctx, "signup", common.ErrInvalidInput, "Username is required")
	case strings.TrimSpace(email) == "":
		return s.fail(ctx, "signup", common.ErrInvalidInput, "Email is required")
	case !role.Valid():
		return s.fail(ctx, "signup", common.ErrInvalidInput, fmt.Sprintf("Unknown role %q", role))
	}

	var hash string
	if s.verifyPasswords {
		if password == "" {
			return s.fail(ctx, "signup", common.ErrInvalidInput, "Password is required")
		}
		// Checked again under the store lock below; this only skips the hash.
		st := s.store.Get()
		if _, taken := st.findByEmail(email); taken {
			return s.fail(ctx, "signup", common.ErrEmailTaken, messageFor(common.ErrEmailTaken))
		}
		hash = s.hashPassword([]byte(password), s.hashParams)
	}

	acct := models.Account{
		User: models.User{
			ID:        uuid.NewString(),
			Username:  username,
			Email:     email,
			Role:      role,
			CreatedAt: s.now(),
		},
		PasswordHash: hash,
	}

	_, err := s.store.Update(ctx, func(st *authState) error {
		if _, taken := st.findByEmail(email); taken {
			return common.ErrEmailTaken
		}
		token, err := s.issueToken(acct.ID)
		if err != nil {
			return err
		}
		st.Directory = append(st.Directory, acct)
		u := acct.User.Clone()
		st.User = &u
		st.IsAuthenticated = true
		st.Token = token
		return nil
	})
	if err != nil {
		return s.fail(ctx, "signup", err, messageFor(err))
	}

	s.log.Info(ctx, "signed up", "user_id", acct.ID, "role", string(role))
	s.succeed()
	return nil
}

// Logout ends the session. The directory and every other store are untouched.
func (s *IdentityStore) Logout(ctx context.Context) error {
	_, err := s.store.Update(ctx, func(st *authState) error {
		st.clearSession()
		return nil
	})
	if err != nil {
		return s.fail(ctx, "logout", err, err.Error())
	}
	s.log.Info(ctx, "logged out")
	s.status.notify(s.State())
	return nil
}

// ResetPassword sends a reset notification to a known email. No credential
// is changed.
func (s *IdentityStore) ResetPassword(ctx context.Context, email string) error {
	s.begin()
	if err := s.latency.Wait(ctx); err != nil {
		return s.fail(ctx, "reset password", err, err.Error())
	}

	st := s.store.Get()
	if _, ok := st.findByEmail(email); !ok {
		return s.fail(ctx, "reset password", common.ErrEmailNotFound, messageFor(common.ErrEmailNotFound))
	}

	s.notifier.Send(ctx, notify.Notification{
		Kind:      notify.KindPasswordReset,
		Recipient: email,
		Subject:   "Password reset email",
		Body:      "Follow the link in this message to choose a new password.",
	})
	s.succeed()
	return nil
}

// ChangePassword replaces the session identity's credential.
//
// With password checks disabled this is a stub that always succeeds and
// stores nothing. With checks enabled it requires a session, verifies
// currentPassword when a credential exists, and stores a new hash.
func (s *IdentityStore) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	s.begin()
	if err := s.latency.Wait(ctx); err != nil {
		return s.fail(ctx, "change password", err, err.Error())
	}

	if !s.verifyPasswords {
		s.succeed()
		return nil
	}

	if newPassword == "" {
		return s.fail(ctx, "change password", common.ErrInvalidInput, "New password is required")
	}
	hash := s.hashPassword([]byte(newPassword), s.hashParams)

	_, err := s.store.Update(ctx, func(st *authState) error {
		if st.User == nil {
			return common.ErrNotAuthenticated
		}
		i, ok := st.findByID(st.User.ID)
		if !ok {
			return common.ErrNotAuthenticated
		}
		if old := st.Directory[i].PasswordHash; old != "" {
			match, err := cryptox.VerifyPassword([]byte(currentPassword), old)
			if err != nil {
				return err
			}
			if !match {
				return common.ErrInvalidCredentials
			}
		}
		now := s.now()
		st.Directory[i].PasswordHash = hash
		st.Directory[i].UpdatedAt = &now
		return nil
	})
	if err != nil {
		msg := messageFor(err)
		if errors.Is(err, common.ErrInvalidCredentials) {
			msg = "Current password is incorrect"
		}
		return s.fail(ctx, "change password", err, msg)
	}

	s.succeed()
	return nil
}

// UpdateProfile renames the session identity in both the session and the directory.
func (s *IdentityStore) UpdateProfile(ctx context.Context, username string) error {
	s.begin()
	if err := s.latency.Wait(ctx); err != nil {
		return s.fail(ctx, "update profile", err, err.Error())
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return s.fail(ctx, "update profile", common.ErrInvalidInput, "Username is required")
	}

	_, err := s.store.Update(ctx, func(st *authState) error {
		if st.User == nil {
			return common.ErrNotAuthenticated
		}
		i, ok := st.findByID(st.User.ID)
		if !ok {
			return common.ErrNotAuthenticated
		}
		now := s.now()
		st.Directory[i].Username = username
		st.Directory[i].UpdatedAt = &now
		u := st.Directory[i].User.Clone()
		st.User = &u
		return nil
	})
	if err != nil {
		return s.fail(ctx, "update profile", err, messageFor(err))
	}

	s.succeed()
	return nil
}

// messageFor maps an error to the text shown to the user.
func messageFor(err error) string {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, common.ErrEmailTaken):
		return "Email already in use"
	case errors.Is(err, common.ErrEmailNotFound):
		return "Email not found"
	case errors.Is(err, common.ErrNotAuthenticated):
		return "You must be logged in"
	default:
		return err.Error()
	}
}
