// Package web serves the HTML pages of the chat application.
package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"vision-chat/internal/auth"
	"vision-chat/internal/chat"
	"vision-chat/internal/session"

	"github.com/go-chi/chi/v5"
)

const DefaultMaxUploadBytes = 16 << 20

const (
	flashLoginOK       = "Login successful!"
	flashLoginFailed   = "Invalid username or password."
	flashRegistered    = "Registration successful! Please log in."
	flashUserExists    = "Username already exists. Try a different one."
	flashMissingFields = "Username and password are required."
	flashLoggedOut     = "Logged out successfully."
)

type LoginForm struct {
	Username string `schema:"username"`
	Password string `schema:"password"`
}

type RegisterForm struct {
	Username string `schema:"username"`
	Password string `schema:"password"`
}

type ChatForm struct {
	UserInput string `schema:"user_input"`
}

type Server struct {
	auth           *auth.Authenticator
	chat           *chat.Service
	sessions       *session.Manager
	staticDir      string
	maxUploadBytes int64
}

func NewServer(authenticator *auth.Authenticator, chatService *chat.Service, sessions *session.Manager, staticDir string, maxUploadBytes int64) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{
		auth:           authenticator,
		chat:           chatService,
		sessions:       sessions,
		staticDir:      staticDir,
		maxUploadBytes: maxUploadBytes,
	}
}

func (s *Server) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))

	r.Get("/login", PageHandler(s.LoginPage))
	r.Post("/login", PageHandler(s.Login))
	r.Get("/register", PageHandler(s.RegisterPage))
	r.Post("/register", PageHandler(s.Register))
	r.Get("/logout", PageHandler(s.Logout))

	if s.staticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.RequireUser("/login"))
		r.Get("/", PageHandler(s.ChatPage))
		r.Post("/", PageHandler(s.PostMessage))
	})
}

// renderPage pops any pending flashes into the page, persists the emptied
// session and renders the template.
func (s *Server) renderPage(w http.ResponseWriter, sess session.Session, name string, data pageData) error {
	data.Flashes = append(sess.PopFlashes(), data.Flashes...)
	if err := s.sessions.Save(w, sess); err != nil {
		return CodedError(http.StatusInternalServerError, err)
	}
	return render(w, name, data)
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, sess session.Session, to string) error {
	if err := s.sessions.Save(w, sess); err != nil {
		return CodedError(http.StatusInternalServerError, err)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
	return nil
}

func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) error {
	return s.renderPage(w, s.sessions.Load(r), "login", pageData{})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) error {
	form, err := ParseForm[LoginForm](r)
	if err != nil {
		return err
	}

	sess := s.sessions.Load(r)

	if err := s.auth.Login(r.Context(), form.Username, form.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Info("failed login attempt", "username", form.Username)
			return s.renderPage(w, sess, "login", pageData{
				Flashes: []session.Flash{{Category: session.FlashDanger, Message: flashLoginFailed}},
			})
		}
		return CodedError(http.StatusInternalServerError, fmt.Errorf("error logging in: %w", err))
	}

	slog.Info("user logged in", "username", form.Username)
	sess.Username = form.Username
	sess.AddFlash(session.FlashSuccess, flashLoginOK)
	return s.redirect(w, r, sess, "/")
}

func (s *Server) RegisterPage(w http.ResponseWriter, r *http.Request) error {
	return s.renderPage(w, s.sessions.Load(r), "register", pageData{})
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) error {
	form, err := ParseForm[RegisterForm](r)
	if err != nil {
		return err
	}

	sess := s.sessions.Load(r)

	var message string
	switch err := s.auth.Register(r.Context(), form.Username, form.Password); {
	case err == nil:
		slog.Info("user registered", "username", form.Username)
		sess.AddFlash(session.FlashSuccess, flashRegistered)
		return s.redirect(w, r, sess, "/login")
	case errors.Is(err, auth.ErrUserExists):
		message = flashUserExists
	case errors.Is(err, auth.ErrMissingFields):
		message = flashMissingFields
	default:
		return CodedError(http.StatusInternalServerError, fmt.Errorf("error registering user: %w", err))
	}

	return s.renderPage(w, sess, "register", pageData{
		Flashes: []session.Flash{{Category: session.FlashDanger, Message: message}},
	})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) error {
	sess := s.sessions.Load(r)
	if sess.Username != "" {
		slog.Info("user logged out", "username", sess.Username)
	}
	sess.Username = ""
	sess.AddFlash(session.FlashSuccess, flashLoggedOut)
	return s.redirect(w, r, sess, "/login")
}

func (s *Server) ChatPage(w http.ResponseWriter, r *http.Request) error {
	username, _ := session.UsernameFromContext(r.Context())

	entries, err := s.chat.History(r.Context(), username)
	if err != nil {
		return CodedError(http.StatusInternalServerError, fmt.Errorf("error loading chat history: %w", err))
	}

	return s.renderPage(w, s.sessions.Load(r), "index", pageData{Username: username, History: entries})
}

func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) error {
	username, _ := session.UsernameFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return CodedErrorf(http.StatusRequestEntityTooLarge, "upload exceeds %d bytes", maxErr.Limit)
		}
		return CodedErrorf(http.StatusBadRequest, "unable to parse form: %v", err)
	}
	if r.MultipartForm != nil {
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				slog.Error("error removing multipart temp files", "error", err)
			}
		}()
	}

	form, err := ParseForm[ChatForm](r)
	if err != nil {
		return err
	}

	var upload *chat.Upload
	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		upload = &chat.Upload{Filename: header.Filename, Data: file}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return CodedErrorf(http.StatusBadRequest, "unable to read uploaded image: %v", err)
	}

	entries, err := s.chat.Post(r.Context(), username, form.UserInput, upload)
	if err != nil {
		return CodedError(http.StatusInternalServerError, fmt.Errorf("error saving chat turn: %w", err))
	}

	return s.renderPage(w, s.sessions.Load(r), "index", pageData{Username: username, History: entries})
}
