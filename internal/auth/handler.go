package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bkovacic/fitlog/internal/telemetry/tracing"
	"github.com/bkovacic/fitlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	authService *Service
}

func NewHandler(authService *Service) *Handler {
	return &Handler{
		authService: authService,
	}
}

// SetupRoutes registers the auth endpoints on a subrouter; the passed
// middlewares (e.g. login rate limiting) are applied to all of them
func (handler *Handler) SetupRoutes(mainRouter *mux.Router, middlewares ...mux.MiddlewareFunc) {
	authSubrouter := mainRouter.PathPrefix("/a").Subrouter()
	authSubrouter.HandleFunc("/signup", handler.handleSignup).Methods("POST", "OPTIONS").Name("signup")
	authSubrouter.HandleFunc("/login", handler.handleLogin).Methods("POST", "OPTIONS").Name("login")
	authSubrouter.HandleFunc("/logout", handler.handleLogout).Methods("GET", "OPTIONS").Name("logout")

	for _, m := range middlewares {
		authSubrouter.Use(m)
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func readCredentials(r *http.Request) (credentialsRequest, error) {
	var creds credentialsRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			return creds, fmt.Errorf("unmarshal json params: %w", err)
		}
		return creds, nil
	}

	if err := r.ParseForm(); err != nil {
		return creds, fmt.Errorf("parse form: %w", err)
	}
	creds.Email = r.Form.Get("email")
	creds.Password = r.Form.Get("password")
	return creds, nil
}

func (handler *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.signup")
	defer span.End()

	creds, err := readCredentials(r)
	if err != nil {
		log.Errorf("signup failed: %s", err)
		http.Error(w, "signup failed", http.StatusBadRequest)
		return
	}

	if creds.Email == "" {
		http.Error(w, "error, email empty", http.StatusBadRequest)
		return
	}
	if creds.Password == "" {
		http.Error(w, "error, password empty", http.StatusBadRequest)
		return
	}

	user, err := handler.authService.Signup(ctx, creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			http.Error(w, "user already exists", http.StatusConflict)
			return
		}
		log.Errorf("signup failed for [%s]: %s", creds.Email, err)
		http.Error(w, "signup failed", http.StatusInternalServerError)
		return
	}

	userJson, err := json.Marshal(user)
	if err != nil {
		log.Errorf("signup, marshal user: %s", err)
		http.Error(w, "signup failed", http.StatusInternalServerError)
		return
	}

	log.Debugf("new user signed up: %s", user.Email)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, userJson, http.StatusCreated)
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.login")
	defer span.End()

	creds, err := readCredentials(r)
	if err != nil {
		log.Errorf("login failed: %s", err)
		http.Error(w, "login failed", http.StatusBadRequest)
		return
	}

	if creds.Email == "" {
		http.Error(w, "error, email empty", http.StatusBadRequest)
		return
	}
	if creds.Password == "" {
		http.Error(w, "error, password empty", http.StatusBadRequest)
		return
	}

	token, err := handler.authService.Login(ctx, creds.Email, creds.Password, time.Now())
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		log.Errorf("login failed for [%s]: %s", creds.Email, err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"token":"%s"}`, token))
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.logout")
	defer span.End()

	token := r.Header.Get("X-FITLOG-TOKEN")
	if token == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	loggedOut, err := handler.authService.Logout(ctx, token)
	if err != nil {
		log.Errorf("logout failed: %s", err)
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}
	if !loggedOut {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	pkg.WriteTextResponseOK(w, "logged-out")
}
