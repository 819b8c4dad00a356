package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"biblioteca/internal/entities"
)

// Handlers exposes signup/login/logout/current-user endpoints.
type Handlers struct {
	service  *Service
	sessions *SessionManager
}

// NewHandlers creates the auth HTTP handlers.
func NewHandlers(service *Service, sessions *SessionManager) *Handlers {
	return &Handlers{service: service, sessions: sessions}
}

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignUp creates an account and starts a session for it.
// POST /api/auth/signup
func (h *Handlers) SignUp(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, email and password are required"})
		return
	}

	role := entities.UserRole(req.Role)
	if role == "" {
		role = entities.UserRoleUser
	}

	user, err := h.service.SignUp(c.Request.Context(), req.Username, req.Email, req.Password, role)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sessions.CreateSession(c.Request, user); err != nil {
		log.Printf("Failed to create session after signup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": sessionUserOf(user)})
}

// Login verifies credentials and starts a session.
// POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "login and password are required"})
		return
	}

	user, err := h.service.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidPassword) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		log.Printf("Login failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if err := h.sessions.CreateSession(c.Request, user); err != nil {
		log.Printf("Failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": sessionUserOf(user)})
}

// Logout destroys the current session.
// POST /api/auth/logout
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.sessions.DestroySession(c.Request); err != nil {
		log.Printf("Failed to destroy session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the current session user.
// GET /api/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user := GetCurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func sessionUserOf(user *entities.User) *CurrentUser {
	return &CurrentUser{UID: user.UID, Username: user.Username, Role: user.Role}
}
