package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/routeguard/routeguard/internal/auth"
	"github.com/routeguard/routeguard/internal/guard"
	"github.com/routeguard/routeguard/internal/models"
	"github.com/routeguard/routeguard/internal/users"
)

// SignInRequest represents a sign-in form or JSON body
type SignInRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

// SignUpRequest represents a sign-up form or JSON body
type SignUpRequest struct {
	Name     string `json:"name" form:"name" binding:"required"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=8"`
}

// SignInResponse is returned to API clients after signing in or up
type SignInResponse struct {
	Token string      `json:"token"`
	User  *UserDetail `json:"user"`
}

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserDetail(user *models.User) *UserDetail {
	return &UserDetail{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		IsAdmin:   guard.Role(user.Role).IsAdmin(),
		CreatedAt: user.CreatedAt,
	}
}

// isAPIRequest reports whether the client expects JSON instead of HTML
func isAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return c.ContentType() == gin.MIMEJSON || strings.Contains(c.GetHeader("Accept"), gin.MIMEJSON)
}

func (s *Server) signInPage(c *gin.Context) {
	c.HTML(http.StatusOK, "sign-in.html", pageData{Title: "Sign in"})
}

func (s *Server) signUpPage(c *gin.Context) {
	c.HTML(http.StatusOK, "sign-up.html", pageData{Title: "Sign up"})
}

func (s *Server) signIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBind(&req); err != nil {
		s.rejectAuthForm(c, "sign-in.html", http.StatusBadRequest, pageData{Title: "Sign in", Email: req.Email}, err.Error())
		return
	}

	user, err := s.usersService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			s.rejectAuthForm(c, "sign-in.html", http.StatusUnauthorized, pageData{Title: "Sign in", Email: req.Email}, "Invalid email or password")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to authenticate user")
		s.rejectAuthForm(c, "sign-in.html", http.StatusInternalServerError, pageData{Title: "Sign in", Email: req.Email}, "Internal server error")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User signed in")

	s.completeSignIn(c, user, http.StatusOK)
}

func (s *Server) signUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBind(&req); err != nil {
		s.rejectAuthForm(c, "sign-up.html", http.StatusBadRequest, pageData{Title: "Sign up", Email: req.Email, Name: req.Name}, err.Error())
		return
	}

	// Self-registered accounts never start as admin
	user, err := s.usersService.Create(c.Request.Context(), users.CreateParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			s.rejectAuthForm(c, "sign-up.html", http.StatusConflict, pageData{Title: "Sign up", Email: req.Email, Name: req.Name}, "Email already registered")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to create user")
		s.rejectAuthForm(c, "sign-up.html", http.StatusInternalServerError, pageData{Title: "Sign up", Email: req.Email, Name: req.Name}, "Failed to create user")
		return
	}

	s.completeSignIn(c, user, http.StatusCreated)
}

// completeSignIn stores the session and either returns a token (API clients)
// or sends the browser to /dashboard, where the guard picks the right one
func (s *Server) completeSignIn(c *gin.Context, user *models.User, apiStatus int) {
	if err := auth.SignIn(c, user.ID); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to save session")
		c.Redirect(http.StatusSeeOther, guard.ErrorPath)
		return
	}

	if !isAPIRequest(c) {
		c.Redirect(http.StatusSeeOther, guard.DashboardPath)
		return
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(apiStatus, SignInResponse{
		Token: token,
		User:  newUserDetail(user),
	})
}

func (s *Server) rejectAuthForm(c *gin.Context, page string, status int, data pageData, message string) {
	if isAPIRequest(c) {
		c.JSON(status, gin.H{"error": message})
		return
	}

	data.Error = message
	c.HTML(status, page, data)
}

// signOut runs outside the guard, so the user comes from the session itself
func (s *Server) signOut(c *gin.Context) {
	userID := auth.SessionUserID(c)

	if err := auth.SignOut(c); err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear session")
	}

	s.logger.Info().Str("user_id", userID).Msg("User signed out")

	if isAPIRequest(c) {
		c.Status(http.StatusNoContent)
		return
	}
	c.Redirect(http.StatusSeeOther, guard.SignInPath)
}

// currentUser loads the user the guard admitted. On failure it has already
// written the response.
func (s *Server) currentUser(c *gin.Context) (*models.User, bool) {
	id, exists := guard.GetIdentity(c)
	if !exists {
		respondWithError(c, s.logger, http.StatusUnauthorized, ErrNoIdentity, "Unauthorized")
		return nil, false
	}

	user, err := s.usersService.FindByID(c.Request.Context(), id.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", id.UserID).Msg("Failed to find user")
		if isAPIRequest(c) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		} else {
			c.Redirect(http.StatusSeeOther, guard.ErrorPath)
		}
		c.Abort()
		return nil, false
	}

	return user, true
}

func (s *Server) getCurrentUser(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, newUserDetail(user))
}

func (s *Server) listUsers(c *gin.Context) {
	all, err := s.usersService.List(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	details := make([]*UserDetail, len(all))
	for i := range all {
		details[i] = newUserDetail(&all[i])
	}

	c.JSON(http.StatusOK, details)
}
