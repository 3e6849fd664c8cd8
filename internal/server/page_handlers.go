package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/routeguard/routeguard/internal/guard"
)

func (s *Server) homePage(c *gin.Context) {
	c.HTML(http.StatusOK, "page.html", pageData{
		Title:   "Welcome",
		Message: "Sign in or create an account to continue.",
	})
}

func (s *Server) dashboardPage(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	c.HTML(http.StatusOK, "page.html", pageData{
		Title:    "Dashboard",
		Message:  fmt.Sprintf("Signed in as %s.", user.Email),
		SignedIn: true,
	})
}

// The guard only lets admins reach /admin, so no role check is needed here
func (s *Server) adminDashboardPage(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	c.HTML(http.StatusOK, "page.html", pageData{
		Title:    "Admin dashboard",
		Message:  fmt.Sprintf("Signed in as %s (admin).", user.Email),
		SignedIn: true,
	})
}

func (s *Server) errorPage(c *gin.Context) {
	c.HTML(http.StatusOK, "page.html", pageData{
		Title:   "Something went wrong",
		Message: "We could not load your account. Please try again in a moment.",
	})
}

func (s *Server) notFound(c *gin.Context) {
	if isAPIRequest(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	_, signedIn := guard.GetIdentity(c)
	c.HTML(http.StatusNotFound, "page.html", pageData{
		Title:    "Page not found",
		Message:  "The page you requested does not exist.",
		SignedIn: signedIn,
	})
}
