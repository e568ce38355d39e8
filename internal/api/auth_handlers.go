package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/aethra/qualis/internal/errors"
	"github.com/aethra/qualis/internal/suggest"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and returns a token with the profile
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewBadRequestError("email and password are required"))
		return
	}

	token, user, err := h.Auth.Login(strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Me returns the acting user's profile
func (h *Handler) Me(c *gin.Context) {
	user, err := h.Auth.GetUser(CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type suggestRequest struct {
	Name        string `json:"name"`
	Description string `json:"description" binding:"required"`
	Document    string `json:"document"`
}

// SuggestProcess drafts a process configuration from a description
// and an optional base64 document.
func (h *Handler) SuggestProcess(c *gin.Context) {
	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewBadRequestError("a description is required"))
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	resp, err := h.Suggester.Suggest(ctx, suggest.Request{
		Name:        req.Name,
		Description: req.Description,
		Document:    req.Document,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
