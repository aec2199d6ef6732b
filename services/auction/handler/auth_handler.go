package handler

import (
	"errors"
	"net/http"
	"strings"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
	"auction-engine/internal/repository"
	"auction-engine/services/auction/helpers"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler serves registration and login. Identity is boundary glue:
// the core only ever sees the resulting user id.
type AuthHandler struct {
	repo repository.AuctionDB
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(repo repository.AuctionDB) *AuthHandler {
	return &AuthHandler{repo: repo}
}

// RegisterHandler handles POST /api/auth/register
func (h *AuthHandler) RegisterHandler(c *gin.Context) {
	var req helpers.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RegisterHandler", err)
		return
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = "investor"
	}

	if _, err := h.repo.GetUserByUsername(c.Request.Context(), req.Username); err == nil {
		utils.JSONError(c, http.StatusConflict, errors.New("username already exists"), "username already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, err, "failed to process password")
		return
	}

	user := model.User{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: string(hash),
		Role:         role,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        strings.TrimSpace(req.Phone),
	}
	if err := h.repo.CreateUser(c.Request.Context(), &user); err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, err, message)
		utils.Error("RegisterHandler: failed to create user", map[string]any{"username": req.Username, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewUserResponse(user), "registration successful")
	helpers.LogSuccess("RegisterHandler", "user registered", map[string]any{"user_id": user.UserID, "username": user.Username})
}

// LoginHandler handles POST /api/auth/login
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req helpers.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "LoginHandler", err)
		return
	}

	user, err := h.repo.GetUserByUsername(c.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, auctionerrors.ErrUserNotFound) {
			utils.JSONError(c, http.StatusUnauthorized, errors.New("invalid username or password"), "invalid username or password")
			return
		}
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, err, message)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		utils.JSONError(c, http.StatusUnauthorized, errors.New("invalid username or password"), "invalid username or password")
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewUserResponse(user), "login successful")
	helpers.LogSuccess("LoginHandler", "user logged in", map[string]any{"user_id": user.UserID, "username": user.Username})
}
