// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strings"

	"math-tutor-go/internal/model"
	"math-tutor-go/internal/service"
	"math-tutor-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理所有与用户身份相关的 API 请求。
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// SignupRequest 定义了用户注册 API 的请求体结构。
// ExplanationLevel 使用指针以区分"未提供"与显式的 0。
type SignupRequest struct {
	Name             string `json:"name" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required"`
	Bio              string `json:"bio"`
	ExplanationLevel *int   `json:"explanation_level"`
}

// Signup 处理用户注册请求。
func (h *UserHandler) Signup(c *gin.Context) {
	var req SignupRequest
	// 绑定并验证 JSON 请求体
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Signup: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载：姓名、邮箱和密码不能为空"})
		return
	}

	level := model.DefaultExplanationLevel
	if req.ExplanationLevel != nil {
		level = *req.ExplanationLevel
	}

	// 调用 service 层执行注册逻辑
	user, err := h.userService.Register(req.Name, req.Email, req.Password, req.Bio, level)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			log.Warnf("Signup: Email already registered: %s", req.Email)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
			return
		}
		log.Error("Signup: Failed to create user", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create user"})
		return
	}

	log.Infof("User %d (%s) registered successfully", user.ID, user.Email)
	c.JSON(http.StatusOK, gin.H{"message": "User created successfully"})
}

// LoginRequest 定义了用户登录 API 的请求体结构。
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理用户登录请求。
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Login: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载：邮箱和密码不能为空"})
		return
	}

	// 调用 service 层执行登录逻辑
	accessToken, refreshToken, err := h.userService.Login(req.Email, req.Password)
	if err != nil {
		log.Warnf("Login: Authentication failed for '%s', error: %v", req.Email, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	log.Infof("User '%s' logged in successfully", req.Email)
	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "bearer",
	})
}

// ProfileResponse 定义了获取用户个人信息 API 的响应体结构。
type ProfileResponse struct {
	ID               uint   `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Bio              string `json:"bio"`
	ExplanationLevel int    `json:"explanation_level"`
}

// GetProfile 获取当前登录用户的个人信息。
// 用户信息已经由 AuthMiddleware 注入到上下文中。
func (h *UserHandler) GetProfile(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{
		ID:               user.ID,
		Name:             user.Name,
		Email:            user.Email,
		Bio:              user.Bio,
		ExplanationLevel: user.ExplanationLevel,
	})
}

// UpdateProfileRequest 定义了更新个人资料 API 的请求体结构。
// 所有字段可选，未提供的字段保持不变。
type UpdateProfileRequest struct {
	Name             *string `json:"name"`
	Bio              *string `json:"bio"`
	ExplanationLevel *int    `json:"explanation_level"`
}

// UpdateProfile 处理更新当前用户资料的请求。
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("UpdateProfile: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	updated, err := h.userService.UpdateProfile(user.ID, req.Name, req.Bio, req.ExplanationLevel)
	if err != nil {
		log.Error("UpdateProfile: Failed to update user", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新用户资料失败"})
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{
		ID:               updated.ID,
		Name:             updated.Name,
		Email:            updated.Email,
		Bio:              updated.Bio,
		ExplanationLevel: updated.ExplanationLevel,
	})
}

// Logout 处理用户登出逻辑。
func (h *UserHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	if err := h.userService.Logout(tokenString); err != nil {
		log.Error("Logout: Failed to logout", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "登出失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "登出成功"})
}

// currentUser 从上下文中取出由 AuthMiddleware 注入的 User 对象。
func currentUser(c *gin.Context) *model.User {
	userValue, exists := c.Get("user")
	if !exists {
		return nil
	}
	user, ok := userValue.(*model.User)
	if !ok {
		return nil
	}
	return user
}
