package service

import (
	"context"
	"errors"
	"time"

	"math-tutor-go/internal/model"
	"math-tutor-go/internal/repository"
	"math-tutor-go/pkg/hash"
	"math-tutor-go/pkg/log"
	"math-tutor-go/pkg/token"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// UserService 接口定义了所有与用户相关的业务操作。
type UserService interface {
	Register(name, email, password, bio string, explanationLevel int) (*model.User, error)
	Login(email, password string) (accessToken, refreshToken string, err error)
	GetProfile(email string) (*model.User, error)
	UpdateProfile(userID uint, name, bio *string, explanationLevel *int) (*model.User, error)
	Logout(tokenString string) error
	IsTokenBlacklisted(tokenString string) bool
	RefreshToken(refreshTokenString string) (newAccessToken, newRefreshToken string, err error)
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	jwtManager  *token.JWTManager
	rdb         *redis.Client
}

// NewUserService 创建一个新的 UserService 实例。
// rdb 用于登出时的 token 黑名单，传 nil 时黑名单功能被禁用。
func NewUserService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository, jwtManager *token.JWTManager, rdb *redis.Client) UserService {
	return &userService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		jwtManager:  jwtManager,
		rdb:         rdb,
	}
}

// Register 处理用户注册的业务逻辑。
// 注册成功后为新用户创建一个默认会话；默认会话创建失败只记录日志，不影响注册结果。
func (s *userService) Register(name, email, password, bio string, explanationLevel int) (*model.User, error) {
	// 1. 检查邮箱是否已被占用
	_, err := s.userRepo.FindByEmail(email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 2. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	// 3. 创建新用户
	newUser := &model.User{
		Name:             name,
		Email:            email,
		Password:         hashedPassword,
		Bio:              bio,
		ExplanationLevel: explanationLevel,
	}
	if err := s.userRepo.Create(newUser); err != nil {
		return nil, err
	}

	// 4. 为新用户创建默认会话（标题沿用 "Chat {count+1}" 规则）
	count, err := s.sessionRepo.CountByUser(newUser.ID)
	if err != nil {
		log.Errorf("[UserService] 统计用户会话数失败, userId: %d, error: %v", newUser.ID, err)
		count = 0
	}
	defaultSession := &model.ChatSession{
		UserID: newUser.ID,
		Title:  defaultSessionTitle(count),
	}
	if err := s.sessionRepo.Create(defaultSession); err != nil {
		log.Errorf("[UserService] 创建默认会话失败, userId: %d, error: %v", newUser.ID, err)
	}

	return newUser, nil
}

// Login 处理用户登录的业务逻辑。
func (s *userService) Login(email, password string) (accessToken, refreshToken string, err error) {
	// 1. 查找用户
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}

	// 2. 验证密码
	if !hash.CheckPasswordHash(password, user.Password) {
		return "", "", ErrInvalidCredentials
	}

	// 3. 生成 access token 和 refresh token，subject 为用户邮箱
	accessToken, err = s.jwtManager.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = s.jwtManager.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// GetProfile 根据邮箱获取用户详细信息。
func (s *userService) GetProfile(email string) (*model.User, error) {
	return s.userRepo.FindByEmail(email)
}

// UpdateProfile 更新用户资料，nil 字段保持不变。
// 讲解等级只接受 1-4，超出范围时回退为默认等级 2。
func (s *userService) UpdateProfile(userID uint, name, bio *string, explanationLevel *int) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if name != nil {
		user.Name = *name
	}
	if bio != nil {
		user.Bio = *bio
	}
	if explanationLevel != nil {
		level := *explanationLevel
		if level < 1 || level > 4 {
			log.Warnf("[UserService] 用户 %d 提交了越界的讲解等级 %d，回退为 %d", userID, level, model.DefaultExplanationLevel)
			level = model.DefaultExplanationLevel
		}
		user.ExplanationLevel = level
	}
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout 处理用户登出逻辑，将 token 加入 Redis 黑名单。
func (s *userService) Logout(tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return err
	}
	if s.rdb == nil {
		return nil
	}
	// 使用 Redis 实现一个简单的 token 黑名单。
	// token 的剩余有效期将作为 Redis key 的过期时间。
	expiration := time.Until(claims.ExpiresAt.Time)
	return s.rdb.Set(context.Background(), "blacklist:"+tokenString, "true", expiration).Err()
}

// IsTokenBlacklisted 检查 token 是否已被登出拉黑。
func (s *userService) IsTokenBlacklisted(tokenString string) bool {
	if s.rdb == nil {
		return false
	}
	exists, err := s.rdb.Exists(context.Background(), "blacklist:"+tokenString).Result()
	if err != nil {
		// Redis 异常时放行，认证仍由 JWT 校验兜底
		log.Warnf("[UserService] 查询 token 黑名单失败: %v", err)
		return false
	}
	return exists > 0
}

// RefreshToken 验证 refresh token 并签发新的 access token 和 refresh token。
func (s *userService) RefreshToken(refreshTokenString string) (newAccessToken, newRefreshToken string, err error) {
	// 1. 验证 refresh token 是否有效
	claims, err := s.jwtManager.VerifyToken(refreshTokenString)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	// 2. 检查用户是否存在
	user, err := s.userRepo.FindByEmail(claims.Email)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	// 3. 签发新的 token
	newAccessToken, err = s.jwtManager.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", "", err
	}
	newRefreshToken, err = s.jwtManager.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return "", "", err
	}

	return newAccessToken, newRefreshToken, nil
}
