// Package service 包含了应用的业务逻辑层。
package service

import "errors"

// 业务层哨兵错误，由 handler 统一映射为 HTTP 状态码。
var (
	// ErrEmailTaken 表示注册邮箱已被占用。
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials 表示邮箱不存在或密码不匹配。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionNotFound 表示会话不存在或不属于当前用户。
	// 两种情况合并为同一个错误，避免泄露他人会话的存在性。
	ErrSessionNotFound = errors.New("session not found or access denied")
	// ErrInvalidToken 表示 token 无效、过期或已被拉黑。
	ErrInvalidToken = errors.New("invalid or expired token")
)
