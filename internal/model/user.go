// Package model 包含了应用的数据模型定义。
package model

import "time"

// DefaultExplanationLevel 是新用户及非法偏好值的回退讲解等级（Detailed）。
const DefaultExplanationLevel = 2

// User 对应于数据库中的 'users' 表。
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"type:varchar(100);not null" json:"name"`
	Email    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password string `gorm:"type:varchar(255);not null" json:"-"`
	Bio      string `gorm:"type:text" json:"bio"`
	// ExplanationLevel 取值 1-4，选择回答的详细程度预设。
	ExplanationLevel int       `gorm:"not null;default:2" json:"explanation_level"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}
