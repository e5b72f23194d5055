package service

import (
	"context"
	"errors"

	"math-tutor-go/internal/config"
	"math-tutor-go/internal/model"
	"math-tutor-go/pkg/es"
)

// ErrSearchDisabled 表示部署未启用 Elasticsearch，全文检索不可用。
var ErrSearchDisabled = errors.New("search is not enabled")

// SearchService 定义了问答记录全文检索的接口。
type SearchService interface {
	SearchChats(ctx context.Context, userID uint, query string, size int) ([]model.ChatSearchHit, error)
}

type searchService struct {
	esCfg config.ElasticsearchConfig
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(esCfg config.ElasticsearchConfig) SearchService {
	return &searchService{esCfg: esCfg}
}

// SearchChats 在当前用户的问答记录中做全文检索。
func (s *searchService) SearchChats(ctx context.Context, userID uint, query string, size int) ([]model.ChatSearchHit, error) {
	if !s.esCfg.Enabled {
		return nil, ErrSearchDisabled
	}
	if size <= 0 {
		size = 10
	}
	return es.SearchChats(ctx, s.esCfg.IndexName, userID, query, size)
}
