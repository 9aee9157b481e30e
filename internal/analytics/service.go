package analytics

import (
	"context"
)

//go:generate mockgen -source=service.go -destination=mock_repository.go -package=analytics

type Repository interface {
	TopNByGroupingKey(ctx context.Context, spec GroupingSpec, n int) ([]GroupCount, error)
	ListTables(ctx context.Context) ([]TableInfo, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// TopAuthors returns the n authors credited on the most distinct books.
func (s *Service) TopAuthors(ctx context.Context, n int) ([]AuthorCount, error) {
	groups, err := s.repo.TopNByGroupingKey(ctx, AuthorGrouping, n)
	if err != nil {
		return nil, err
	}
	out := make([]AuthorCount, len(groups))
	for i, g := range groups {
		out[i] = AuthorCount{BookCount: g.Count}
		if !g.Null {
			name := g.Key
			out[i].Author = &name
		}
	}
	return out, nil
}

func (s *Service) Tables(ctx context.Context) ([]TableInfo, error) {
	return s.repo.ListTables(ctx)
}
