package biz

import (
	"context"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/guardpost/guardpost/internal/intercept"
	"github.com/guardpost/guardpost/internal/policy"
)

// ServiceFileSearch is the service identifier of the file search provider.
const ServiceFileSearch = "filesearch"

// FileSearchService is the business resolver for file search. Like every
// resolver it re-checks the evaluator independently of the interceptor.
type FileSearchService struct {
	evaluator *policy.Evaluator

	mu    sync.Mutex
	paths []string
}

// NewFileSearchService creates the file search resolver.
func NewFileSearchService(evaluator *policy.Evaluator) *FileSearchService {
	if evaluator == nil {
		panic("biz: NewFileSearchService requires a non-nil evaluator")
	}

	return &FileSearchService{evaluator: evaluator}
}

// Search returns indexed paths containing the query as a substring.
func (s *FileSearchService) Search(ctx context.Context, query string) ([]string, error) {
	decision := s.evaluator.Evaluate(ServiceFileSearch, policy.OpRead)
	if !decision.Allowed {
		return nil, &intercept.DeniedError{Code: decision.Code}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return lo.Filter(s.paths, func(path string, _ int) bool {
		return strings.Contains(path, query)
	}), nil
}

// Index adds paths to the searchable set.
func (s *FileSearchService) Index(ctx context.Context, paths ...string) error {
	decision := s.evaluator.Evaluate(ServiceFileSearch, policy.OpWrite)
	if !decision.Allowed {
		return &intercept.DeniedError{Code: decision.Code}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.paths = append(s.paths, paths...)

	return nil
}
