// Package match resolves a compute-engine entry to a known operator. The
// strategies run in strict priority order: external IBA id, external JetNet
// id, then a case-insensitive legal/trading name match.
package match

import (
	"context"
	"strings"

	"github.com/smallbiznis/overflight/internal/operator/domain"
)

// Candidate carries the identity hints one crossing entry supplies.
type Candidate struct {
	IBAOperatorID    string
	JetNetOperatorID string
	OperatorName     string
}

// HasExternalIDs reports whether the entry supplied at least one external id.
// Distinguishes OPERATOR_ID_MISMATCH from OPERATOR_ID_NOT_FOUND downstream.
func (c Candidate) HasExternalIDs() bool {
	return strings.TrimSpace(c.IBAOperatorID) != "" || strings.TrimSpace(c.JetNetOperatorID) != ""
}

// Matcher attempts one resolution strategy. A (nil, nil) return means the
// strategy does not apply or found nothing; the chain moves on.
type Matcher interface {
	Name() string
	TryMatch(ctx context.Context, candidate Candidate) (*domain.Operator, error)
}

// Chain evaluates matchers in priority order and returns the first hit.
type Chain struct {
	matchers []Matcher
}

// NewChain builds the default priority chain over the operator repository.
func NewChain(repo domain.Repository) *Chain {
	return &Chain{
		matchers: []Matcher{
			ibaIDMatcher{repo: repo},
			jetNetIDMatcher{repo: repo},
			nameMatcher{repo: repo},
		},
	}
}

// Resolve returns the matched operator or nil when every strategy misses.
func (c *Chain) Resolve(ctx context.Context, candidate Candidate) (*domain.Operator, error) {
	for _, m := range c.matchers {
		op, err := m.TryMatch(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if op != nil {
			return op, nil
		}
	}
	return nil, nil
}

type ibaIDMatcher struct {
	repo domain.Repository
}

func (m ibaIDMatcher) Name() string { return "iba_id" }

func (m ibaIDMatcher) TryMatch(ctx context.Context, candidate Candidate) (*domain.Operator, error) {
	if strings.TrimSpace(candidate.IBAOperatorID) == "" {
		return nil, nil
	}
	return m.repo.FindByIBAID(ctx, strings.TrimSpace(candidate.IBAOperatorID))
}

type jetNetIDMatcher struct {
	repo domain.Repository
}

func (m jetNetIDMatcher) Name() string { return "jetnet_id" }

func (m jetNetIDMatcher) TryMatch(ctx context.Context, candidate Candidate) (*domain.Operator, error) {
	if strings.TrimSpace(candidate.JetNetOperatorID) == "" {
		return nil, nil
	}
	return m.repo.FindByJetNetID(ctx, strings.TrimSpace(candidate.JetNetOperatorID))
}

type nameMatcher struct {
	repo domain.Repository
}

func (m nameMatcher) Name() string { return "name" }

func (m nameMatcher) TryMatch(ctx context.Context, candidate Candidate) (*domain.Operator, error) {
	if strings.TrimSpace(candidate.OperatorName) == "" {
		return nil, nil
	}
	return m.repo.FindByName(ctx, candidate.OperatorName)
}
