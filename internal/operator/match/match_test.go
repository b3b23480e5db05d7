package match

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/overflight/internal/operator/domain"
	"github.com/stretchr/testify/assert"
)

// stubRepo resolves from in-memory maps and records which lookups ran.
type stubRepo struct {
	byIBA    map[string]*domain.Operator
	byJetNet map[string]*domain.Operator
	byName   map[string]*domain.Operator
	lookups  []string
	err      error
}

func (r *stubRepo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Operator, error) {
	return nil, nil
}

func (r *stubRepo) FindByIBAID(ctx context.Context, ibaID string) (*domain.Operator, error) {
	r.lookups = append(r.lookups, "iba")
	if r.err != nil {
		return nil, r.err
	}
	return r.byIBA[ibaID], nil
}

func (r *stubRepo) FindByJetNetID(ctx context.Context, jetNetID string) (*domain.Operator, error) {
	r.lookups = append(r.lookups, "jetnet")
	if r.err != nil {
		return nil, r.err
	}
	return r.byJetNet[jetNetID], nil
}

func (r *stubRepo) FindByName(ctx context.Context, name string) (*domain.Operator, error) {
	r.lookups = append(r.lookups, "name")
	if r.err != nil {
		return nil, r.err
	}
	return r.byName[strings.ToLower(name)], nil
}

func (r *stubRepo) ListBillingEnabled(ctx context.Context) ([]domain.Operator, error) {
	return nil, nil
}

func (r *stubRepo) Insert(ctx context.Context, op *domain.Operator) error { return nil }

func TestResolve_IBAIDWinsOverEverything(t *testing.T) {
	ibaOp := &domain.Operator{Name: "Matched Via IBA"}
	repo := &stubRepo{
		byIBA:  map[string]*domain.Operator{"IBA-1": ibaOp},
		byName: map[string]*domain.Operator{"other air": {Name: "Other Air"}},
	}

	op, err := NewChain(repo).Resolve(context.Background(), Candidate{
		IBAOperatorID: "IBA-1",
		OperatorName:  "Other Air",
	})
	assert.NoError(t, err)
	assert.Equal(t, ibaOp, op)
	assert.Equal(t, []string{"iba"}, repo.lookups)
}

func TestResolve_FallsThroughToJetNet(t *testing.T) {
	jetOp := &domain.Operator{Name: "Matched Via JetNet"}
	repo := &stubRepo{
		byJetNet: map[string]*domain.Operator{"JN-9": jetOp},
	}

	op, err := NewChain(repo).Resolve(context.Background(), Candidate{
		IBAOperatorID:    "IBA-unknown",
		JetNetOperatorID: "JN-9",
		OperatorName:     "Whatever",
	})
	assert.NoError(t, err)
	assert.Equal(t, jetOp, op)
	assert.Equal(t, []string{"iba", "jetnet"}, repo.lookups)
}

func TestResolve_NameIsLastResort(t *testing.T) {
	nameOp := &domain.Operator{Name: "Acme Air"}
	repo := &stubRepo{
		byName: map[string]*domain.Operator{"acme air": nameOp},
	}

	op, err := NewChain(repo).Resolve(context.Background(), Candidate{OperatorName: "Acme Air"})
	assert.NoError(t, err)
	assert.Equal(t, nameOp, op)
	assert.Equal(t, []string{"name"}, repo.lookups)
}

func TestResolve_BlankHintsAreSkipped(t *testing.T) {
	repo := &stubRepo{}
	op, err := NewChain(repo).Resolve(context.Background(), Candidate{
		IBAOperatorID: "   ",
		OperatorName:  "",
	})
	assert.NoError(t, err)
	assert.Nil(t, op)
	assert.Empty(t, repo.lookups)
}

func TestResolve_NoMatchIsNotAnError(t *testing.T) {
	repo := &stubRepo{}
	op, err := NewChain(repo).Resolve(context.Background(), Candidate{
		IBAOperatorID:    "IBA-x",
		JetNetOperatorID: "JN-x",
		OperatorName:     "Ghost Airlines",
	})
	assert.NoError(t, err)
	assert.Nil(t, op)
	assert.Equal(t, []string{"iba", "jetnet", "name"}, repo.lookups)
}

func TestResolve_RepositoryErrorPropagates(t *testing.T) {
	repoErr := errors.New("connection reset")
	repo := &stubRepo{err: repoErr}
	_, err := NewChain(repo).Resolve(context.Background(), Candidate{IBAOperatorID: "IBA-1"})
	assert.ErrorIs(t, err, repoErr)
}

func TestCandidate_HasExternalIDs(t *testing.T) {
	assert.True(t, Candidate{IBAOperatorID: "IBA-1"}.HasExternalIDs())
	assert.True(t, Candidate{JetNetOperatorID: "JN-1"}.HasExternalIDs())
	assert.False(t, Candidate{OperatorName: "Acme Air"}.HasExternalIDs())
	assert.False(t, Candidate{IBAOperatorID: "  "}.HasExternalIDs())
}
