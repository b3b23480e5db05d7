package repository

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/overflight/internal/operator/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) (domain.Repository, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&domain.Operator{}))
	node, _ := snowflake.NewNode(1)
	return Provide(db), node
}

func TestFindByName_CaseInsensitive(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()

	op := &domain.Operator{
		ID:          node.Generate(),
		Name:        "Acme Air",
		TradingName: "FlyAcme",
		Status:      domain.OperatorStatusApproved,
	}
	assert.NoError(t, repo.Insert(ctx, op))

	found, err := repo.FindByName(ctx, "ACME AIR")
	assert.NoError(t, err)
	assert.NotNil(t, found)
	assert.Equal(t, op.ID, found.ID)

	// Trading name matches too.
	found, err = repo.FindByName(ctx, "flyacme")
	assert.NoError(t, err)
	assert.NotNil(t, found)
	assert.Equal(t, op.ID, found.ID)

	found, err = repo.FindByName(ctx, "Ghost Airlines")
	assert.NoError(t, err)
	assert.Nil(t, found)

	found, err = repo.FindByName(ctx, "   ")
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestFindByExternalIDs(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()

	op := &domain.Operator{
		ID:               node.Generate(),
		Name:             "Acme Air",
		IBAOperatorID:    "IBA-42",
		JetNetOperatorID: "JN-7",
	}
	assert.NoError(t, repo.Insert(ctx, op))

	found, err := repo.FindByIBAID(ctx, "IBA-42")
	assert.NoError(t, err)
	assert.NotNil(t, found)

	found, err = repo.FindByJetNetID(ctx, "JN-7")
	assert.NoError(t, err)
	assert.NotNil(t, found)

	found, err = repo.FindByIBAID(ctx, "IBA-404")
	assert.NoError(t, err)
	assert.Nil(t, found)

	// Blank ids never match blank columns.
	found, err = repo.FindByIBAID(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestListBillingEnabled(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()

	enabled := &domain.Operator{
		ID:                   node.Generate(),
		Name:                 "Enabled Air",
		BillingPeriodEnabled: true,
	}
	disabled := &domain.Operator{
		ID:   node.Generate(),
		Name: "Disabled Air",
	}
	assert.NoError(t, repo.Insert(ctx, enabled))
	assert.NoError(t, repo.Insert(ctx, disabled))

	ops, err := repo.ListBillingEnabled(ctx)
	assert.NoError(t, err)
	assert.Len(t, ops, 1)
	assert.Equal(t, "Enabled Air", ops[0].Name)
}
