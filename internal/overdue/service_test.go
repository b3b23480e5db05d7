package overdue

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/overflight/internal/clock"
	invoicedomain "github.com/smallbiznis/overflight/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/overflight/internal/invoice/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, now time.Time) (*Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&invoicedomain.Invoice{}))

	node, _ := snowflake.NewNode(1)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(now),
		Repo:  invoicerepo.Provide(),
	})
	return svc, db, node
}

func seedInvoice(t *testing.T, db *gorm.DB, node *snowflake.Node, status invoicedomain.InvoiceStatus, dueAt *time.Time) snowflake.ID {
	t.Helper()
	id := node.Generate()
	inv := invoicedomain.Invoice{
		ID:            id,
		InvoiceNumber: "INV-TEST-" + id.String(),
		FlightID:      1,
		Status:        status,
		DueAt:         dueAt,
	}
	assert.NoError(t, db.Create(&inv).Error)
	return id
}

func TestMarkOverdue(t *testing.T) {
	now := time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC)
	svc, db, node := newTestService(t, now)

	past := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 1)

	pastDue := seedInvoice(t, db, node, invoicedomain.InvoiceStatusPending, &past)
	notYetDue := seedInvoice(t, db, node, invoicedomain.InvoiceStatusPending, &future)
	alreadyPaid := seedInvoice(t, db, node, invoicedomain.InvoiceStatusPaid, &past)
	noDueDate := seedInvoice(t, db, node, invoicedomain.InvoiceStatusPending, nil)

	marked, err := svc.MarkOverdue(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	status := func(id snowflake.ID) invoicedomain.InvoiceStatus {
		var inv invoicedomain.Invoice
		assert.NoError(t, db.Where("id = ?", id).Take(&inv).Error)
		return inv.Status
	}
	assert.Equal(t, invoicedomain.InvoiceStatusOverdue, status(pastDue))
	assert.Equal(t, invoicedomain.InvoiceStatusPending, status(notYetDue))
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, status(alreadyPaid))
	assert.Equal(t, invoicedomain.InvoiceStatusPending, status(noDueDate))

	// Second run finds nothing new.
	marked, err = svc.MarkOverdue(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, marked)
}
