package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/craftbase/paylane/internal/events"
	"github.com/craftbase/paylane/internal/locker"
	walletdomain "github.com/craftbase/paylane/internal/wallet/domain"
	walletrepo "github.com/craftbase/paylane/internal/wallet/repository"
)

type noopEmitter struct{}

func (noopEmitter) Emit(ctx context.Context, event events.Event) {}

func setupWallet(t *testing.T) (walletdomain.Service, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&walletdomain.Wallet{}, &walletdomain.Entry{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Repo:    walletrepo.Provide(),
		Locker:  locker.NewMemoryLocker(2 * time.Second),
		Emitter: noopEmitter{},
	})
	return svc, node
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestCreditCreatesWallet(t *testing.T) {
	svc, node := setupWallet(t)
	ctx := context.Background()
	userID := node.Generate()

	wallet, err := svc.Credit(ctx, userID, dec("947.33"), "USD", "INV-1")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(dec("947.33")))
	assert.True(t, wallet.LifetimeEarnings.Equal(dec("947.33")))
	assert.Equal(t, walletdomain.UserTypeFreelancer, wallet.UserType)
	assert.Equal(t, "USD", wallet.Currency)

	entries, err := svc.Entries(ctx, userID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, walletdomain.EntryCredit, entries[0].Kind)
	assert.Equal(t, "INV-1", entries[0].Reference)
}

func TestCreditIdempotentPerReference(t *testing.T) {
	svc, node := setupWallet(t)
	ctx := context.Background()
	userID := node.Generate()

	_, err := svc.Credit(ctx, userID, dec("100"), "USD", "INV-7")
	require.NoError(t, err)

	repeat, err := svc.Credit(ctx, userID, dec("100"), "USD", "INV-7")
	require.NoError(t, err)
	assert.True(t, repeat.Balance.Equal(dec("100")), "repeat credit not applied, balance = %s", repeat.Balance)

	other, err := svc.Credit(ctx, userID, dec("50"), "USD", "INV-8")
	require.NoError(t, err)
	assert.True(t, other.Balance.Equal(dec("150")))
}

func TestWithdrawalFlow(t *testing.T) {
	svc, node := setupWallet(t)
	ctx := context.Background()
	userID := node.Generate()

	_, err := svc.Credit(ctx, userID, dec("500"), "USD", "INV-1")
	require.NoError(t, err)

	held, err := svc.RequestWithdrawal(ctx, userID, dec("200"), "wd-1")
	require.NoError(t, err)
	assert.True(t, held.Balance.Equal(dec("300")))
	assert.True(t, held.PendingWithdrawal.Equal(dec("200")))

	done, err := svc.CompleteWithdrawal(ctx, userID, dec("200"), "wd-1")
	require.NoError(t, err)
	assert.True(t, done.PendingWithdrawal.IsZero())
	assert.True(t, done.Balance.Equal(dec("300")))
	assert.True(t, done.TotalWithdrawn.Equal(dec("200")))
	assert.True(t, done.LifetimeEarnings.Equal(dec("500")))

	reloaded, err := svc.GetByUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, reloaded.TotalWithdrawn.Equal(dec("200")), "total withdrawn must survive persistence")
	assert.True(t, reloaded.LifetimeEarnings.Equal(dec("500")))
}

func TestWithdrawalOverdraw(t *testing.T) {
	svc, node := setupWallet(t)
	ctx := context.Background()
	userID := node.Generate()

	_, err := svc.Credit(ctx, userID, dec("100"), "USD", "INV-1")
	require.NoError(t, err)

	_, err = svc.RequestWithdrawal(ctx, userID, dec("100.01"), "wd-1")
	assert.ErrorIs(t, err, walletdomain.ErrInsufficientFunds)
}

func TestWithdrawalUnknownWallet(t *testing.T) {
	svc, node := setupWallet(t)

	_, err := svc.RequestWithdrawal(context.Background(), node.Generate(), dec("10"), "wd-1")
	assert.ErrorIs(t, err, walletdomain.ErrWalletNotFound)
}
