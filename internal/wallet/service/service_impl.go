package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/craftbase/paylane/internal/events"
	"github.com/craftbase/paylane/internal/locker"
	obsmetrics "github.com/craftbase/paylane/internal/observability/metrics"
	walletdomain "github.com/craftbase/paylane/internal/wallet/domain"
	"github.com/craftbase/paylane/pkg/db"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    walletdomain.Repository
	Locker  locker.KeyedLocker
	Emitter events.Emitter
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    walletdomain.Repository
	locker  locker.KeyedLocker
	emitter events.Emitter
	metrics *obsmetrics.Metrics
}

func NewService(p Params) walletdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("wallet.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		locker:  p.Locker,
		emitter: p.Emitter,
		metrics: p.Metrics,
	}
}

func (s *Service) Credit(ctx context.Context, userID snowflake.ID, amount decimal.Decimal, currency, reference string) (*walletdomain.Wallet, error) {
	wallet, applied, err := s.mutate(ctx, userID, walletdomain.EntryCredit, reference, true,
		func(w walletdomain.Wallet, now time.Time) (walletdomain.Wallet, error) {
			return walletdomain.Credit(w, amount, currency, now)
		}, amount)
	if err != nil {
		return nil, err
	}
	if applied {
		s.metrics.RecordWalletCredit()
	}
	return wallet, nil
}

func (s *Service) RequestWithdrawal(ctx context.Context, userID snowflake.ID, amount decimal.Decimal, reference string) (*walletdomain.Wallet, error) {
	wallet, applied, err := s.mutate(ctx, userID, walletdomain.EntryWithdrawalHold, reference, false,
		func(w walletdomain.Wallet, now time.Time) (walletdomain.Wallet, error) {
			return walletdomain.Hold(w, amount, now)
		}, amount)
	if err != nil {
		return nil, err
	}
	if applied {
		s.emitter.Emit(ctx, events.Event{
			Type:     events.EventWithdrawalHeld,
			ActorID:  userID.String(),
			TargetID: wallet.ID.String(),
			Context:  map[string]any{"amount": amount.String(), "reference": reference},
		})
	}
	return wallet, nil
}

func (s *Service) CompleteWithdrawal(ctx context.Context, userID snowflake.ID, amount decimal.Decimal, reference string) (*walletdomain.Wallet, error) {
	wallet, applied, err := s.mutate(ctx, userID, walletdomain.EntryWithdrawalComplete, reference, false,
		func(w walletdomain.Wallet, now time.Time) (walletdomain.Wallet, error) {
			return walletdomain.Finalize(w, amount, now)
		}, amount)
	if err != nil {
		return nil, err
	}
	if applied {
		s.emitter.Emit(ctx, events.Event{
			Type:     events.EventWithdrawalComplete,
			ActorID:  userID.String(),
			TargetID: wallet.ID.String(),
			Context:  map[string]any{"amount": amount.String(), "reference": reference},
		})
	}
	return wallet, nil
}

func (s *Service) GetByUser(ctx context.Context, userID snowflake.ID) (*walletdomain.Wallet, error) {
	wallet, err := s.repo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, walletdomain.ErrWalletNotFound
	}
	return wallet, nil
}

func (s *Service) Entries(ctx context.Context, userID snowflake.ID) ([]walletdomain.Entry, error) {
	wallet, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.FindEntries(ctx, s.db, wallet.ID)
}

// mutate runs one ledger operation under the per-wallet lock. The reference
// makes the operation idempotent: a repeat with the same kind and reference
// returns the current wallet without applying anything. createIfMissing is set
// only for credits; withdrawals against an unknown wallet fail instead.
func (s *Service) mutate(
	ctx context.Context,
	userID snowflake.ID,
	kind walletdomain.EntryKind,
	reference string,
	createIfMissing bool,
	apply func(walletdomain.Wallet, time.Time) (walletdomain.Wallet, error),
	amount decimal.Decimal,
) (*walletdomain.Wallet, bool, error) {

	release, err := s.locker.Acquire(ctx, "wallet:"+userID.String())
	if err != nil {
		if errors.Is(err, locker.ErrLockWait) {
			s.metrics.RecordLockTimeout()
		}
		return nil, false, err
	}
	defer release()

	var (
		out     *walletdomain.Wallet
		applied bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := s.repo.FindByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if wallet == nil {
			if !createIfMissing {
				return walletdomain.ErrWalletNotFound
			}
			wallet = &walletdomain.Wallet{
				ID:        s.genID.Generate(),
				UserID:    userID,
				UserType:  walletdomain.UserTypeFreelancer,
				Version:   1,
				CreatedAt: time.Now().UTC(),
				UpdatedAt: time.Now().UTC(),
			}
			if err := s.repo.Insert(ctx, tx, wallet); err != nil {
				// Another replica created the wallet between our read
				// and insert. Re-read and continue on its row.
				if !db.IsDuplicateKeyErr(err) {
					return err
				}
				wallet, err = s.repo.FindByUser(ctx, tx, userID)
				if err != nil {
					return err
				}
				if wallet == nil {
					return walletdomain.ErrWalletNotFound
				}
			}
		}

		existing, err := s.repo.FindEntryByReference(ctx, tx, wallet.ID, kind, reference)
		if err != nil {
			return err
		}
		if existing != nil {
			s.log.Info("ledger entry already applied",
				zap.String("wallet_id", wallet.ID.String()),
				zap.String("kind", string(kind)),
				zap.String("reference", reference),
			)
			out = wallet
			return nil
		}

		updated, err := apply(*wallet, time.Now().UTC())
		if err != nil {
			return err
		}

		ok, err := s.repo.Save(ctx, tx, &updated, wallet.Version)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("wallet version conflict")
		}

		if _, err := s.repo.InsertEntry(ctx, tx, &walletdomain.Entry{
			ID:        s.genID.Generate(),
			WalletID:  wallet.ID,
			Kind:      kind,
			Amount:    amount,
			Reference: reference,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}

		out = &updated
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, applied, nil
}
