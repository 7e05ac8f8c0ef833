package repository

import (
	"context"
	"errors"
	"fmt"

	"sacco/database"
	"sacco/events"
	"sacco/service"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	memberRepo       service.MemberRepository
	savingsRepo      service.SavingsAccountRepository
	historyRepo      service.SavingsBalanceHistoryRepository
	contributionRepo service.ContributionRepository
	pensionRepo      service.PensionRepository
	loanRepo         service.LoanRepository
	guarantorRepo    service.GuarantorRepository
	repaymentRepo    service.RepaymentRepository
	transactionRepo  service.TransactionRepository
	interestRunRepo  service.InterestRunRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.memberRepo = newMemberRepositoryWithTx(tx)
	u.savingsRepo = newSavingsAccountRepositoryWithTx(tx)
	u.historyRepo = newSavingsBalanceHistoryRepositoryWithTx(tx)
	u.contributionRepo = newContributionRepositoryWithTx(tx)
	u.pensionRepo = newPensionRepositoryWithTx(tx)
	u.loanRepo = newLoanRepositoryWithTx(tx)
	u.guarantorRepo = newGuarantorRepositoryWithTx(tx)
	u.repaymentRepo = newRepaymentRepositoryWithTx(tx)
	u.transactionRepo = newTransactionRepositoryWithTx(tx)
	u.interestRunRepo = newInterestRunRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		if err := u.transactionalBus.Flush(u.ctx); err != nil {
			log.WithError(err).Warn("Failed to flush events after commit")
		}
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

func notStarted() {
	panic("unit of work not started - call Begin() first")
}

// MemberRepository returns the member repository for this unit of work
func (u *unitOfWork) MemberRepository() service.MemberRepository {
	if u.memberRepo == nil {
		notStarted()
	}
	return u.memberRepo
}

// SavingsAccountRepository returns the savings account repository for this unit of work
func (u *unitOfWork) SavingsAccountRepository() service.SavingsAccountRepository {
	if u.savingsRepo == nil {
		notStarted()
	}
	return u.savingsRepo
}

// SavingsBalanceHistoryRepository returns the savings balance history repository for this unit of work
func (u *unitOfWork) SavingsBalanceHistoryRepository() service.SavingsBalanceHistoryRepository {
	if u.historyRepo == nil {
		notStarted()
	}
	return u.historyRepo
}

// ContributionRepository returns the contribution repository for this unit of work
func (u *unitOfWork) ContributionRepository() service.ContributionRepository {
	if u.contributionRepo == nil {
		notStarted()
	}
	return u.contributionRepo
}

// PensionRepository returns the pension repository for this unit of work
func (u *unitOfWork) PensionRepository() service.PensionRepository {
	if u.pensionRepo == nil {
		notStarted()
	}
	return u.pensionRepo
}

// LoanRepository returns the loan repository for this unit of work
func (u *unitOfWork) LoanRepository() service.LoanRepository {
	if u.loanRepo == nil {
		notStarted()
	}
	return u.loanRepo
}

// GuarantorRepository returns the guarantor repository for this unit of work
func (u *unitOfWork) GuarantorRepository() service.GuarantorRepository {
	if u.guarantorRepo == nil {
		notStarted()
	}
	return u.guarantorRepo
}

// RepaymentRepository returns the repayment repository for this unit of work
func (u *unitOfWork) RepaymentRepository() service.RepaymentRepository {
	if u.repaymentRepo == nil {
		notStarted()
	}
	return u.repaymentRepo
}

// TransactionRepository returns the transaction repository for this unit of work
func (u *unitOfWork) TransactionRepository() service.TransactionRepository {
	if u.transactionRepo == nil {
		notStarted()
	}
	return u.transactionRepo
}

// InterestRunRepository returns the interest run repository for this unit of work
func (u *unitOfWork) InterestRunRepository() service.InterestRunRepository {
	if u.interestRunRepo == nil {
		notStarted()
	}
	return u.interestRunRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		notStarted()
	}
	return u.transactionalBus
}
