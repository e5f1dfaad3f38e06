package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"rewards-ledger/internal/apperr"
	"rewards-ledger/internal/pkg/db"
)

// Repos bundles every repository bound to one Querier.
type Repos struct {
	Accounts     *AccountRepository
	Packages     *PackageRepository
	Coupons      *CouponRepository
	Transactions *TransactionRepository
	Referrals    *ReferralRepository
	Games        *GameRepository
	Submissions  *SubmissionRepository
	Withdrawals  *WithdrawalRepository
}

func newRepos(q Querier, defaultPriority int) Repos {
	return Repos{
		Accounts:     NewAccountRepository(q),
		Packages:     NewPackageRepository(q),
		Coupons:      NewCouponRepository(q),
		Transactions: NewTransactionRepository(q),
		Referrals:    NewReferralRepository(q),
		Games:        NewGameRepository(q),
		Submissions:  NewSubmissionRepository(q),
		Withdrawals:  NewWithdrawalRepository(q, defaultPriority),
	}
}

// Tx is a unit of work. Its repositories share one database transaction.
type Tx struct {
	Repos
	onCommit []func()
}

// OnCommit registers fn to run after the transaction commits. It never runs on rollback.
func (t *Tx) OnCommit(fn func()) {
	t.onCommit = append(t.onCommit, fn)
}

// Pool is what Store needs from a connection pool.
type Pool interface {
	Querier
	db.Beginner
}

// Store gives access to repositories outside and inside transactions.
type Store struct {
	Repos
	pool            Pool
	lockTimeout     time.Duration
	defaultPriority int
}

// NewStore creates a Store over pool. lockTimeout bounds row lock waits in RunInTx.
func NewStore(pool Pool, lockTimeout time.Duration, defaultWithdrawalPriority int) *Store {
	return &Store{
		Repos:           newRepos(pool, defaultWithdrawalPriority),
		pool:            pool,
		lockTimeout:     lockTimeout,
		defaultPriority: defaultWithdrawalPriority,
	}
}

// RunInTx runs fn in one database transaction. Returning an error rolls back
// everything fn did.
func (s *Store) RunInTx(ctx context.Context, fn func(tx *Tx) error) error {
	var tx *Tx
	err := db.RunInTx(ctx, s.pool, db.TxOptions{LockTimeout: s.lockTimeout}, func(pt pgx.Tx) error {
		tx = &Tx{Repos: newRepos(pt, s.defaultPriority)}
		return fn(tx)
	})
	if err != nil {
		return classifyTxErr(err)
	}
	for _, hook := range tx.onCommit {
		hook()
	}
	return nil
}

// classifyTxErr maps storage errors that escaped the repositories, such as a
// serialization failure at commit, onto the repository taxonomy.
func classifyTxErr(err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return wrapErr("run transaction", err)
	}
	return err
}
