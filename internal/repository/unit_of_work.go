package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/gin-admin-kit/internal/service"
)

// TxObserver receives the duration and outcome of each transaction.
type TxObserver func(duration time.Duration, err error)

// SQLUnitOfWork implements service.UnitOfWorkFactory on sqlx transactions.
type SQLUnitOfWork struct {
	db       *sqlx.DB
	logger   *zap.Logger
	observer TxObserver
}

// NewSQLUnitOfWork constructs a SQLUnitOfWork. observer may be nil.
func NewSQLUnitOfWork(db *sqlx.DB, logger *zap.Logger, observer TxObserver) *SQLUnitOfWork {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLUnitOfWork{db: db, logger: logger, observer: observer}
}

// Do runs fn in one transaction. A panic in fn rolls back and is re-raised.
func (u *SQLUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, uow service.UnitOfWork) error) (err error) {
	start := time.Now()
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			u.rollback(tx)
			u.observe(start, fmt.Errorf("panic: %v", p))
			panic(p)
		}
		u.observe(start, err)
	}()

	if err = fn(ctx, &sqlTx{tx: tx}); err != nil {
		u.rollback(tx)
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (u *SQLUnitOfWork) rollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil {
		u.logger.Warn("transaction rollback failed", zap.Error(err))
	}
}

func (u *SQLUnitOfWork) observe(start time.Time, err error) {
	if u.observer != nil {
		u.observer(time.Since(start), err)
	}
}

type sqlTx struct {
	tx *sqlx.Tx
}

func (t *sqlTx) Users() service.UserRepository {
	return NewUserRepository(t.tx)
}

func (t *sqlTx) RefreshTokens() service.RefreshTokenRepository {
	return NewRefreshTokenRepository(t.tx)
}
