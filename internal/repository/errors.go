package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	pkgerrors "shift-handover/pkg/errors"
)

// PostgreSQL SQLSTATE
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03" // lock_timeout
	pgQueryCanceled        = "57014" // statement_timeout
	pgInFailedTransaction  = "25P02"
	pgClassConnection      = "08"
)

// translateError 把驱动错误归类为 pkgerrors 哨兵值，保留原始错误链。
// gorm.ErrRecordNotFound 与业务错误原样返回；重复调用结果不变。
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pkgerrors.ErrDuplicateKey) || errors.Is(err, pkgerrors.ErrTransient) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation:
			return fmt.Errorf("%w: %w", pkgerrors.ErrDuplicateKey, err)
		case pgErr.Code == pgSerializationFailure,
			pgErr.Code == pgDeadlockDetected,
			pgErr.Code == pgLockNotAvailable,
			pgErr.Code == pgQueryCanceled,
			pgErr.Code == pgInFailedTransaction,
			strings.HasPrefix(pgErr.Code, pgClassConnection):
			return fmt.Errorf("%w: %w", pkgerrors.ErrTransient, err)
		}
		return err
	}

	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", pkgerrors.ErrTransient, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %w", pkgerrors.ErrTransient, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", pkgerrors.ErrTransient, err)
	}
	return err
}
