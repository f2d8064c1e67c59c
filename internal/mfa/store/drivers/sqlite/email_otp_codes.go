package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/domain"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/store/drivers/sqlite/gen"
)

type emailOTPCodesRepo struct {
	q          *gen.Queries
	atomically func(ctx context.Context, fn func(q *gen.Queries) error) error
}

func (r *emailOTPCodesRepo) ReplaceEmailOTPCode(ctx context.Context, code domain.EmailOTPCode) error {
	return r.atomically(ctx, func(q *gen.Queries) error {
		if err := q.DeleteUnusedEmailOTPCodes(ctx, code.UserID); err != nil {
			return err
		}
		return q.CreateEmailOTPCode(ctx, gen.CreateEmailOTPCodeParams{
			ID:        code.ID,
			UserID:    code.UserID,
			CodeHash:  code.CodeHash,
			ExpiresAt: code.ExpiresAt.UTC(),
			CreatedAt: code.CreatedAt.UTC(),
		})
	})
}

func (r *emailOTPCodesRepo) GetActiveEmailOTPCode(ctx context.Context, userID string, now time.Time) (domain.EmailOTPCode, error) {
	row, err := r.q.GetLatestUnusedEmailOTPCode(ctx, userID)
	if err != nil {
		return domain.EmailOTPCode{}, mapNotFound(err)
	}

	code := mapEmailOTPCode(row)
	if !code.Active(now) {
		return domain.EmailOTPCode{}, store.ErrNotFound
	}
	return code, nil
}

func (r *emailOTPCodesRepo) MarkEmailOTPCodeUsed(ctx context.Context, userID, id string) (bool, error) {
	n, err := r.q.MarkEmailOTPCodeUsed(ctx, gen.MarkEmailOTPCodeUsedParams{
		ID:     id,
		UserID: userID,
	})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *emailOTPCodesRepo) DeleteExpiredEmailOTPCodes(ctx context.Context, now time.Time) error {
	return r.q.DeleteExpiredEmailOTPCodes(ctx, now.UTC())
}
