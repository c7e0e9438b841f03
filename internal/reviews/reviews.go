// Package reviews manages product reviews and the low-rating moderation
// sweep.
package reviews

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

const (
	// StaleAfter is how long a low rating waits before it is flagged.
	StaleAfter = 24 * time.Hour
	// FlagBelow is the rating under which reviews are flagged.
	FlagBelow = 3
)

type Service struct {
	store store.Store
	log   *zap.Logger
}

func NewService(st store.Store, log *zap.Logger) *Service {
	return &Service{store: st, log: log.Named("reviews")}
}

type Input struct {
	ProductID uuid.UUID `json:"product_id"`
	Rating    int       `json:"rating"`
	Body      string    `json:"body"`
}

func validRating(r int) error {
	if r < 1 || r > 5 {
		return apperr.InvalidInput("rating must be between 1 and 5")
	}
	return nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	r, err := s.store.Reviews().ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("review not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load review")
	}
	return r, nil
}

// Create records a review. It is marked as a verified purchase when the
// caller has a delivered order containing the product.
func (s *Service) Create(ctx context.Context, caller models.Caller, in Input) (*models.Review, error) {
	if err := validRating(in.Rating); err != nil {
		return nil, err
	}
	if _, err := s.store.Products().ByID(ctx, in.ProductID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("product %s not found", in.ProductID)
		}
		return nil, apperr.Internal(err, "load product")
	}
	verified, err := s.store.Orders().HasDelivered(ctx, caller.UserID, in.ProductID)
	if err != nil {
		return nil, apperr.Internal(err, "check purchase")
	}

	r := &models.Review{
		UserID:           caller.UserID,
		ProductID:        in.ProductID,
		Rating:           in.Rating,
		Body:             strings.TrimSpace(in.Body),
		VerifiedPurchase: verified,
	}
	if err := s.store.Reviews().Create(ctx, r); err != nil {
		return nil, apperr.Internal(err, "create review")
	}
	return r, nil
}

func (s *Service) ForProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	list, err := s.store.Reviews().ByProduct(ctx, productID)
	if err != nil {
		return nil, apperr.Internal(err, "list reviews")
	}
	return list, nil
}

func (s *Service) ForUser(ctx context.Context, caller models.Caller) ([]models.Review, error) {
	list, err := s.store.Reviews().ByUser(ctx, caller.UserID)
	if err != nil {
		return nil, apperr.Internal(err, "list reviews")
	}
	return list, nil
}

// Update lets the author change rating and body.
func (s *Service) Update(ctx context.Context, caller models.Caller, id uuid.UUID, in Input) (*models.Review, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != caller.UserID {
		return nil, apperr.Forbidden("only the author can edit a review")
	}
	if in.Rating != 0 {
		if err := validRating(in.Rating); err != nil {
			return nil, err
		}
		r.Rating = in.Rating
	}
	if body := strings.TrimSpace(in.Body); body != "" {
		r.Body = body
	}
	if err := s.store.Reviews().Save(ctx, r); err != nil {
		return nil, apperr.Internal(err, "save review")
	}
	return r, nil
}

// Delete removes a review; allowed for the author and admins.
func (s *Service) Delete(ctx context.Context, caller models.Caller, id uuid.UUID) error {
	r, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if r.UserID != caller.UserID && !caller.IsAdmin() {
		return apperr.Forbidden("only the author can delete a review")
	}
	if err := s.store.Reviews().Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return apperr.Internal(err, "delete review")
	}
	return nil
}

func (s *Service) Stats(ctx context.Context, productID uuid.UUID) (models.RatingStats, error) {
	stats, err := s.store.Reviews().Stats(ctx, productID)
	if err != nil {
		return models.RatingStats{}, apperr.Internal(err, "review stats")
	}
	return stats, nil
}

func (s *Service) Flagged(ctx context.Context) ([]models.Review, error) {
	list, err := s.store.Reviews().Flagged(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list flagged reviews")
	}
	return list, nil
}

// FlagStale flags every unflagged review rated below FlagBelow that is older
// than StaleAfter at now. Running it again flags nothing new.
func (s *Service) FlagStale(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.store.Reviews().FlagStale(ctx, now.Add(-StaleAfter), FlagBelow)
	if err != nil {
		return 0, errors.Wrap(err, "flag stale reviews")
	}
	if n > 0 {
		s.log.Info("flagged low-rated reviews", zap.Int64("count", n))
	}
	return n, nil
}
