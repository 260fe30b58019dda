package directory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/raftaar/raftaar-backend/internal/apperr"
	"github.com/raftaar/raftaar-backend/internal/geo"
	"github.com/raftaar/raftaar-backend/internal/models"
)

// locationGeography reads the jsonb GeoJSON column as a PostGIS geography.
// The same expression backs the GiST index created by database.Migrate.
const locationGeography = "ST_SetSRID(ST_GeomFromGeoJSON(location::text), 4326)::geography"

const pointGeography = "ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography"

const uniqueViolation = "23505"

type GormStore[A models.Account] struct {
	db        *gorm.DB
	newRecord func() A
}

func NewGormStore[A models.Account](db *gorm.DB, newRecord func() A) *GormStore[A] {
	return &GormStore[A]{db: db, newRecord: newRecord}
}

func NewUserStore(db *gorm.DB) *GormStore[*models.User] {
	return NewGormStore(db, func() *models.User { return &models.User{} })
}

func NewCaptainStore(db *gorm.DB) *GormStore[*models.Captain] {
	return NewGormStore(db, func() *models.Captain { return &models.Captain{} })
}

func (s *GormStore[A]) New() A { return s.newRecord() }

func (s *GormStore[A]) Kind() models.ActorKind { return s.newRecord().Kind() }

func (s *GormStore[A]) first(ctx context.Context, query string, args ...any) (A, error) {
	rec := s.newRecord()
	err := s.db.WithContext(ctx).Where(query, args...).First(rec).Error
	if err != nil {
		var zero A
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, ErrNotFound
		}
		return zero, apperr.Wrap(apperr.Internal, "directory read failed", err)
	}
	return rec, nil
}

func (s *GormStore[A]) FindByID(ctx context.Context, id uuid.UUID) (A, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *GormStore[A]) FindByEmail(ctx context.Context, email string) (A, error) {
	return s.first(ctx, "email = ?", email)
}

func (s *GormStore[A]) FindByMobile(ctx context.Context, mobile string) (A, error) {
	return s.first(ctx, "mobile_number = ?", mobile)
}

func (s *GormStore[A]) FindByEmailOrMobile(ctx context.Context, email, mobile string) (A, error) {
	return s.first(ctx, "email = ? OR mobile_number = ?", email, mobile)
}

func (s *GormStore[A]) FindByChannel(ctx context.Context, channelID string) (A, error) {
	return s.first(ctx, "channel_id = ?", channelID)
}

func (s *GormStore[A]) Save(ctx context.Context, a A) error {
	if err := s.db.WithContext(ctx).Save(a).Error; err != nil {
		return translateWriteError(err)
	}
	return nil
}

func (s *GormStore[A]) UpdateField(ctx context.Context, id uuid.UUID, field Field, value any) error {
	result := s.db.WithContext(ctx).Model(s.newRecord()).Where("id = ?", id).Update(string(field), value)
	if result.Error != nil {
		return translateWriteError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore[A]) ClearChannel(ctx context.Context, channelID string) (bool, error) {
	result := s.db.WithContext(ctx).Model(s.newRecord()).
		Where("channel_id = ?", channelID).
		Update(string(FieldChannelID), gorm.Expr("NULL"))
	if result.Error != nil {
		return false, translateWriteError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore[A]) Near(ctx context.Context, center geo.Point, maxMeters float64) ([]A, error) {
	o := center.Orb()
	var out []A
	err := s.db.WithContext(ctx).
		Where("location IS NOT NULL").
		Where("ST_DWithin("+locationGeography+", "+pointGeography+", ?)", o.Lon(), o.Lat(), maxMeters).
		Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:                "ST_Distance(" + locationGeography + ", " + pointGeography + ")",
			Vars:               []any{o.Lon(), o.Lat()},
			WithoutParentheses: true,
		}}).
		Find(&out).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "proximity query failed", err)
	}
	return out, nil
}

func translateWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Duplicate(fieldForConstraint(pgErr.ConstraintName))
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Duplicate("value")
	}
	return apperr.Wrap(apperr.Internal, "directory write failed", err)
}

// fieldForConstraint maps gorm's default unique index names
// (idx_<table>_<column>) to the client-facing field name.
func fieldForConstraint(name string) string {
	switch {
	case strings.HasSuffix(name, "_mobile_number"):
		return "mobileNumber"
	case strings.HasSuffix(name, "_email"):
		return "email"
	default:
		return "value"
	}
}

type GormTokenStore struct {
	db *gorm.DB
}

func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db}
}

func (s *GormTokenStore) Create(ctx context.Context, token *models.RefreshToken) error {
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to store refresh token", err)
	}
	return nil
}

func (s *GormTokenStore) FindActive(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var stored models.RefreshToken
	err := s.db.WithContext(ctx).Where("token_hash = ? AND revoked_at IS NULL", tokenHash).First(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, apperr.Wrap(apperr.Internal, "refresh token lookup failed", err)
	}
	return &stored, nil
}

func (s *GormTokenStore) Revoke(ctx context.Context, tokenHash string) error {
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", tokenHash).
		Update("revoked_at", time.Now()).Error
}
