// Package handoff persists finished prompts until the website builder side picks them up.
package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/lovabuddy/internal/domain/design"
	"github.com/yungbote/lovabuddy/internal/platform/logger"
	"github.com/yungbote/lovabuddy/internal/relay/config"
)

var (
	ErrNotFound        = errors.New("handoff not found")
	ErrAlreadyConsumed = errors.New("handoff already consumed")
)

type Kind string

const (
	KindFinal   Kind = "final"
	KindImprove Kind = "improve"
)

type Handoff struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	Kind       Kind           `gorm:"size:16;not null" json:"kind"`
	Prompt     string         `gorm:"type:text;not null" json:"prompt"`
	Context    datatypes.JSON `json:"context,omitempty"`
	ClientID   string         `gorm:"size:128;index" json:"-"`
	CreatedAt  time.Time      `json:"created_at"`
	ExpiresAt  time.Time      `gorm:"index" json:"expires_at"`
	ConsumedAt *time.Time     `json:"consumed_at,omitempty"`
}

func (Handoff) TableName() string { return "prompt_handoffs" }

// DesignContext decodes the stored context, if any.
func (h *Handoff) DesignContext() (design.PromptContext, error) {
	var pc design.PromptContext
	if len(h.Context) == 0 {
		return pc, nil
	}
	err := json.Unmarshal(h.Context, &pc)
	return pc, err
}

type Store struct {
	db  *gorm.DB
	log *logger.Logger
	ttl time.Duration
	now func() time.Time
}

// Open connects with the configured driver and migrates the table.
func Open(cfg config.HandoffConfig, log *logger.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported handoff driver %q", cfg.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open handoff db: %w", err)
	}
	return New(db, cfg.TTL.Duration, log)
}

func New(db *gorm.DB, ttl time.Duration, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if err := db.AutoMigrate(&Handoff{}); err != nil {
		return nil, fmt.Errorf("migrate handoffs: %w", err)
	}
	return &Store{db: db, log: log.With("service", "HandoffStore"), ttl: ttl, now: time.Now}, nil
}

func (s *Store) Create(ctx context.Context, kind Kind, prompt string, pc *design.PromptContext, clientID string) (*Handoff, error) {
	now := s.now().UTC()
	h := &Handoff{
		ID:        uuid.NewString(),
		Kind:      kind,
		Prompt:    prompt,
		ClientID:  clientID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if pc != nil {
		b, err := json.Marshal(pc)
		if err != nil {
			return nil, err
		}
		h.Context = datatypes.JSON(b)
	}
	if err := s.db.WithContext(ctx).Create(h).Error; err != nil {
		return nil, fmt.Errorf("create handoff: %w", err)
	}
	return h, nil
}

// Get returns an unexpired hand-off, consumed or not.
func (s *Store) Get(ctx context.Context, id string) (*Handoff, error) {
	var h Handoff
	err := s.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, s.now().UTC()).
		First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Consume marks a hand-off delivered. Only the first caller succeeds.
func (s *Store) Consume(ctx context.Context, id string) (*Handoff, error) {
	now := s.now().UTC()
	res := s.db.WithContext(ctx).Model(&Handoff{}).
		Where("id = ? AND consumed_at IS NULL AND expires_at > ?", id, now).
		Update("consumed_at", now)
	if res.Error != nil {
		return nil, res.Error
	}
	h, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyConsumed
	}
	return h, nil
}

// Purge deletes expired hand-offs and returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now().UTC()).Delete(&Handoff{})
	return res.RowsAffected, res.Error
}

// RunPurger purges on every tick until ctx is done.
func (s *Store) RunPurger(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Hour
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := s.Purge(ctx); err != nil {
				s.log.Warn("handoff purge failed", "error", err)
			} else if n > 0 {
				s.log.Info("handoffs purged", "count", n)
			}
		}
	}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
