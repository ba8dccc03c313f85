package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/arena-server/internal/config"
	"github.com/DoyleJ11/arena-server/internal/engine"
)

type MatchRecord struct {
	ID      uint           `gorm:"primaryKey" json:"id"`
	RoomID  string         `gorm:"size:64;index" json:"roomId"`
	MapName string         `gorm:"size:32" json:"mapName"`
	EndedAt time.Time      `gorm:"index" json:"endedAt"`
	Players []PlayerRecord `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE" json:"players"`
}

type PlayerRecord struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	MatchID  uint   `gorm:"index" json:"-"`
	PlayerID string `gorm:"size:64" json:"id"`
	Name     string `gorm:"size:64" json:"name"`
	Team     string `gorm:"size:8" json:"team"`
	Kills    int    `json:"kills"`
	Deaths   int    `json:"deaths"`
}

// Archive stores finished matches. MatchEnded only queues; Run does the
// writes so the lobby loop never waits on the database.
type Archive struct {
	db    *gorm.DB
	queue chan engine.MatchSummary
	log   *zap.Logger
}

// Open connects to postgres and migrates the schema.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*Archive, error) {
	if cfg.DSN == "" {
		return nil, errors.New("persist: empty dsn")
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.AutoMigrate(&MatchRecord{}, &PlayerRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return New(db, 64, log), nil
}

func New(db *gorm.DB, queueSize int, log *zap.Logger) *Archive {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archive{
		db:    db,
		queue: make(chan engine.MatchSummary, queueSize),
		log:   log.Named("archive"),
	}
}

// MatchEnded queues a summary, dropping it if the writer is behind.
func (a *Archive) MatchEnded(s engine.MatchSummary) {
	select {
	case a.queue <- s:
	default:
		a.log.Warn("archive queue full, dropping match", zap.String("room", s.RoomID))
	}
}

// Run writes queued matches until ctx is done, then flushes what is left.
func (a *Archive) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			a.flush()
			return nil
		case s := <-a.queue:
			a.store(ctx, s)
		}
	}
}

func (a *Archive) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case s := <-a.queue:
			a.store(ctx, s)
		default:
			return
		}
	}
}

func (a *Archive) store(ctx context.Context, s engine.MatchSummary) {
	if err := a.Save(ctx, s); err != nil {
		a.log.Error("save match", zap.String("room", s.RoomID), zap.Error(err))
	}
}

func (a *Archive) Save(ctx context.Context, s engine.MatchSummary) error {
	rec := toRecord(s)
	return a.db.WithContext(ctx).Create(&rec).Error
}

// Recent returns the latest matches, newest first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]MatchRecord, error) {
	var out []MatchRecord
	err := a.db.WithContext(ctx).
		Preload("Players").
		Order("ended_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(s engine.MatchSummary) MatchRecord {
	rec := MatchRecord{
		RoomID:  s.RoomID,
		MapName: string(s.MapName),
		EndedAt: s.EndedAt.UTC(),
		Players: make([]PlayerRecord, 0, len(s.Players)),
	}
	for _, p := range s.Players {
		rec.Players = append(rec.Players, PlayerRecord{
			PlayerID: p.ID,
			Name:     p.Name,
			Team:     string(p.Team),
			Kills:    p.Kills,
			Deaths:   p.Deaths,
		})
	}
	return rec
}
