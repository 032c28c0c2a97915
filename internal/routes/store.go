package routes

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yairtitelboim/Maps-sub002/internal/config"
	"github.com/yairtitelboim/Maps-sub002/internal/core"
)

// Store is a source of route records.
type Store interface {
	Init() error
	Save(record *RouteRecord) error
	All() ([]RouteRecord, error)
	Close() error
}

// New creates the store named by the config. Unknown types fall back
// to the in-memory backend.
func New(log zerolog.Logger, cfg config.RoutesConfig) (Store, error) {
	switch cfg.Type {
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			viper.GetString("db.host"),
			viper.GetString("db.port"),
			viper.GetString("db.username"),
			viper.GetString("db.password"),
			viper.GetString("db.database"),
		)
		log.Info().Msg("Postgres routes store initialized")
		return newGormStore(postgres.Open(dsn)), nil

	case "sqlite":
		log.Info().Str("path", cfg.Path).Msg("SQLite routes store initialized")
		return newGormStore(sqlite.Open(cfg.Path)), nil

	default:
		log.Info().Msg("Memory routes store initialized")
		return NewMemory(), nil
	}
}

type gormStore struct {
	dialector gorm.Dialector
	db        *gorm.DB
}

func newGormStore(dialector gorm.Dialector) *gormStore {
	return &gormStore{dialector: dialector}
}

func (s *gormStore) Init() error {
	db, err := gorm.Open(s.dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("error opening routes database: %w", err)
	}
	if err := db.AutoMigrate(&RouteRecord{}); err != nil {
		return fmt.Errorf("error migrating routes schema: %w", err)
	}
	s.db = db
	return nil
}

func (s *gormStore) Save(record *RouteRecord) error {
	if s.db == nil {
		return fmt.Errorf("routes store not initialized")
	}
	return s.db.Create(record).Error
}

func (s *gormStore) All() ([]RouteRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("routes store not initialized")
	}
	var records []RouteRecord
	if err := s.db.Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *gormStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Load reads every record and converts it, skipping malformed rows so
// one bad geometry does not block the rest of a dataset.
func Load(log zerolog.Logger, store Store) ([]core.Route, error) {
	records, err := store.All()
	if err != nil {
		return nil, err
	}

	out := make([]core.Route, 0, len(records))
	skipped := 0
	for _, rec := range records {
		route, err := rec.ToRoute()
		if err != nil {
			skipped++
			log.Warn().Err(err).Uint("id", rec.ID).Msg("skipping malformed route")
			continue
		}
		out = append(out, route)
	}
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Int("loaded", len(out)).Msg("route load finished with errors")
	}
	return out, nil
}
