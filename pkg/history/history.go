// Package history keeps a sqlite log of chat traffic.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// DefaultPath is where clients keep their log
const DefaultPath = "etc/airchat/history.db"

// Store wraps the GORM database instance
type Store struct {
	db *gorm.DB
}

type glogWriter struct{}

func (glogWriter) Printf(format string, args ...interface{}) {
	glog.Warningf(format, args...)
}

// Open creates or opens the log at path. ":memory:" keeps it in RAM.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	}

	gormLog := logger.New(glogWriter{}, logger.Config{
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})

	dialector := sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a shared connection also keeps :memory: whole
	sqlDB.SetMaxOpenConns(1)
	if err := configureSQLite(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to configure %s: %w", path, err)
	}

	if err := db.AutoMigrate(&Message{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
	}
	glog.V(1).Infof("history opened: %s", path)
	return &Store{db: db}, nil
}

func configureSQLite(sqlDB *sql.DB) error {
	pragmaSettings := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmaSettings {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return err
		}
	}
	return nil
}

// Record appends a message and fills in its ID and timestamp
func (s *Store) Record(m *Message) error {
	if err := s.db.Create(m).Error; err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return nil
}

// Recent returns up to n messages, oldest first
func (s *Store) Recent(n int) ([]Message, error) {
	var msgs []Message
	err := s.db.Order("id DESC").Limit(n).Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// ByUser returns up to n of a user's messages, oldest first
func (s *Store) ByUser(user string, n int) ([]Message, error) {
	var msgs []Message
	err := s.db.Where(&Message{User: user}).Order("id DESC").Limit(n).Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("query messages for %s: %w", user, err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Count returns the number of logged messages
func (s *Store) Count() (int64, error) {
	var n int64
	err := s.db.Model(&Message{}).Count(&n).Error
	return n, err
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
