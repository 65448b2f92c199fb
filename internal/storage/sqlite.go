//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/nlouis56/vroume/pkg/models"
	"github.com/nlouis56/vroume/pkg/utils"
)

const DefaultDBFile = "vroume.sqlite3"
const errDBClientNil = "db client is nil"

// Run statuses
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Correspondence is one anonymized file.
type Correspondence struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	OldName   string `gorm:"index:idx_old_name" json:"old_name"`
	NewName   string `gorm:"uniqueIndex:idx_new_name" json:"new_name"`
	Genre     string `gorm:"index:idx_genre" json:"genre"`
	CreatedAt time.Time
}

// Run is one invocation of a pipeline stage.
type Run struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	Stage      string `gorm:"index:idx_stage"`
	Input      string
	Output     string
	RowsIn     int
	RowsOut    int
	Removed    int
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// RunStats are the counters recorded when a run finishes.
type RunStats struct {
	RowsIn  int
	RowsOut int
	Removed int
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("VROUME_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// sqlite serializes writers; one connection avoids lock contention
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Correspondence{}, &Run{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *DBClient) ready() error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return nil
}

// SaveCorrespondence stores entries; an entry whose new_name is already
// stored replaces the old mapping.
func (c *DBClient) SaveCorrespondence(entries []models.CorrespondenceEntry) error {
	if err := c.ready(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	rows := make([]Correspondence, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Correspondence{
			ID:      utils.GenerateUUID(),
			OldName: e.OldName,
			NewName: e.NewName,
			Genre:   e.Genre,
		})
	}
	err := c.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "new_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"old_name", "genre"}),
	}).CreateInBatches(rows, 500).Error
	if err != nil {
		return fmt.Errorf("storing correspondence: %w", err)
	}
	return nil
}

// ListCorrespondence returns every stored mapping, optionally for one genre.
func (c *DBClient) ListCorrespondence(genre string) ([]models.CorrespondenceEntry, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var rows []Correspondence
	q := c.DB.Order("genre, new_name")
	if genre != "" {
		q = q.Where("genre = ?", genre)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing correspondence: %w", err)
	}
	out := make([]models.CorrespondenceEntry, len(rows))
	for i, r := range rows {
		out[i] = models.CorrespondenceEntry{OldName: r.OldName, NewName: r.NewName, Genre: r.Genre}
	}
	return out, nil
}

// NewNames returns the set of anonymized names already handed out.
func (c *DBClient) NewNames() (map[string]bool, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var names []string
	if err := c.DB.Model(&Correspondence{}).Pluck("new_name", &names).Error; err != nil {
		return nil, fmt.Errorf("listing names: %w", err)
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}

// StartRun records the start of a stage and returns its ID.
func (c *DBClient) StartRun(stage, input, output string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	run := Run{
		ID:        utils.GenerateUUID(),
		Stage:     stage,
		Input:     input,
		Output:    output,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	if err := c.DB.Create(&run).Error; err != nil {
		return "", fmt.Errorf("creating run: %w", err)
	}
	return run.ID, nil
}

// FinishRun closes a run with its counters. A non-nil runErr marks it failed.
func (c *DBClient) FinishRun(id string, stats RunStats, runErr error) error {
	if err := c.ready(); err != nil {
		return err
	}
	now := time.Now()
	updates := map[string]any{
		"rows_in":     stats.RowsIn,
		"rows_out":    stats.RowsOut,
		"removed":     stats.Removed,
		"status":      StatusDone,
		"finished_at": &now,
	}
	if runErr != nil {
		updates["status"] = StatusFailed
		updates["error"] = runErr.Error()
	}
	res := c.DB.Model(&Run{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("finishing run %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("finishing run %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs first, optionally for one stage.
func (c *DBClient) ListRuns(stage string, limit int) ([]Run, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var runs []Run
	q := c.DB.Order("started_at desc")
	if stage != "" {
		q = q.Where("stage = ?", stage)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}
