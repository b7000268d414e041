package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// Record is one stored render: which dataset and plot kind produced it, the
// request parameters as JSON, and where the artifacts landed.
type Record struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	Dataset   string         `gorm:"index;size:128" json:"dataset"`
	Kind      string         `gorm:"index;size:32" json:"kind"`
	Params    datatypes.JSON `json:"params"`
	HTMLPath  string         `json:"html_path,omitempty"`
	PNGPath   string         `json:"png_path,omitempty"`
	Degraded  bool           `json:"degraded"`
	CreatedAt time.Time      `json:"created_at"`
}

func (Record) TableName() string { return "renders" }

// Store persists the plot gallery in SQLite via gorm.
type Store struct {
	db *gorm.DB
}

// New opens (and if needed creates) the gallery database.
func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gallery store: path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(&sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Save assigns the record an ID if it has none and inserts it.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("gallery store: record cannot be nil")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

// Get fetches one render by ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns the newest renders, optionally filtered by dataset.
func (s *Store) List(ctx context.Context, dataset string, limit int) ([]Record, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if dataset != "" {
		q = q.Where("dataset = ?", dataset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []Record
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeParams marshals arbitrary request parameters into the JSON column.
func EncodeParams(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
