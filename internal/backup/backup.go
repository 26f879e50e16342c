// Package backup takes encrypted snapshots of the server database and keeps
// them in S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	_ "modernc.org/sqlite"
)

const (
	keyPrefix  = "choreo/"
	keySuffix  = ".db.enc"
	timeLayout = "2006-01-02T150405Z"
)

var ErrDisabled = errors.New("backups are not configured")

// s3Client is the subset of *s3.Client the manager uses.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Config holds backup settings. A zero Interval disables the schedule; a
// zero Retention keeps every backup.
type Config struct {
	S3         S3Config
	Passphrase string
	Interval   time.Duration
	Retention  time.Duration
}

// Enabled reports whether storage and a passphrase are configured.
func (c Config) Enabled() bool {
	return c.S3.complete() && c.Passphrase != ""
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Object is one stored backup.
type Object struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager runs backups on a schedule and on demand. Only one backup runs at
// a time.
type Manager struct {
	cfg    Config
	db     *sql.DB
	client s3Client
	logger *slog.Logger

	run sync.Mutex

	mu     sync.RWMutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, db *sql.DB, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:    cfg,
		db:     db,
		logger: logger.With("component", "backup"),
		status: Status{State: StateDisabled},
	}
	if cfg.Enabled() {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Start begins the scheduled backup loop. It is a no-op when backups are
// disabled or no interval is set.
func (m *Manager) Start(ctx context.Context) {
	if m.client == nil || m.cfg.Interval <= 0 {
		return
	}
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.scheduled(ctx)
			}
		}
	}()
	m.logger.Info("backup schedule started", "interval", m.cfg.Interval, "retention", m.cfg.Retention)
}

// Stop ends the schedule and waits for a running backup to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if s.LastBackup == nil {
		s.LastBackup = m.status.LastBackup
	}
	m.status = s
	m.mu.Unlock()
}

func (m *Manager) scheduled(ctx context.Context) {
	if _, err := m.RunNow(ctx); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
		return
	}
	if n, err := m.Cleanup(ctx); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	} else if n > 0 {
		m.logger.Info("deleted old backups", "count", n)
	}
}

// RunNow snapshots the database, encrypts it and uploads it. It returns the
// object key.
func (m *Manager) RunNow(ctx context.Context) (string, error) {
	if m.client == nil {
		return "", ErrDisabled
	}
	m.run.Lock()
	defer m.run.Unlock()

	m.setStatus(Status{State: StateRunning})
	key, size, err := m.backup(ctx)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return "", err
	}
	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup uploaded", "key", key, "bytes", size)
	return key, nil
}

func (m *Manager) backup(ctx context.Context) (string, int64, error) {
	snapshot, err := m.snapshot(ctx)
	if err != nil {
		return "", 0, err
	}
	enc, err := Encrypt(snapshot, m.cfg.Passphrase)
	if err != nil {
		return "", 0, fmt.Errorf("encrypt: %w", err)
	}

	key := keyPrefix + "backup-" + time.Now().UTC().Format(timeLayout) + keySuffix
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(enc),
		ContentLength: aws.Int64(int64(len(enc))),
	})
	if err != nil {
		return "", 0, fmt.Errorf("upload to s3: %w", err)
	}
	return key, int64(len(enc)), nil
}

// snapshot writes a consistent copy of the live database with VACUUM INTO
// and reads it back.
func (m *Manager) snapshot(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "choreo-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return nil, fmt.Errorf("snapshot database: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// List returns the stored backups, newest first.
func (m *Manager) List(ctx context.Context) ([]Object, error) {
	if m.client == nil {
		return nil, ErrDisabled
	}
	var (
		out   []Object
		token *string
	)
	for {
		page, err := m.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(m.cfg.S3.Bucket),
			Prefix:            aws.String(keyPrefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list backups: %w", err)
		}
		for _, obj := range page.Contents {
			if o, ok := toObject(obj); ok {
				out = append(out, o)
			}
		}
		if !aws.ToBool(page.IsTruncated) || page.NextContinuationToken == nil {
			break
		}
		token = page.NextContinuationToken
	}
	slices.SortFunc(out, func(a, b Object) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

// toObject reads the creation time from the key. Foreign keys are skipped.
func toObject(obj types.Object) (Object, bool) {
	key := aws.ToString(obj.Key)
	stamp, ok := strings.CutPrefix(key, keyPrefix+"backup-")
	if !ok {
		return Object{}, false
	}
	stamp, ok = strings.CutSuffix(stamp, keySuffix)
	if !ok {
		return Object{}, false
	}
	created, err := time.Parse(timeLayout, stamp)
	if err != nil {
		return Object{}, false
	}
	return Object{Key: key, Size: aws.ToInt64(obj.Size), CreatedAt: created}, true
}

// Cleanup deletes backups older than the retention period and returns how
// many were removed. The newest backup is always kept.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	if m.client == nil || m.cfg.Retention <= 0 {
		return 0, nil
	}
	objs, err := m.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().UTC().Add(-m.cfg.Retention)
	deleted := 0
	for i, o := range objs {
		if i == 0 || !o.CreatedAt.Before(cutoff) {
			continue
		}
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(o.Key),
		}); err != nil {
			m.logger.Warn("delete backup object", "key", o.Key, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// Restore downloads and decrypts the backup at key, checks its integrity
// and writes it to dstPath. The server must not be using dstPath.
func (m *Manager) Restore(ctx context.Context, key, dstPath string) error {
	if m.client == nil {
		return ErrDisabled
	}
	res, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	defer res.Body.Close()
	enc, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	plain, err := Decrypt(enc, m.cfg.Passphrase)
	if err != nil {
		return fmt.Errorf("decrypt backup: %w", err)
	}

	tmp := dstPath + ".restore"
	if err := os.WriteFile(tmp, plain, 0o600); err != nil {
		return fmt.Errorf("write restored db: %w", err)
	}
	if err := checkIntegrity(ctx, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dstPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace database: %w", err)
	}
	os.Remove(dstPath + "-wal")
	os.Remove(dstPath + "-shm")
	m.logger.Info("backup restored", "key", key, "path", dstPath)
	return nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()
	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
