// Package storage persists the bot's logical tables as JSON documents,
// either in a Cloud Storage bucket or a local directory.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/iterator"

	"gagstock-notifier/pkg/tracker"
)

const (
	tablePrefix         = "table-"
	subscribersTable    = "subscribers"
	accessRequestsTable = "access-requests"
)

// ErrNotExist is returned when a table document has never been written.
var ErrNotExist = errors.New("storage: object doesn't exist")

// IsNotFound reports whether an error indicates a missing table document,
// including errors wrapped by the retry layer.
func IsNotFound(err error) bool {
	return err != nil && (errors.Is(err, ErrNotExist) || strings.Contains(err.Error(), ErrNotExist.Error()))
}

// Store writes each logical table wholesale as one JSON document. Flushes
// are not append logs and carry no atomic-rename guarantee.
type Store struct {
	client    *storage.Client
	logger    *slog.Logger
	localPath string
	bucket    string
}

// New creates a store. With a non-empty localPath the bucket client is
// ignored and documents live on the local filesystem.
func New(client *storage.Client, bucket, localPath string, logger *slog.Logger) *Store {
	return &Store{
		client:    client,
		bucket:    bucket,
		localPath: localPath,
		logger:    logger,
	}
}

func tableKey(name string) string {
	return fmt.Sprintf("%s%s.json", tablePrefix, name)
}

// SaveSubscribers rewrites the subscriber table.
func (s *Store) SaveSubscribers(ctx context.Context, subs map[string]*tracker.Subscriber) error {
	return s.saveDoc(ctx, subscribersTable, subs)
}

// LoadSubscribers reads the subscriber table. A missing document yields an
// empty table, not an error.
func (s *Store) LoadSubscribers(ctx context.Context) (map[string]*tracker.Subscriber, error) {
	subs := make(map[string]*tracker.Subscriber)
	if err := s.loadDoc(ctx, subscribersTable, &subs); err != nil {
		if IsNotFound(err) {
			return subs, nil
		}
		return nil, err
	}
	return subs, nil
}

// SaveAccessRequests rewrites the pending access-request table.
func (s *Store) SaveAccessRequests(ctx context.Context, reqs map[string]*tracker.AccessRequest) error {
	return s.saveDoc(ctx, accessRequestsTable, reqs)
}

// LoadAccessRequests reads the pending access-request table.
func (s *Store) LoadAccessRequests(ctx context.Context) (map[string]*tracker.AccessRequest, error) {
	reqs := make(map[string]*tracker.AccessRequest)
	if err := s.loadDoc(ctx, accessRequestsTable, &reqs); err != nil {
		if IsNotFound(err) {
			return reqs, nil
		}
		return nil, err
	}
	return reqs, nil
}

func (s *Store) saveDoc(ctx context.Context, table string, v any) error {
	key := tableKey(table)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", table, err)
	}

	// Local filesystem storage
	if s.localPath != "" {
		filePath := filepath.Join(s.localPath, key)
		if err := os.WriteFile(filePath, data, 0o600); err != nil {
			return fmt.Errorf("write to local storage: %w", err)
		}
		s.logger.Debug("Table saved to local storage", "path", filePath, "bytes", len(data))
		return nil
	}

	// Cloud Storage with retry logic for reliability
	err = retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying save operation after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("save after retries: %w", err)
	}

	s.logger.Debug("Table saved", "key", key, "bytes", len(data))
	return nil
}

func (s *Store) loadDoc(ctx context.Context, table string, v any) error {
	key := tableKey(table)

	var data []byte

	// Local filesystem storage
	if s.localPath != "" {
		var err error
		data, err = os.ReadFile(filepath.Join(s.localPath, key))
		if err != nil {
			if os.IsNotExist(err) {
				return ErrNotExist
			}
			return fmt.Errorf("read from local storage: %w", err)
		}
	} else {
		// Cloud Storage with retry logic for reliability
		err := retry.Do(
			func() error {
				r, openErr := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
				if openErr != nil {
					if errors.Is(openErr, storage.ErrObjectNotExist) {
						return retry.Unrecoverable(ErrNotExist)
					}
					return fmt.Errorf("open storage reader: %w", openErr)
				}
				defer func() {
					if closeErr := r.Close(); closeErr != nil {
						s.logger.Warn("Failed to close storage reader", "error", closeErr)
					}
				}()

				var readErr error
				data, readErr = io.ReadAll(r)
				if readErr != nil {
					return fmt.Errorf("read from storage: %w", readErr)
				}
				return nil
			},
			retry.Attempts(3),
			retry.Delay(time.Second),
			retry.MaxDelay(2*time.Minute),
			retry.MaxJitter(10*time.Second),
			retry.Context(ctx),
			retry.OnRetry(func(n uint, retryErr error) {
				s.logger.Info("Retrying load operation after error", "attempt", n, "key", key, "error", retryErr)
			}),
		)
		if err != nil {
			if IsNotFound(err) {
				return ErrNotExist
			}
			return fmt.Errorf("load after retries: %w", err)
		}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", table, err)
	}
	return nil
}

// Tables lists the table documents currently persisted. Used at startup to
// log what state is being restored.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	var tables []string

	// Local filesystem storage
	if s.localPath != "" {
		entries, err := os.ReadDir(s.localPath)
		if err != nil {
			return nil, fmt.Errorf("read local storage directory: %w", err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasPrefix(name, tablePrefix) || !strings.HasSuffix(name, ".json") {
				continue
			}
			tables = append(tables, strings.TrimSuffix(strings.TrimPrefix(name, tablePrefix), ".json"))
		}
		return tables, nil
	}

	// Cloud Storage
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{
		Prefix: tablePrefix,
	})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate storage: %w", err)
		}
		tables = append(tables, strings.TrimSuffix(strings.TrimPrefix(attrs.Name, tablePrefix), ".json"))
	}

	return tables, nil
}
