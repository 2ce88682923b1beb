package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yndnr/shardkv/internal/core/domain"
	"github.com/yndnr/shardkv/internal/storage/memory"
	"github.com/yndnr/shardkv/internal/storage/snapshot"
	"github.com/yndnr/shardkv/internal/telemetry/logger"
	"github.com/yndnr/shardkv/internal/telemetry/metric"
	"github.com/yndnr/shardkv/pkg/cmap"
)

// Store is the storage dependency of KVService. memory.Store implements it.
type Store interface {
	TryAdd(key, value string) bool
	TryGet(key string) (string, bool)
	TryUpdate(key, value string) bool
	TryRemove(key string) bool

	AddMany(entries map[string]string) memory.BulkResult
	UpdateMany(entries map[string]string) memory.BulkResult
	RemoveMany(keys []string) memory.BulkResult

	Snapshot() map[string]string
	ClearAll()
	Len() int
	ShardCount() int
	ShardStats() []cmap.ShardStats

	Dump(path string) (*snapshot.Info, error)
	Load(path string) (*snapshot.Info, error)
}

// Operation names used in metrics and logs.
const (
	OpAdd        = "add"
	OpGet        = "get"
	OpUpdate     = "update"
	OpRemove     = "remove"
	OpAddMany    = "add_many"
	OpUpdateMany = "update_many"
	OpRemoveMany = "remove_many"
	OpGetAll     = "get_all"
	OpClearAll   = "clear_all"
	OpDump       = "dump"
	OpLoad       = "load"
)

// KVService exposes the store's operations with validation, error mapping,
// metrics and logging.
type KVService struct {
	store   Store
	dataDir string
	metrics *metric.Registry
	logger  logger.Logger
}

// Option configures a KVService.
type Option func(*KVService)

// WithDataDir sets the directory relative dump and load paths resolve against.
func WithDataDir(dir string) Option {
	return func(s *KVService) {
		s.dataDir = dir
	}
}

// WithMetrics sets the metrics registry. Without it nothing is recorded.
func WithMetrics(r *metric.Registry) Option {
	return func(s *KVService) {
		s.metrics = r
	}
}

// WithLogger sets the logger. Defaults to logger.Default().
func WithLogger(l logger.Logger) Option {
	return func(s *KVService) {
		s.logger = l
	}
}

// NewKVService creates a KVService over store.
func NewKVService(store Store, opts ...Option) *KVService {
	s := &KVService{
		store:   store,
		dataDir: ".",
		logger:  logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *KVService) log(ctx context.Context) logger.Logger {
	return s.logger.WithContext(ctx)
}

// ============================================================================
// Single-key Operations
// ============================================================================

// Add stores value under key. Returns domain.ErrKeyExists if the key is
// already present.
func (s *KVService) Add(ctx context.Context, key, value string) error {
	if err := validateEntry(key, value); err != nil {
		return err
	}
	if !s.store.TryAdd(key, value) {
		s.metrics.RecordOperation(OpAdd, metric.ResultConflict)
		return domain.ErrKeyExists.WithDetails("key=" + key)
	}
	s.metrics.RecordOperation(OpAdd, metric.ResultOK)
	s.log(ctx).Debug("key added", "key", key, "value", value)
	return nil
}

// Get returns the value stored under key, or domain.ErrKeyNotFound.
func (s *KVService) Get(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", domain.ErrInvalidKey.WithDetails("key must not be empty")
	}
	v, ok := s.store.TryGet(key)
	if !ok {
		s.metrics.RecordOperation(OpGet, metric.ResultMiss)
		return "", domain.ErrKeyNotFound.WithDetails("key=" + key)
	}
	s.metrics.RecordOperation(OpGet, metric.ResultOK)
	return v, nil
}

// Update replaces the value of an existing key, or returns
// domain.ErrKeyNotFound.
func (s *KVService) Update(ctx context.Context, key, value string) error {
	if err := validateEntry(key, value); err != nil {
		return err
	}
	if !s.store.TryUpdate(key, value) {
		s.metrics.RecordOperation(OpUpdate, metric.ResultMiss)
		return domain.ErrKeyNotFound.WithDetails("key=" + key)
	}
	s.metrics.RecordOperation(OpUpdate, metric.ResultOK)
	s.log(ctx).Debug("key updated", "key", key, "value", value)
	return nil
}

// Remove deletes key, or returns domain.ErrKeyNotFound.
func (s *KVService) Remove(ctx context.Context, key string) error {
	if key == "" {
		return domain.ErrInvalidKey.WithDetails("key must not be empty")
	}
	if !s.store.TryRemove(key) {
		s.metrics.RecordOperation(OpRemove, metric.ResultMiss)
		return domain.ErrKeyNotFound.WithDetails("key=" + key)
	}
	s.metrics.RecordOperation(OpRemove, metric.ResultOK)
	s.log(ctx).Debug("key removed", "key", key)
	return nil
}

// ============================================================================
// Bulk Operations
// ============================================================================

// AddMany adds every entry whose key is absent.
//
// The result is always returned, also alongside domain.ErrKeysExist when no
// key could be added, so callers can report which keys were skipped.
func (s *KVService) AddMany(ctx context.Context, entries map[string]string) (memory.BulkResult, error) {
	if err := validateEntries(entries); err != nil {
		return memory.BulkResult{Failed: []string{}}, err
	}
	res := s.store.AddMany(entries)
	s.recordBulk(OpAddMany, metric.ResultConflict, res)
	s.log(ctx).Debug("bulk add", "added", res.Count, "skipped", len(res.Failed))

	if res.Count == 0 {
		return res, domain.ErrKeysExist.WithDetails(fmt.Sprintf("%d keys already exist", len(res.Failed)))
	}
	return res, nil
}

// UpdateMany updates every entry whose key is present. Returns
// domain.ErrKeysNotFound together with the result when nothing was updated.
func (s *KVService) UpdateMany(ctx context.Context, entries map[string]string) (memory.BulkResult, error) {
	if err := validateEntries(entries); err != nil {
		return memory.BulkResult{Failed: []string{}}, err
	}
	res := s.store.UpdateMany(entries)
	s.recordBulk(OpUpdateMany, metric.ResultMiss, res)
	s.log(ctx).Debug("bulk update", "updated", res.Count, "absent", len(res.Failed))

	if res.Count == 0 {
		return res, domain.ErrKeysNotFound.WithDetails(fmt.Sprintf("%d keys absent", len(res.Failed)))
	}
	return res, nil
}

// RemoveMany removes every listed key that is present. Returns
// domain.ErrKeysNotFound together with the result when nothing was removed.
func (s *KVService) RemoveMany(ctx context.Context, keys []string) (memory.BulkResult, error) {
	if len(keys) == 0 {
		return memory.BulkResult{Failed: []string{}}, domain.ErrInvalidRequest.WithDetails("no keys given")
	}
	for _, k := range keys {
		if k == "" {
			return memory.BulkResult{Failed: []string{}}, domain.ErrInvalidKey.WithDetails("key must not be empty")
		}
	}
	res := s.store.RemoveMany(keys)
	s.recordBulk(OpRemoveMany, metric.ResultMiss, res)
	s.log(ctx).Debug("bulk remove", "removed", res.Count, "absent", len(res.Failed))

	if res.Count == 0 {
		return res, domain.ErrKeysNotFound.WithDetails(fmt.Sprintf("%d keys absent", len(res.Failed)))
	}
	return res, nil
}

func validateEntries(entries map[string]string) error {
	if len(entries) == 0 {
		return domain.ErrInvalidRequest.WithDetails("no entries given")
	}
	for k, v := range entries {
		if err := validateEntry(k, v); err != nil {
			return err
		}
	}
	return nil
}

// validateEntry admits only what a dump can reproduce exactly.
func validateEntry(key, value string) error {
	if err := domain.ValidateKey(key); err != nil {
		return err
	}
	return domain.ValidateValue(value)
}

func (s *KVService) recordBulk(op, failResult string, res memory.BulkResult) {
	result := metric.ResultOK
	if res.Count == 0 {
		result = failResult
	}
	s.metrics.RecordOperation(op, result)
	s.metrics.RecordBulkKeys(op, metric.ResultOK, res.Count)
	s.metrics.RecordBulkKeys(op, failResult, len(res.Failed))
}

// ============================================================================
// Whole-store Operations
// ============================================================================

// GetAll returns a copy of every entry.
func (s *KVService) GetAll(_ context.Context) map[string]string {
	s.metrics.RecordOperation(OpGetAll, metric.ResultOK)
	return s.store.Snapshot()
}

// ClearAll removes every entry and reports whether the store held any
// entries beforehand. The count is taken before clearing, so a write that
// races with the call may be counted or cleared either way.
func (s *KVService) ClearAll(ctx context.Context) bool {
	had := s.store.Len()
	s.store.ClearAll()

	if had == 0 {
		s.metrics.RecordOperation(OpClearAll, metric.ResultMiss)
		return false
	}
	s.metrics.RecordOperation(OpClearAll, metric.ResultOK)
	s.log(ctx).Info("store cleared", "entries", had)
	return true
}

// Len returns the number of entries.
func (s *KVService) Len() int {
	return s.store.Len()
}

// ShardCount returns the number of shards.
func (s *KVService) ShardCount() int {
	return s.store.ShardCount()
}

// ShardStats returns the entry count of every shard.
func (s *KVService) ShardStats(_ context.Context) []cmap.ShardStats {
	return s.store.ShardStats()
}

// ============================================================================
// Persistence
// ============================================================================

// ResolvePath returns path unchanged when absolute, or joined to the data
// directory otherwise.
func (s *KVService) ResolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", domain.ErrInvalidPath.WithDetails("path must not be empty")
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Join(s.dataDir, path), nil
}

// Dump writes the store to path.
func (s *KVService) Dump(ctx context.Context, path string) (*snapshot.Info, error) {
	resolved, err := s.ResolvePath(path)
	if err != nil {
		return nil, err
	}

	info, err := s.store.Dump(resolved)
	if err != nil {
		s.metrics.RecordOperation(OpDump, metric.ResultError)
		s.log(ctx).Error("dump failed", "path", resolved, "error", err)
		return nil, domain.ErrInternal.WithDetails("dump failed").WithCause(err)
	}

	s.metrics.RecordOperation(OpDump, metric.ResultOK)
	s.metrics.ObserveSnapshot(OpDump, info.Duration, info.Size)
	s.log(ctx).Info("dump written",
		"path", info.Path,
		"entries", info.Entries,
		"bytes", info.Size,
		"duration", info.Duration,
	)
	return info, nil
}

// Load replaces the store's contents with the dump at path.
//
// A missing file yields domain.ErrDumpNotFound and a malformed one
// domain.ErrDumpCorrupt. In both cases the store is unchanged.
func (s *KVService) Load(ctx context.Context, path string) (*snapshot.Info, error) {
	resolved, err := s.ResolvePath(path)
	if err != nil {
		return nil, err
	}

	info, err := s.store.Load(resolved)
	if err != nil {
		switch {
		case errors.Is(err, snapshot.ErrNotFound):
			s.metrics.RecordOperation(OpLoad, metric.ResultMiss)
			s.log(ctx).Warn("dump not found", "path", resolved)
			return nil, domain.ErrDumpNotFound.WithDetails(resolved).WithCause(err)
		case errors.Is(err, snapshot.ErrCorrupt):
			s.metrics.RecordOperation(OpLoad, metric.ResultError)
			s.log(ctx).Warn("dump corrupt", "path", resolved, "error", err)
			return nil, domain.ErrDumpCorrupt.WithDetails(err.Error()).WithCause(err)
		default:
			s.metrics.RecordOperation(OpLoad, metric.ResultError)
			s.log(ctx).Error("load failed", "path", resolved, "error", err)
			return nil, domain.ErrInternal.WithDetails("load failed").WithCause(err)
		}
	}

	s.metrics.RecordOperation(OpLoad, metric.ResultOK)
	s.metrics.ObserveSnapshot(OpLoad, info.Duration, info.Size)
	s.log(ctx).Info("dump loaded",
		"path", info.Path,
		"entries", info.Entries,
		"bytes", info.Size,
		"duration", info.Duration,
	)
	return info, nil
}
