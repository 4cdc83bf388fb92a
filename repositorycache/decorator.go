package repositorycache

import (
	"context"
	"fmt"
	"reflect"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-tagcache/cache"
	"github.com/goliatone/go-tagcache/cachetag"
	"github.com/uptrace/bun"
)

// Interface assertion to ensure CachedRepository implements Repository[T]
var _ repository.Repository[any] = (*CachedRepository[any])(nil)

// TagPrefix starts every tag the decorator derives on its own, keeping them
// apart from user and organization scoped tags.
const TagPrefix = "repo"

// listResult wraps the tuple result from List operations for caching
type listResult[T any] struct {
	Records []T `json:"records"`
	Total   int `json:"total"`
}

// CachedRepository decorates a base repository with tagged caching.
//
// Every read is registered under the namespace tag, the scope tags carried by
// the context (see WithCacheTags) and, for single record lookups, the record
// tag. Writes invalidate the namespace tag, the context scope tags and the
// tags of every written record once the base call succeeds. Writes made with
// a transaction hand their tags to the TagCollector in the context instead, so
// they can be invalidated after commit.
type CachedRepository[T any] struct {
	base          repository.Repository[T]
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	invalidator   cache.TagInvalidator
	namespace     string
	recordTags    func(T) []string
	onError       func(ctx context.Context, err error)
}

// Option customizes a CachedRepository.
type Option[T any] func(*CachedRepository[T])

// WithNamespace overrides the namespace derived from the record type name.
func WithNamespace[T any](namespace string) Option[T] {
	return func(c *CachedRepository[T]) {
		if namespace != "" {
			c.namespace = cachetag.SnakeCase(namespace)
		}
	}
}

// WithRecordTags adds tags derived from a written record, e.g. the
// organization scoped tag of the organization that owns it.
func WithRecordTags[T any](fn func(record T) []string) Option[T] {
	return func(c *CachedRepository[T]) {
		c.recordTags = fn
	}
}

// WithInvalidator routes invalidations through inv instead of the cache
// service, e.g. to broadcast them to other processes.
func WithInvalidator[T any](inv cache.TagInvalidator) Option[T] {
	return func(c *CachedRepository[T]) {
		if inv != nil {
			c.invalidator = inv
		}
	}
}

// WithErrorHandler receives invalidation failures. Writes have already
// succeeded when these happen, so they are not returned to the caller.
func WithErrorHandler[T any](fn func(ctx context.Context, err error)) Option[T] {
	return func(c *CachedRepository[T]) {
		if fn != nil {
			c.onError = fn
		}
	}
}

// New creates a new CachedRepository that wraps the base repository with caching
func New[T any](base repository.Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer, opts ...Option[T]) *CachedRepository[T] {
	c := &CachedRepository[T]{
		base:          base,
		cache:         cacheService,
		keySerializer: keySerializer,
		invalidator:   cacheService,
		namespace:     namespaceOf[T](),
		onError:       func(context.Context, error) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Namespace returns the namespace used in the decorator's own tags.
func (c *CachedRepository[T]) Namespace() string {
	return c.namespace
}

// NamespaceTag is registered by every read and invalidated by every write.
func (c *CachedRepository[T]) NamespaceTag() string {
	return TagPrefix + cachetag.Separator + c.namespace
}

// RecordTag identifies cached lookups of a single record by id.
func (c *CachedRepository[T]) RecordTag(id string) string {
	return c.NamespaceTag() + cachetag.Separator + "id" + cachetag.Separator + cachetag.EscapeID(id)
}

// IdentifierTag identifies cached lookups of a single record by identifier.
func (c *CachedRepository[T]) IdentifierTag(identifier string) string {
	return c.NamespaceTag() + cachetag.Separator + "identifier" + cachetag.Separator + cachetag.EscapeID(identifier)
}

// key serializes a read. Params from WithKeyParams follow the method's own
// arguments, so reads without them keep their keys.
func (c *CachedRepository[T]) key(ctx context.Context, method string, args ...any) string {
	if params := keyParamsFromContext(ctx); len(params) > 0 {
		args = append(args, params)
	}
	return c.keySerializer.SerializeKey(method, args...)
}

// Get retrieves a single record using the provided criteria, with caching
func (c *CachedRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	scope := cacheTagsFromContext(ctx)
	key := c.key(ctx, "Get", scope, criteria)
	return cache.GetOrFetch(ctx, c.cache, key, c.readTags(scope), func(ctx context.Context) (T, error) {
		return c.base.Get(ctx, criteria...)
	})
}

// GetByID retrieves a record by ID with optional criteria, with caching
func (c *CachedRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	scope := cacheTagsFromContext(ctx)
	key := c.key(ctx, "GetByID", scope, id, criteria)
	return cache.GetOrFetch(ctx, c.cache, key, c.readTags(scope, c.RecordTag(id)), func(ctx context.Context) (T, error) {
		return c.base.GetByID(ctx, id, criteria...)
	})
}

// List retrieves multiple records using the provided criteria, with caching
func (c *CachedRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	scope := cacheTagsFromContext(ctx)
	key := c.key(ctx, "List", scope, criteria)
	res, err := cache.GetOrFetch(ctx, c.cache, key, c.readTags(scope), func(ctx context.Context) (listResult[T], error) {
		records, total, err := c.base.List(ctx, criteria...)
		return listResult[T]{Records: records, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return res.Records, res.Total, nil
}

// Count returns the number of records matching the criteria, with caching
func (c *CachedRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	scope := cacheTagsFromContext(ctx)
	key := c.key(ctx, "Count", scope, criteria)
	return cache.GetOrFetch(ctx, c.cache, key, c.readTags(scope), func(ctx context.Context) (int, error) {
		return c.base.Count(ctx, criteria...)
	})
}

// GetByIdentifier retrieves a record by identifier with optional criteria, with caching
func (c *CachedRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	scope := cacheTagsFromContext(ctx)
	key := c.key(ctx, "GetByIdentifier", scope, identifier, criteria)
	return cache.GetOrFetch(ctx, c.cache, key, c.readTags(scope, c.IdentifierTag(identifier)), func(ctx context.Context) (T, error) {
		return c.base.GetByIdentifier(ctx, identifier, criteria...)
	})
}

// Create creates a new record and invalidates the tags it affects.
func (c *CachedRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := c.base.Create(ctx, record, criteria...)
	if err == nil {
		c.invalidate(ctx, c.writeTags(ctx, result))
	}
	return result, err
}

// CreateTx creates a new record within a transaction
func (c *CachedRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := c.base.CreateTx(ctx, tx, record, criteria...)
	if err == nil {
		c.invalidateTx(ctx, c.writeTags(ctx, result))
	}
	return result, err
}

// CreateMany creates multiple records
func (c *CachedRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := c.base.CreateMany(ctx, records, criteria...)
	if err == nil {
		c.invalidate(ctx, c.writeTags(ctx, result...))
	}
	return result, err
}

// CreateManyTx creates multiple records within a transaction
func (c *CachedRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := c.base.CreateManyTx(ctx, tx, records, criteria...)
	if err == nil {
		c.invalidateTx(ctx, c.writeTags(ctx, result...))
	}
	return result, err
}

// GetOrCreate gets a record or creates it if it doesn't exist. It may write,
// so it always invalidates.
func (c *CachedRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	result, err := c.base.GetOrCreate(ctx, record)
	if err == nil {
		c.invalidate(ctx, c.writeTags(ctx, result))
	}
	return result, err
}

// GetOrCreateTx gets a record or creates it if it doesn't exist within a transaction
func (c *CachedRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	result, err := c.base.GetOrCreateTx(ctx, tx, record)
	if err == nil {
		c.invalidateTx(ctx, c.writeTags(ctx, result))
	}
	return result, err
}

// Update updates a record
func (c *CachedRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.Update(ctx, record, criteria...)
	if err == nil {
		c.invalidate(ctx, c.writeTags(ctx, record, result))
	}
	return result, err
}

// UpdateTx updates a record within a transaction
func (c *CachedRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.UpdateTx(ctx, tx, record, criteria...)
	if err == nil {
		c.invalidateTx(ctx, c.writeTags(ctx, record, result))
	}
	return result, err
}

// UpdateMany updates multiple records
func (c *CachedRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpdateMany(ctx, records, criteria...)
	if err == nil {
		c.invalidate(ctx, c.writeTags(ctx, concat(records, result)...))
	}
	return result, err
}

// UpdateManyTx updates multiple records within a transaction
func (c *CachedRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpdateManyTx(ctx, tx, records, criteria...)
	if err == nil {
		c.invalidateTx(ctx, c.writeTags(ctx, concat(records, result)...))
	}
	return result, err
}

// Upsert inserts or updates a record
func (c *CachedRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.Upsert(ctx, record, criteria...)
	if err == nil {
		c.invalidate(ctx, c.writeTags(ctx, record, result))
	}
	return result, err
}

// UpsertTx inserts or updates a record within a transaction
func (c *CachedRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.UpsertTx(ctx, tx, record, criteria...)
	if err == nil {
		c.invalidateTx(ctx, c.writeTags(ctx, record, result))
	}
	return result, err
}

// UpsertMany inserts or updates multiple records
func (c *CachedRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpsertMany(ctx, records, criteria...)
	if err == nil {
		c.invalidate(ctx, c.writeTags(ctx, concat(records, result)...))
	}
	return result, err
}

// UpsertManyTx inserts or updates multiple records within a transaction
func (c *CachedRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpsertManyTx(ctx, tx, records, criteria...)
	if err == nil {
		c.invalidateTx(ctx, c.writeTags(ctx, concat(records, result)...))
	}
	return result, err
}

// Delete deletes a record
func (c *CachedRepository[T]) Delete(ctx context.Context, record T) error {
	err := c.base.Delete(ctx, record)
	if err == nil {
		c.invalidate(ctx, c.writeTags(ctx, record))
	}
	return err
}

// DeleteTx deletes a record within a transaction
func (c *CachedRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	err := c.base.DeleteTx(ctx, tx, record)
	if err == nil {
		c.invalidateTx(ctx, c.writeTags(ctx, record))
	}
	return err
}

// DeleteMany deletes multiple records based on criteria. The deleted records
// are unknown, so only the namespace and scope tags are invalidated.
func (c *CachedRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteMany(ctx, criteria...)
	if err == nil {
		c.invalidate(ctx, c.writeTags(ctx))
	}
	return err
}

// DeleteManyTx deletes multiple records based on criteria within a transaction
func (c *CachedRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteManyTx(ctx, tx, criteria...)
	if err == nil {
		c.invalidateTx(ctx, c.writeTags(ctx))
	}
	return err
}

// DeleteWhere deletes records based on criteria
func (c *CachedRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteWhere(ctx, criteria...)
	if err == nil {
		c.invalidate(ctx, c.writeTags(ctx))
	}
	return err
}

// DeleteWhereTx deletes records based on criteria within a transaction
func (c *CachedRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteWhereTx(ctx, tx, criteria...)
	if err == nil {
		c.invalidateTx(ctx, c.writeTags(ctx))
	}
	return err
}

// ForceDelete force deletes a record (bypassing soft delete)
func (c *CachedRepository[T]) ForceDelete(ctx context.Context, record T) error {
	err := c.base.ForceDelete(ctx, record)
	if err == nil {
		c.invalidate(ctx, c.writeTags(ctx, record))
	}
	return err
}

// ForceDeleteTx force deletes a record within a transaction (bypassing soft delete)
func (c *CachedRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	err := c.base.ForceDeleteTx(ctx, tx, record)
	if err == nil {
		c.invalidateTx(ctx, c.writeTags(ctx, record))
	}
	return err
}

// Reads inside a transaction bypass the cache: they may observe uncommitted
// writes that must never be shared.

// GetTx retrieves a single record using the provided criteria within a transaction
func (c *CachedRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetTx(ctx, tx, criteria...)
}

// GetByIDTx retrieves a record by ID with optional criteria within a transaction
func (c *CachedRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIDTx(ctx, tx, id, criteria...)
}

// ListTx retrieves multiple records using the provided criteria within a transaction
func (c *CachedRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	return c.base.ListTx(ctx, tx, criteria...)
}

// CountTx returns the number of records matching the criteria within a transaction
func (c *CachedRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	return c.base.CountTx(ctx, tx, criteria...)
}

// GetByIdentifierTx retrieves a record by identifier with optional criteria within a transaction
func (c *CachedRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIdentifierTx(ctx, tx, identifier, criteria...)
}

// Raw executes a raw SQL query and returns the results
func (c *CachedRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	return c.base.Raw(ctx, sql, args...)
}

// RawTx executes a raw SQL query within a transaction and returns the results
func (c *CachedRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	return c.base.RawTx(ctx, tx, sql, args...)
}

// Handlers returns the model handlers from the base repository
func (c *CachedRepository[T]) Handlers() repository.ModelHandlers[T] {
	return c.base.Handlers()
}

func (c *CachedRepository[T]) readTags(scope []string, extra ...string) []string {
	tags := make([]string, 0, len(scope)+len(extra)+1)
	tags = append(tags, c.NamespaceTag())
	tags = append(tags, scope...)
	tags = append(tags, extra...)
	return dedupeStrings(tags)
}

// writeTags collects the namespace tag, the context scope tags and the tags of
// every record.
func (c *CachedRepository[T]) writeTags(ctx context.Context, records ...T) []string {
	tags := []string{c.NamespaceTag()}
	tags = append(tags, cacheTagsFromContext(ctx)...)
	for _, record := range records {
		if id, err := c.extractID(record); err == nil && id != "" {
			tags = append(tags, c.RecordTag(id))
		}
		if identifier, err := c.extractIdentifier(record); err == nil && identifier != "" {
			tags = append(tags, c.IdentifierTag(identifier))
		}
		if c.recordTags != nil {
			tags = append(tags, c.recordTags(record)...)
		}
	}
	return dedupeStrings(tags)
}

func (c *CachedRepository[T]) invalidate(ctx context.Context, tags []string) {
	if len(tags) == 0 {
		return
	}
	if err := c.invalidator.InvalidateTags(ctx, tags...); err != nil {
		c.onError(ctx, err)
	}
}

// invalidateTx defers tags to the context collector. Without one the tags are
// invalidated immediately, before the caller commits.
func (c *CachedRepository[T]) invalidateTx(ctx context.Context, tags []string) {
	if collector := tagCollectorFromContext(ctx); collector != nil {
		collector.Collect(tags...)
		return
	}
	c.invalidate(ctx, tags)
}

// extractID attempts to extract an ID field from a record using reflection
func (c *CachedRepository[T]) extractID(record T) (string, error) {
	return extractField(record, "ID", "Id")
}

// extractIdentifier attempts to extract an identifier field from a record using reflection
func (c *CachedRepository[T]) extractIdentifier(record T) (string, error) {
	return extractField(record, "Identifier", "Code")
}

func extractField(record any, names ...string) (string, error) {
	v := reflect.ValueOf(record)
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return "", fmt.Errorf("nil record")
		}
		v = v.Elem()
	}
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return "", fmt.Errorf("record is not a struct")
	}

	for _, name := range names {
		field := v.FieldByName(name)
		if field.IsValid() && field.CanInterface() {
			return fmt.Sprintf("%v", field.Interface()), nil
		}
	}
	return "", fmt.Errorf("no %v field found in record", names)
}

func concat[T any](a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func namespaceOf[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		name = t.String()
	}
	return cachetag.SnakeCase(name)
}
