package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"persondir/internal/audit"
	"persondir/internal/directory/metrics"
	"persondir/internal/directory/models"
	"persondir/internal/directory/store"
	"persondir/internal/directory/validation"
	"persondir/pkg/attrs"
	dErrors "persondir/pkg/domain-errors"
	"persondir/pkg/platform/sentinel"
	"persondir/pkg/requestcontext"
)

const tracerName = "persondir/directory"

// Store is the in-memory mapping the service owns.
type Store interface {
	Put(ctx context.Context, rec *models.Record) error
	Create(ctx context.Context, rec *models.Record) error
	Update(ctx context.Context, rec *models.Record) error
	Delete(ctx context.Context, id string) (*models.Record, error)
	FindByID(ctx context.Context, id string) (*models.Record, error)
	FindByName(ctx context.Context, name string) (*models.Record, error)
	List(ctx context.Context) ([]*models.Record, error)
	Names(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
}

// Sink is where the full directory snapshot is read from at startup and
// written back after every mutation.
type Sink interface {
	ReadAll(ctx context.Context) ([]json.RawMessage, error)
	WriteAll(ctx context.Context, records []*models.Record) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns the record directory: startup load, lookups, and mutations
// paired with a persistence write.
//
// Mutations hold mu exclusively across the store change and the sink write;
// lookups hold it shared, so a record is never observed between the two.
type Service struct {
	mu             sync.RWMutex
	records        Store
	sink           Sink
	persist        bool
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPersistence turns sink writes on or off. Test mode passes false: the
// directory still loads from the sink but mutations stay in memory.
func WithPersistence(enabled bool) Option {
	return func(s *Service) {
		s.persist = enabled
	}
}

// New constructs a Service. Persistence is enabled unless WithPersistence(false)
// is passed.
func New(records Store, sink Sink, opts ...Option) *Service {
	s := &Service{
		records: records,
		sink:    sink,
		persist: true,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fills the directory from the sink. It never fails: an unreadable or
// malformed source leaves the directory empty and is reported in
// LoadReport.SourceErr; individual invalid records are skipped.
func (s *Service) Load(ctx context.Context) models.LoadReport {
	ctx, span := s.tracer.Start(ctx, "directory.Load")
	defer span.End()

	var report models.LoadReport
	raw, err := s.sink.ReadAll(ctx)
	if err != nil {
		report.SourceErr = err
		span.RecordError(err)
		s.logWarn(ctx, "directory source unavailable, starting empty",
			"reason", sourceReason(err), "error", err)
		return report
	}

	for i, item := range raw {
		rec, rejection := decodeRecord(i, item)
		if rejection == nil {
			if err := s.LoadOne(ctx, rec); err != nil {
				rejection = &models.Rejection{Index: i, ID: rec.ID, Name: rec.Name, Reason: dErrors.MessageOf(err)}
			}
		}
		if rejection != nil {
			report.Skipped++
			report.Rejections = append(report.Rejections, *rejection)
			s.incrementSkipped()
			s.logWarn(ctx, "skipping invalid record",
				"index", rejection.Index,
				"id", rejection.ID,
				"name", rejection.Name,
				"reason", rejection.Reason,
			)
			continue
		}
		report.Loaded++
	}

	s.refreshGauge(ctx)
	span.SetAttributes(
		attribute.Int("records.loaded", report.Loaded),
		attribute.Int("records.skipped", report.Skipped),
	)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "directory loaded",
			"loaded", report.Loaded,
			"skipped", report.Skipped,
		)
	}
	return report
}

// LoadOne validates rec and inserts it, silently replacing any record with
// the same id. It never persists.
func (s *Service) LoadOne(ctx context.Context, rec *models.Record) error {
	if rec == nil {
		return dErrors.New(dErrors.CodeBadRequest, "record is required")
	}
	if err := validateRecord(rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.records.Put(ctx, rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load record")
	}
	return nil
}

// Check runs the load-time validation over raw records without touching the
// directory and returns every record that Load would skip.
func (s *Service) Check(raw []json.RawMessage) []models.Rejection {
	var rejections []models.Rejection
	for i, item := range raw {
		rec, rejection := decodeRecord(i, item)
		if rejection == nil {
			if err := validateRecord(rec); err != nil {
				rejection = &models.Rejection{Index: i, ID: rec.ID, Name: rec.Name, Reason: dErrors.MessageOf(err)}
			}
		}
		if rejection != nil {
			rejections = append(rejections, *rejection)
		}
	}
	return rejections
}

// ListNames returns every record's name in directory order.
func (s *Service) ListNames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names, err := s.records.Names(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list names")
	}
	return names, nil
}

// FindByName returns the first record, in directory order, whose name equals
// name ignoring case.
func (s *Service) FindByName(ctx context.Context, name string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.records.FindByName(ctx, name)
	if err != nil {
		return nil, translateLookup(err)
	}
	return rec, nil
}

func (s *Service) FindByID(ctx context.Context, id string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.records.FindByID(ctx, id)
	if err != nil {
		return nil, translateLookup(err)
	}
	return rec, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, err := s.records.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count records")
	}
	return n, nil
}

// Insert adds a new record. Checks run in order and the first failure wins:
// missing fields, identifier checksum, phone format, duplicate identifier.
func (s *Service) Insert(ctx context.Context, req *models.CreateRecordRequest) error {
	ctx, span := s.tracer.Start(ctx, "directory.Insert")
	defer span.End()

	if req == nil {
		return spanError(span, dErrors.New(dErrors.CodeBadRequest, "request body is required"))
	}
	if missing := req.MissingFields(); len(missing) > 0 {
		return spanError(span, dErrors.New(dErrors.CodeMissingFields,
			"Missing required fields: "+strings.Join(missing, ", ")))
	}
	rec := req.ToRecord()
	if err := validateRecord(rec); err != nil {
		return spanError(span, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.records.Create(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return spanError(span, dErrors.New(dErrors.CodeDuplicateIdentifier, "User with this ID already exists"))
		}
		return spanError(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create record"))
	}

	s.incrementCreated()
	s.logAudit(ctx, audit.ActionRecordCreated, rec.ID, nil)
	if err := s.persistLocked(ctx); err != nil {
		return spanError(span, err)
	}
	return nil
}

// Update merges the supplied fields into the record with the given id. The
// merge is built on a copy, so an invalid new phone number leaves the stored
// record unchanged.
func (s *Service) Update(ctx context.Context, id string, req *models.UpdateRecordRequest) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "directory.Update")
	defer span.End()

	if req == nil {
		return nil, spanError(span, dErrors.New(dErrors.CodeBadRequest, "request body is required"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.records.FindByID(ctx, id)
	if err != nil {
		return nil, spanError(span, translateLookup(err))
	}
	req.ApplyTo(rec)
	if req.PhoneNumber != nil && !validation.PhoneNumber(rec.PhoneNumber) {
		return nil, spanError(span, dErrors.New(dErrors.CodeInvalidPhone, "Invalid phone number"))
	}
	if err := s.records.Update(ctx, rec); err != nil {
		return nil, spanError(span, translateLookup(err))
	}

	s.incrementUpdated()
	s.logAudit(ctx, audit.ActionRecordUpdated, rec.ID, req.UpdatedFields())
	if err := s.persistLocked(ctx); err != nil {
		return rec, spanError(span, err)
	}
	return rec, nil
}

// Delete removes the record and returns its name.
func (s *Service) Delete(ctx context.Context, id string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "directory.Delete")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.records.Delete(ctx, id)
	if err != nil {
		return "", spanError(span, translateLookup(err))
	}

	s.incrementDeleted()
	s.logAudit(ctx, audit.ActionRecordDeleted, rec.ID, nil)
	if err := s.persistLocked(ctx); err != nil {
		return rec.Name, spanError(span, err)
	}
	return rec.Name, nil
}

// persistLocked writes the whole directory to the sink. Caller holds mu.
// A failed write keeps the in-memory change; the caller gets
// CodePersistence.
func (s *Service) persistLocked(ctx context.Context) error {
	s.refreshGauge(ctx)
	if !s.persist {
		return nil
	}
	records, err := s.records.List(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to snapshot records")
	}

	// the change is already live in memory, so the write must not be cut short
	// by a caller that has gone away
	start := time.Now()
	err = s.sink.WriteAll(context.WithoutCancel(ctx), records)
	if s.metrics != nil {
		s.metrics.ObservePersist(start)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementPersistFailures()
		}
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to persist directory",
				"error", err,
				"records", len(records),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return dErrors.Wrap(err, dErrors.CodePersistence, "change applied but could not be persisted")
	}
	return nil
}

// decodeRecord parses one raw element. A non-object or a non-string known
// field yields a rejection.
func decodeRecord(index int, raw json.RawMessage) (*models.Record, *models.Rejection) {
	var rec models.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, &models.Rejection{Index: index, Reason: fmt.Sprintf("malformed record: %v", err)}
	}
	return &rec, nil
}

func validateRecord(rec *models.Record) error {
	if !validation.NationalID(rec.ID) {
		return dErrors.New(dErrors.CodeInvalidIdentifier, "Invalid Israeli ID")
	}
	if !validation.PhoneNumber(rec.PhoneNumber) {
		return dErrors.New(dErrors.CodeInvalidPhone, "Invalid phone number")
	}
	return nil
}

func translateLookup(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "User not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read record")
}

func sourceReason(err error) string {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return "missing"
	case errors.Is(err, sentinel.ErrMalformed):
		return "malformed"
	default:
		return "unavailable"
	}
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}

// logAudit writes an audit log line and emits the event. The raw identifier
// is hashed before it reaches either.
func (s *Service) logAudit(ctx context.Context, action audit.Action, recordID string, fields []string) {
	attributes := []any{"record_id_hash", audit.HashRecordID(recordID)}
	if len(fields) > 0 {
		attributes = append(attributes, "fields", fields)
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(action), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Timestamp:    requestcontext.Now(ctx).UTC(),
		Action:       action,
		RecordIDHash: attrs.ExtractString(attributes, "record_id_hash"),
		Fields:       attrs.ExtractStrings(attributes, "fields"),
		RequestID:    attrs.ExtractString(attributes, "request_id"),
		ClientIP:     requestcontext.ClientIP(ctx),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", string(action), "error", err)
	}
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}

func (s *Service) refreshGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if n, err := s.records.Count(ctx); err == nil {
		s.metrics.SetRecords(n)
	}
}

func (s *Service) incrementCreated() {
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
}

func (s *Service) incrementUpdated() {
	if s.metrics != nil {
		s.metrics.IncrementUpdated()
	}
}

func (s *Service) incrementDeleted() {
	if s.metrics != nil {
		s.metrics.IncrementDeleted()
	}
}

func (s *Service) incrementSkipped() {
	if s.metrics != nil {
		s.metrics.IncrementSkipped()
	}
}
