package ingest

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"docket/internal/audit"
	"docket/internal/envelope"
	"docket/internal/ingest/mocks"
	"docket/internal/relation"
	"docket/internal/sentinel"
	"docket/internal/strategy"
	"docket/internal/workqueue"
	dErrors "docket/pkg/domain-errors"
)

type IngestSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockAudit *mocks.MockAuditPublisher
	items     *workqueue.InMemoryStore
	edges     *relation.InMemoryStore
	key       []byte
	tenants   TenantPair
	service   *Service
}

func TestIngestSuite(t *testing.T) {
	suite.Run(t, new(IngestSuite))
}

func (s *IngestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockAudit = mocks.NewMockAuditPublisher(s.ctrl)
	s.items = workqueue.NewInMemoryStore()
	s.edges = relation.NewInMemoryStore(s.items)
	s.items.SetRelationGuard(s.edges)

	s.key = make([]byte, 32)
	_, err := rand.Read(s.key)
	s.Require().NoError(err)

	s.tenants = TenantPair{DefaultID: "tenant-default", SecondaryID: "tenant-secondary"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(s.key, strategy.NewDispatcher("ZAWISZA"), s.items, s.edges,
		WithLogger(logger),
		WithAuditPublisher(s.mockAudit),
	)
}

func (s *IngestSuite) seal(plaintext string) string {
	sealed, err := envelope.Encrypt(plaintext, s.key)
	s.Require().NoError(err)
	return sealed
}

func (s *IngestSuite) TestOrderRoutedToSecondaryTenant() {
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	env := Envelope{
		CorrelationID: "corr-42",
		TypeHint:      "order",
		Payload:       s.seal(`{"orderData":{"marketplace":"ZAWISZA-X","number":"123"}}`),
	}
	created, err := s.service.Ingest(context.Background(), env, s.tenants)
	s.Require().NoError(err)
	s.Require().Len(created, 1)

	item := created[0]
	s.Equal("tenant-secondary", item.TenantID)
	s.Equal(workqueue.ScopeOrderCreate, item.Scope)
	s.Equal(workqueue.StatusPending, item.Status)
	s.Zero(item.TargetID)

	count, err := s.items.Count(context.Background(), workqueue.Filter{})
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *IngestSuite) TestUnrecognizedBodyFiledUnderSentinelScope() {
	var recorded audit.Event
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event audit.Event) error {
			recorded = event
			return nil
		}).Times(1)

	env := Envelope{
		CorrelationID: "corr-99",
		TypeHint:      "",
		Payload:       s.seal(`{"foo":1}`),
	}
	created, err := s.service.Ingest(context.Background(), env, s.tenants)
	s.Require().NoError(err)
	s.Require().Len(created, 1)

	item := created[0]
	s.Equal(workqueue.ScopeUnrecognized, item.Scope)
	s.Empty(item.Request)
	s.Equal(`{"foo":1}`, item.RawBody)
	s.Equal("tenant-default", item.TenantID)
	s.Equal(workqueue.StatusPending, item.Status)

	s.Equal(audit.ActionItemCreated, recorded.Action)
	s.Equal("corr-99", recorded.CorrelationID)
	s.Equal(item.ID, recorded.ItemID)
}

func (s *IngestSuite) TestOrderAuditCarriesLineItemCount() {
	var recorded audit.Event
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event audit.Event) error {
			recorded = event
			return nil
		}).Times(1)

	body := `{"orderData":{"number":"7","items":[{"sku":"A"},{"sku":"B"},{"sku":"C"}]}}`
	_, err := s.service.Ingest(context.Background(), Envelope{CorrelationID: "corr-7", Payload: s.seal(body)}, s.tenants)
	s.Require().NoError(err)
	s.Equal(3, recorded.LineItems)
}

func (s *IngestSuite) TestDecryptFailureIsFatalAndAudited() {
	var recorded audit.Event
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event audit.Event) error {
			recorded = event
			return nil
		}).Times(1)

	env := Envelope{CorrelationID: "corr-1", Payload: "!!not-base64!!"}
	_, err := s.service.Ingest(context.Background(), env, s.tenants)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDecryption))
	s.Equal(audit.ActionDecryptFailed, recorded.Action)

	count, err := s.items.Count(context.Background(), workqueue.Filter{})
	s.Require().NoError(err)
	s.Zero(count, "no partial state on failure")
}

func (s *IngestSuite) TestClassificationErrorPropagates() {
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	env := Envelope{CorrelationID: "corr-2", Payload: s.seal(`{"productData":5}`)}
	_, err := s.service.Ingest(context.Background(), env, s.tenants)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeClassification))
}

// flakyStore fails Create with a transient error a fixed number of times.
type flakyStore struct {
	workqueue.Store
	failures int
}

func (f *flakyStore) Create(ctx context.Context, item *workqueue.WorkItem) error {
	if f.failures > 0 {
		f.failures--
		return sentinel.ErrUnavailable
	}
	return f.Store.Create(ctx, item)
}

func (s *IngestSuite) TestTransientStoreFailureIsRetried() {
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	flaky := &flakyStore{Store: s.items, failures: 2}
	service := New(s.key, strategy.NewDispatcher(""), flaky, s.edges,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.mockAudit),
	)

	created, err := service.Ingest(context.Background(),
		Envelope{CorrelationID: "corr-3", Payload: s.seal(`{"sku":"P-1"}`)}, s.tenants)
	s.Require().NoError(err)
	s.Len(created, 1)
}

func (s *IngestSuite) TestStoreUnavailableAfterBoundedRetries() {
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	flaky := &flakyStore{Store: s.items, failures: 10}
	service := New(s.key, strategy.NewDispatcher(""), flaky, s.edges,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.mockAudit),
	)

	_, err := service.Ingest(context.Background(),
		Envelope{CorrelationID: "corr-4", Payload: s.seal(`{"sku":"P-1"}`)}, s.tenants)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	count, err := s.items.Count(context.Background(), workqueue.Filter{})
	s.Require().NoError(err)
	s.Zero(count)
}
