package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/flexprice/tenantcore/internal/domain/adminaudit"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/testutil"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type mockAuditRepo struct {
	mock.Mock
}

func (m *mockAuditRepo) Create(ctx context.Context, a *adminaudit.AdminAudit) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAuditRepo) List(ctx context.Context, filter *types.AdminAuditFilter) ([]*adminaudit.AdminAudit, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*adminaudit.AdminAudit), args.Error(1)
}

func (m *mockAuditRepo) Count(ctx context.Context, filter *types.AdminAuditFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

type AuditServiceSuite struct {
	testutil.BaseServiceTestSuite
	params ServiceParams
}

func TestAuditService(t *testing.T) {
	suite.Run(t, new(AuditServiceSuite))
}

func (s *AuditServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestServiceParams(&s.BaseServiceTestSuite)
}

func (s *AuditServiceSuite) TestRecordAndList() {
	ctx := s.GetContext()
	svc := NewAuditService(s.params)

	for _, op := range []string{"op_1", "op_2", "op_1"} {
		s.Require().NoError(svc.Record(ctx, &adminaudit.AdminAudit{
			ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ADMIN_AUDIT),
			OperatorID: op,
			ActionType: "list_users",
			Method:     "GET",
			Endpoint:   "/v1/admin/users",
			StatusCode: 200,
			Success:    true,
		}))
	}

	filter := types.NewDefaultAdminAuditFilter()
	filter.OperatorID = "op_1"
	resp, err := svc.ListAudits(ctx, filter)
	s.Require().NoError(err)
	s.Equal(2, resp.Pagination.Total)
	for _, item := range resp.Items {
		s.False(item.CreatedAt.IsZero())
	}
}

func (s *AuditServiceSuite) TestRecordRetriesTransientFailure() {
	repo := new(mockAuditRepo)
	repo.On("Create", mock.Anything, mock.Anything).
		Return(ierr.NewError("connection reset").Mark(ierr.ErrDatabase)).Once()
	repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	params := s.params
	params.AdminAuditRepo = repo
	svc := NewAuditService(params)

	err := svc.Record(s.GetContext(), &adminaudit.AdminAudit{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ADMIN_AUDIT),
		OperatorID: "op_1",
		Endpoint:   "/v1/admin/tenants",
	})
	s.Require().NoError(err)
	repo.AssertNumberOfCalls(s.T(), "Create", 2)
}

func (s *AuditServiceSuite) TestRecordSurvivesCancelledRequest() {
	ctx, cancel := context.WithCancel(s.GetContext())
	cancel()

	err := NewAuditService(s.params).Record(ctx, &adminaudit.AdminAudit{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ADMIN_AUDIT),
		OperatorID: "op_1",
		Endpoint:   "/v1/admin/users",
	})
	s.Require().NoError(err)

	count, err := s.GetStores().AdminAuditRepo.Count(s.GetContext(), types.NewDefaultAdminAuditFilter())
	s.Require().NoError(err)
	s.Equal(1, count)
}

func TestSanitizePayload(t *testing.T) {
	t.Run("masks sensitive keys at any depth", func(t *testing.T) {
		body := `{"email":"a@b.test","password":"hunter2","nested":{"api_key":"k1","items":[{"client_secret":"s"}]}}`

		out := SanitizePayload([]byte(body), 0)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &decoded))
		assert.Equal(t, "a@b.test", decoded["email"])
		assert.Equal(t, maskedValue, decoded["password"])
		nested := decoded["nested"].(map[string]any)
		assert.Equal(t, maskedValue, nested["api_key"])
		item := nested["items"].([]any)[0].(map[string]any)
		assert.Equal(t, maskedValue, item["client_secret"])
	})

	t.Run("masks token shaped values", func(t *testing.T) {
		body := `{"note":"Bearer abc.def","jwt":"eyJhbGciOiJI.eyJzdWIiOiIx.c2lnbmF0dXJl","plain":"hello"}`

		out := SanitizePayload([]byte(body), 0)

		assert.NotContains(t, out, "abc.def")
		assert.NotContains(t, out, "c2lnbmF0dXJl")
		assert.Contains(t, out, `"plain":"hello"`)
	})

	t.Run("truncates oversized bodies", func(t *testing.T) {
		body := strings.Repeat("x", 100)

		out := SanitizePayload([]byte(body), 10)

		assert.Equal(t, strings.Repeat("x", 10)+truncatedSuffix, out)
	})

	t.Run("empty body", func(t *testing.T) {
		assert.Empty(t, SanitizePayload(nil, 10))
	})
}
