package audit

import (
	"context"
	"errors"
	"testing"

	common_models "go-crm-reports/internal/common/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, log common_models.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *mockRepo) List(ctx context.Context, orgID string, filters map[string]string, limit, offset int64) ([]common_models.AuditLog, error) {
	args := m.Called(ctx, orgID, filters, limit, offset)
	logs, _ := args.Get(0).([]common_models.AuditLog)
	return logs, args.Error(1)
}

func TestLogChange_StampsActor(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Create", mock.Anything, mock.MatchedBy(func(l common_models.AuditLog) bool {
		return l.OrgID == "org1" && l.ActorID == "system" && l.RecordID == "r1" && l.Action == common_models.AuditActionDelete
	})).Return(nil)

	svc := NewAuditService(repo, zap.NewNop())
	err := svc.LogChange(context.Background(), Actor{OrgID: "org1"}, common_models.AuditActionDelete, "reports", "r1", nil)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestLogChange_ReturnsRepoError(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("write concern"))

	svc := NewAuditService(repo, zap.NewNop())
	err := svc.LogChange(context.Background(), Actor{OrgID: "org1", UserID: "u1"}, common_models.AuditActionUpdate, "reports", "r1", nil)
	assert.Error(t, err)
}

func TestListLogs_Paging(t *testing.T) {
	repo := &mockRepo{}
	repo.On("List", mock.Anything, "org1", mock.Anything, int64(20), int64(0)).Return([]common_models.AuditLog{{RecordID: "r1"}}, nil).Once()
	repo.On("List", mock.Anything, "org1", mock.Anything, int64(5), int64(10)).Return([]common_models.AuditLog{}, nil).Once()

	svc := NewAuditService(repo, zap.NewNop())
	logs, err := svc.ListLogs(context.Background(), "org1", nil, 0, 500)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	_, err = svc.ListLogs(context.Background(), "org1", nil, 3, 5)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
