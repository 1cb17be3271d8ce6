package audit

import (
	"context"
	"time"

	common_models "go-crm-reports/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Actor identifies who made a change.
type Actor struct {
	OrgID  string
	UserID string
}

type AuditService interface {
	LogChange(ctx context.Context, actor Actor, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error
	ListLogs(ctx context.Context, orgID string, filters map[string]string, page, limit int64) ([]common_models.AuditLog, error)
}

type AuditServiceImpl struct {
	Repo AuditRepository
	log  *zap.Logger
	now  func() time.Time
}

func NewAuditService(repo AuditRepository, log *zap.Logger) AuditService {
	return &AuditServiceImpl{
		Repo: repo,
		log:  log,
		now:  time.Now,
	}
}

func (s *AuditServiceImpl) LogChange(ctx context.Context, actor Actor, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	actorID := actor.UserID
	if actorID == "" {
		actorID = "system"
	}

	entry := common_models.AuditLog{
		ID:        primitive.NewObjectID(),
		OrgID:     actor.OrgID,
		Action:    action,
		Module:    module,
		RecordID:  recordID,
		ActorID:   actorID,
		Changes:   changes,
		Timestamp: s.now().UTC(),
	}

	if err := s.Repo.Create(ctx, entry); err != nil {
		s.log.Warn("writing audit entry failed",
			zap.String("org_id", actor.OrgID),
			zap.String("report_id", recordID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *AuditServiceImpl) ListLogs(ctx context.Context, orgID string, filters map[string]string, page, limit int64) ([]common_models.AuditLog, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit
	return s.Repo.List(ctx, orgID, filters, limit, offset)
}
