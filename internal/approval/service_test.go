package approval

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"backend/internal/asset"
	"backend/internal/project"
	"backend/internal/workflow"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// capturePublisher 测试用事件发布器，记录所有事件
type capturePublisher struct {
	events []*ApprovalEvent
	fail   bool
}

func (p *capturePublisher) PublishApprovalEvent(_ context.Context, event *ApprovalEvent) error {
	if p.fail {
		return fmt.Errorf("队列不可用")
	}
	p.events = append(p.events, event)
	return nil
}

func setupApprovalTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:approval_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	if err := db.AutoMigrate(
		&workflow.Workflow{},
		&project.Project{},
		&asset.Asset{},
		&StageReviewerAssignment{},
		&UserStageApproval{},
		&StageProgress{},
	); err != nil {
		t.Fatalf("迁移 schema 失败: %v", err)
	}
	return db
}

type approvalTestEnv struct {
	db        *gorm.DB
	svc       *Service
	publisher *capturePublisher
	workflow  *workflow.Workflow
	project   *project.Project
	asset     *asset.Asset
}

// newApprovalTestEnv 建立一个组织 org-1 的三阶段审批环境
// 项目创建人 owner-1，素材 asset 已入项目
func newApprovalTestEnv(t *testing.T) *approvalTestEnv {
	t.Helper()
	db := setupApprovalTestDB(t)
	publisher := &capturePublisher{}
	svc := NewService(db, publisher)

	wf := &workflow.Workflow{
		ID:       uuid.New().String(),
		TenantID: "org-1",
		Name:     "三阶段评审",
		Stages: workflow.StageList{
			{Order: 1, Name: "初稿", Color: workflow.ColorYellow},
			{Order: 2, Name: "法务", Color: workflow.ColorBlue},
			{Order: 3, Name: "终评", Color: workflow.ColorGreen},
		},
	}
	if err := db.Create(wf).Error; err != nil {
		t.Fatalf("建工作流失败: %v", err)
	}

	p := &project.Project{
		ID:         uuid.New().String(),
		TenantID:   "org-1",
		Name:       "测试项目",
		Status:     project.StatusActive,
		WorkflowID: &wf.ID,
		CreatedBy:  "owner-1",
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("建项目失败: %v", err)
	}

	a := &asset.Asset{
		ID:        uuid.New().String(),
		TenantID:  "org-1",
		ProjectID: p.ID,
		Name:      "mockup.png",
		Type:      asset.TypeImage,
		Version:   1,
		CreatedBy: "creator-1",
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("建素材失败: %v", err)
	}

	return &approvalTestEnv{db: db, svc: svc, publisher: publisher, workflow: wf, project: p, asset: a}
}

func (e *approvalTestEnv) seedProgress(t *testing.T, order, required, received int, status string) *StageProgress {
	t.Helper()
	row := &StageProgress{
		ID:                uuid.New().String(),
		TenantID:          "org-1",
		AssetID:           e.asset.ID,
		StageOrder:        order,
		ApprovalsRequired: required,
		ApprovalsReceived: received,
		Status:            status,
	}
	if err := e.db.Create(row).Error; err != nil {
		t.Fatalf("建进度行失败: %v", err)
	}
	return row
}

func (e *approvalTestEnv) seedApprovalRecord(t *testing.T, order int, userID, status string) *UserStageApproval {
	t.Helper()
	record := &UserStageApproval{
		ID:         uuid.New().String(),
		TenantID:   "org-1",
		AssetID:    e.asset.ID,
		StageOrder: order,
		UserID:     userID,
		Status:     status,
	}
	if err := e.db.Create(record).Error; err != nil {
		t.Fatalf("建评审记录失败: %v", err)
	}
	return record
}

func TestGetApprovalSummaryProjectlessAsset(t *testing.T) {
	ctx := context.Background()
	env := newApprovalTestEnv(t)

	orphan := &asset.Asset{
		ID:        uuid.New().String(),
		TenantID:  "org-1",
		Name:      "orphan.png",
		Type:      asset.TypeImage,
		CreatedBy: "creator-1",
	}
	if err := env.db.Create(orphan).Error; err != nil {
		t.Fatalf("建素材失败: %v", err)
	}

	summary, err := env.svc.GetApprovalSummary(ctx, "org-1", orphan.ID)
	if err != nil {
		t.Fatalf("无项目素材应返回空汇总而非错误: %v", err)
	}
	if len(summary.ApprovalsByStage) != 0 || len(summary.ProgressSummary) != 0 {
		t.Fatalf("空汇总不正确: %+v", summary)
	}
	if summary.FinalApproval != nil {
		t.Fatalf("final_approval 应为空: %+v", summary.FinalApproval)
	}
	if summary.CurrentStage != 1 || summary.OverallStatus != OverallStatusNotStarted {
		t.Fatalf("无项目素材派生状态应为初始值: current_stage=%d overall=%s", summary.CurrentStage, summary.OverallStatus)
	}
}

func TestGetApprovalSummaryProjectlessIgnoresFinalFields(t *testing.T) {
	ctx := context.Background()
	env := newApprovalTestEnv(t)

	approver := "owner-1"
	approvedAt := time.Now().UTC()
	orphan := &asset.Asset{
		ID:                 uuid.New().String(),
		TenantID:           "org-1",
		Name:               "orphan.png",
		Type:               asset.TypeImage,
		CreatedBy:          "creator-1",
		FinalApprovedBy:    &approver,
		FinalApprovedAt:    &approvedAt,
		FinalApprovalNotes: "历史遗留",
	}
	if err := env.db.Create(orphan).Error; err != nil {
		t.Fatalf("建素材失败: %v", err)
	}

	summary, err := env.svc.GetApprovalSummary(ctx, "org-1", orphan.ID)
	if err != nil {
		t.Fatalf("查询汇总失败: %v", err)
	}
	// 即便终审字段有值，无项目素材的空汇总也不附带终审信息
	if summary.FinalApproval != nil {
		t.Fatalf("无项目素材的 final_approval 应为空: %+v", summary.FinalApproval)
	}
	if summary.CurrentStage != 1 || summary.OverallStatus != OverallStatusNotStarted {
		t.Fatalf("派生状态应为初始值: current_stage=%d overall=%s", summary.CurrentStage, summary.OverallStatus)
	}
}

func TestGetApprovalSummaryCrossTenantNotFound(t *testing.T) {
	ctx := context.Background()
	env := newApprovalTestEnv(t)

	_, err := env.svc.GetApprovalSummary(ctx, "org-other", env.asset.ID)
	if !IsNotFound(err) {
		t.Fatalf("跨组织访问应返回不存在错误，实际 %v", err)
	}
}

func TestGetApprovalSummaryJoinsStageMetadata(t *testing.T) {
	ctx := context.Background()
	env := newApprovalTestEnv(t)

	env.seedProgress(t, 1, 1, 1, StageStatusApproved)
	env.seedProgress(t, 2, 2, 1, StageStatusInReview)
	env.seedProgress(t, 3, 1, 0, StageStatusNotStarted)
	env.seedApprovalRecord(t, 1, "reviewer-A", DecisionApproved)
	env.seedApprovalRecord(t, 2, "reviewer-B", DecisionApproved)
	env.seedApprovalRecord(t, 2, "reviewer-C", DecisionPending)

	summary, err := env.svc.GetApprovalSummary(ctx, "org-1", env.asset.ID)
	if err != nil {
		t.Fatalf("查询汇总失败: %v", err)
	}

	if len(summary.ProgressSummary) != 3 {
		t.Fatalf("进度行数量不正确: %+v", summary.ProgressSummary)
	}
	stage1 := summary.ProgressSummary[1]
	if stage1.StageName != "初稿" || stage1.StageColor != string(workflow.ColorYellow) {
		t.Fatalf("阶段元数据未合并: %+v", stage1)
	}
	if !stage1.IsComplete {
		t.Fatalf("1/1 应为已收齐: %+v", stage1)
	}
	stage2 := summary.ProgressSummary[2]
	if stage2.IsComplete {
		t.Fatalf("1/2 不应为已收齐: %+v", stage2)
	}
	// 每个返回行都满足 is_complete == (received >= required)
	for order, row := range summary.ProgressSummary {
		if row.IsComplete != (row.ApprovalsReceived >= row.ApprovalsRequired) {
			t.Fatalf("阶段 %d 的 is_complete 不自洽: %+v", order, row)
		}
	}

	if len(summary.ApprovalsByStage[2]) != 2 {
		t.Fatalf("阶段 2 评审记录分组不正确: %+v", summary.ApprovalsByStage)
	}
	if len(stage1.Approvals) != 1 || stage1.Approvals[0].UserID != "reviewer-A" {
		t.Fatalf("阶段 1 评审记录未附加: %+v", stage1.Approvals)
	}
	// 无评审记录的阶段附空列表
	if summary.ProgressSummary[3].Approvals == nil || len(summary.ProgressSummary[3].Approvals) != 0 {
		t.Fatalf("阶段 3 应附空列表: %+v", summary.ProgressSummary[3])
	}

	// 汇总附带派生状态：阶段 2 在评审中
	if summary.CurrentStage != 2 || summary.OverallStatus != OverallStatusInProgress {
		t.Fatalf("派生状态不正确: current_stage=%d overall=%s", summary.CurrentStage, summary.OverallStatus)
	}
}

func TestRecordFinalApprovalPreconditionOrder(t *testing.T) {
	ctx := context.Background()
	env := newApprovalTestEnv(t)

	// 素材不存在
	_, err := env.svc.RecordFinalApproval(ctx, &RecordFinalApprovalRequest{
		TenantID: "org-1", AssetID: uuid.New().String(), ActingUserID: "owner-1",
	})
	if !IsNotFound(err) {
		t.Fatalf("素材不存在应返回 NotFound，实际 %v", err)
	}

	// 素材无项目
	orphan := &asset.Asset{
		ID: uuid.New().String(), TenantID: "org-1",
		Name: "orphan.png", Type: asset.TypeImage, CreatedBy: "creator-1",
	}
	if err := env.db.Create(orphan).Error; err != nil {
		t.Fatalf("建素材失败: %v", err)
	}
	_, err = env.svc.RecordFinalApproval(ctx, &RecordFinalApprovalRequest{
		TenantID: "org-1", AssetID: orphan.ID, ActingUserID: "owner-1",
	})
	if !IsInvalidState(err) {
		t.Fatalf("无项目素材应返回 InvalidState，实际 %v", err)
	}

	// 非创建人非管理员
	env.seedProgress(t, 3, 1, 1, StageStatusPendingFinal)
	_, err = env.svc.RecordFinalApproval(ctx, &RecordFinalApprovalRequest{
		TenantID: "org-1", AssetID: env.asset.ID, ActingUserID: "stranger", ActorRole: "member",
	})
	if !IsForbidden(err) {
		t.Fatalf("无权限用户应返回 Forbidden，实际 %v", err)
	}
}

func TestRecordFinalApprovalLastStageMustBePending(t *testing.T) {
	ctx := context.Background()
	env := newApprovalTestEnv(t)

	env.seedProgress(t, 1, 1, 1, StageStatusApproved)
	env.seedProgress(t, 2, 1, 0, StageStatusInReview)

	_, err := env.svc.RecordFinalApproval(ctx, &RecordFinalApprovalRequest{
		TenantID: "org-1", AssetID: env.asset.ID, ActingUserID: "owner-1",
	})
	if !IsInvalidState(err) {
		t.Fatalf("最后阶段未就绪应返回 InvalidState，实际 %v", err)
	}
	// 消息必须包含当前状态值
	if !strings.Contains(err.Error(), StageStatusInReview) {
		t.Fatalf("错误消息应包含当前状态: %v", err)
	}
}

func TestRecordFinalApprovalSuccessAndTerminal(t *testing.T) {
	ctx := context.Background()
	env := newApprovalTestEnv(t)

	env.seedProgress(t, 1, 1, 1, StageStatusApproved)
	env.seedProgress(t, 2, 1, 1, StageStatusApproved)
	env.seedProgress(t, 3, 1, 1, StageStatusPendingFinal)

	before := time.Now().UTC()
	result, err := env.svc.RecordFinalApproval(ctx, &RecordFinalApprovalRequest{
		TenantID:     "org-1",
		AssetID:      env.asset.ID,
		ActingUserID: "owner-1",
		Notes:        "Looks great",
	})
	if err != nil {
		t.Fatalf("终审失败: %v", err)
	}

	a := result.Asset
	if a.FinalApprovedBy == nil || *a.FinalApprovedBy != "owner-1" {
		t.Fatalf("final_approved_by 不正确: %+v", a)
	}
	if a.FinalApprovalNotes != "Looks great" {
		t.Fatalf("final_approval_notes 不正确: %+v", a)
	}
	if a.FinalApprovedAt == nil || a.FinalApprovedAt.Before(before.Add(-time.Second)) ||
		a.FinalApprovedAt.After(time.Now().UTC().Add(time.Second)) {
		t.Fatalf("final_approved_at 不在合理范围: %v", a.FinalApprovedAt)
	}

	// 返回最新进度：最后阶段翻转为 approved
	if len(result.Progress) != 3 || result.Progress[2].Status != StageStatusApproved {
		t.Fatalf("进度列表不正确: %+v", result.Progress)
	}

	// 通知事件已入队
	found := false
	for _, event := range env.publisher.events {
		if event.Type == EventFinalApproval && event.AssetID == env.asset.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("终审事件未入队: %+v", env.publisher.events)
	}

	// 终态：重复终审必须失败
	_, err = env.svc.RecordFinalApproval(ctx, &RecordFinalApprovalRequest{
		TenantID: "org-1", AssetID: env.asset.ID, ActingUserID: "owner-1",
	})
	if !IsInvalidState(err) {
		t.Fatalf("重复终审应返回 InvalidState，实际 %v", err)
	}
	if !strings.Contains(err.Error(), StageStatusApproved) {
		t.Fatalf("错误消息应包含当前状态: %v", err)
	}
}

func TestRecordFinalApprovalAdminRole(t *testing.T) {
	ctx := context.Background()
	env := newApprovalTestEnv(t)

	env.seedProgress(t, 3, 1, 1, StageStatusPendingFinal)

	if _, err := env.svc.RecordFinalApproval(ctx, &RecordFinalApprovalRequest{
		TenantID:     "org-1",
		AssetID:      env.asset.ID,
		ActingUserID: "some-admin",
		ActorRole:    RoleAdmin,
	}); err != nil {
		t.Fatalf("组织管理员终审失败: %v", err)
	}
}

func TestRecordFinalApprovalNotificationFailureDoesNotRollBack(t *testing.T) {
	ctx := context.Background()
	env := newApprovalTestEnv(t)
	env.publisher.fail = true

	env.seedProgress(t, 3, 1, 1, StageStatusPendingFinal)

	result, err := env.svc.RecordFinalApproval(ctx, &RecordFinalApprovalRequest{
		TenantID: "org-1", AssetID: env.asset.ID, ActingUserID: "owner-1",
	})
	if err != nil {
		t.Fatalf("通知失败不应影响终审: %v", err)
	}
	if result.Asset.FinalApprovedBy == nil {
		t.Fatalf("终审写入应已生效: %+v", result.Asset)
	}
}

func TestSetReviewerStatusSelfServiceOnly(t *testing.T) {
	ctx := context.Background()
	env := newApprovalTestEnv(t)

	record := env.seedApprovalRecord(t, 1, "reviewer-Y", DecisionPending)

	// X 代 Y 提交：Forbidden 且行不变
	_, err := env.svc.SetReviewerStatus(ctx, &SetReviewerStatusRequest{
		TenantID: "org-1", AssetID: env.asset.ID, RecordID: record.ID,
		ActingUserID: "user-X", Status: DecisionApproved,
	})
	if !IsForbidden(err) {
		t.Fatalf("代提交应返回 Forbidden，实际 %v", err)
	}
	var unchanged UserStageApproval
	if err := env.db.Where("id = ?", record.ID).First(&unchanged).Error; err != nil {
		t.Fatalf("读取记录失败: %v", err)
	}
	if unchanged.Status != DecisionPending || unchanged.RespondedAt != nil {
		t.Fatalf("代提交不应改动记录: %+v", unchanged)
	}
}

func TestSetReviewerStatusValidation(t *testing.T) {
	ctx := context.Background()
	env := newApprovalTestEnv(t)

	record := env.seedApprovalRecord(t, 1, "reviewer-A", DecisionPending)

	_, err := env.svc.SetReviewerStatus(ctx, &SetReviewerStatusRequest{
		TenantID: "org-1", AssetID: env.asset.ID, RecordID: record.ID,
		ActingUserID: "reviewer-A", Status: "maybe",
	})
	if !IsValidation(err) {
		t.Fatalf("非法状态值应返回 ValidationError，实际 %v", err)
	}

	_, err = env.svc.SetReviewerStatus(ctx, &SetReviewerStatusRequest{
		TenantID: "org-1", AssetID: env.asset.ID, RecordID: uuid.New().String(),
		ActingUserID: "reviewer-A", Status: DecisionApproved,
	})
	if !IsNotFound(err) {
		t.Fatalf("记录不存在应返回 NotFound，实际 %v", err)
	}
}

func TestSetReviewerStatusBackfillsViewedAndArchivesHistory(t *testing.T) {
	ctx := context.Background()
	env := newApprovalTestEnv(t)

	record := env.seedApprovalRecord(t, 1, "reviewer-A", DecisionPending)

	// 首次响应：viewed_at 回填，responded_at 写入
	updated, err := env.svc.SetReviewerStatus(ctx, &SetReviewerStatusRequest{
		TenantID: "org-1", AssetID: env.asset.ID, RecordID: record.ID,
		ActingUserID: "reviewer-A", Status: DecisionApproved, Note: "通过",
	})
	if err != nil {
		t.Fatalf("提交决定失败: %v", err)
	}
	if updated.Status != DecisionApproved || updated.Note != "通过" {
		t.Fatalf("决定未写入: %+v", updated)
	}
	if updated.ViewedAt == nil || updated.RespondedAt == nil {
		t.Fatalf("viewed_at/responded_at 应已回填: %+v", updated)
	}
	if len(updated.History) != 0 {
		t.Fatalf("首次决定不应有历史: %+v", updated.History)
	}

	// 改判：旧决定归档进历史
	changed, err := env.svc.SetReviewerStatus(ctx, &SetReviewerStatusRequest{
		TenantID: "org-1", AssetID: env.asset.ID, RecordID: record.ID,
		ActingUserID: "reviewer-A", Status: DecisionChangesRequested, Note: "再改改",
	})
	if err != nil {
		t.Fatalf("改判失败: %v", err)
	}
	if changed.Status != DecisionChangesRequested {
		t.Fatalf("改判未生效: %+v", changed)
	}
	if len(changed.History) != 1 || changed.History[0].Status != DecisionApproved || changed.History[0].Note != "通过" {
		t.Fatalf("旧决定未归档: %+v", changed.History)
	}
}

func TestRecordFinalApprovalWithoutProgressReportsEmptyStatus(t *testing.T) {
	ctx := context.Background()
	env := newApprovalTestEnv(t)

	// 素材有项目但从未提交过任何阶段评审
	_, err := env.svc.RecordFinalApproval(ctx, &RecordFinalApprovalRequest{
		TenantID: "org-1", AssetID: env.asset.ID, ActingUserID: "owner-1",
	})
	if !IsInvalidState(err) {
		t.Fatalf("无进度素材应返回 InvalidState，实际 %v", err)
	}
	// 拒绝消息标明当前状态为空（none）
	if !strings.Contains(err.Error(), "none") {
		t.Fatalf("错误消息应包含空状态标记: %v", err)
	}
}

func TestStatusesForAssetsBatchDerivation(t *testing.T) {
	ctx := context.Background()
	env := newApprovalTestEnv(t)

	env.seedProgress(t, 1, 1, 1, StageStatusApproved)
	env.seedProgress(t, 2, 2, 1, StageStatusInReview)

	orphan := &asset.Asset{
		ID:        uuid.New().String(),
		TenantID:  "org-1",
		Name:      "orphan.png",
		Type:      asset.TypeImage,
		CreatedBy: "creator-1",
	}
	if err := env.db.Create(orphan).Error; err != nil {
		t.Fatalf("建素材失败: %v", err)
	}

	statuses, err := env.svc.StatusesForAssets(ctx, "org-1", []string{env.asset.ID, orphan.ID})
	if err != nil {
		t.Fatalf("批量派生失败: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("应为每个素材返回状态: %+v", statuses)
	}
	if got := statuses[env.asset.ID]; got.CurrentStage != 2 || got.OverallStatus != OverallStatusInProgress {
		t.Fatalf("有进度素材派生不正确: %+v", got)
	}
	if got := statuses[orphan.ID]; got.CurrentStage != 1 || got.OverallStatus != OverallStatusNotStarted {
		t.Fatalf("无进度素材应为初始状态: %+v", got)
	}

	// 空入参返回空表
	empty, err := env.svc.StatusesForAssets(ctx, "org-1", nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("空入参应返回空表: %v %+v", err, empty)
	}
}
