package project

import (
	"context"
	"fmt"
	"testing"
	"time"

	"backend/internal/workflow"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupProjectServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:project_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	if err := db.AutoMigrate(&Project{}, &workflow.Workflow{}); err != nil {
		t.Fatalf("迁移 schema 失败: %v", err)
	}
	if err := db.Exec(`CREATE TABLE assets (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		deleted_at DATETIME
	)`).Error; err != nil {
		t.Fatalf("建 assets 表失败: %v", err)
	}
	return db
}

func newProjectTestServices(t *testing.T) (*gorm.DB, *ProjectService, *workflow.WorkflowService) {
	t.Helper()
	db := setupProjectServiceTestDB(t)
	wfSvc := workflow.NewWorkflowService(db)
	return db, NewProjectService(db, wfSvc), wfSvc
}

func createTestWorkflow(t *testing.T, svc *workflow.WorkflowService, tenantID string) *workflow.Workflow {
	t.Helper()
	wf, err := svc.CreateWorkflow(context.Background(), &workflow.CreateWorkflowRequest{
		TenantID: tenantID,
		Name:     "标准审批",
		Stages: workflow.StageList{
			{Order: 1, Name: "初审", Color: workflow.ColorYellow},
			{Order: 2, Name: "终审", Color: workflow.ColorGreen},
		},
		CreatedBy: "user-1",
	})
	if err != nil {
		t.Fatalf("创建工作流失败: %v", err)
	}
	return wf
}

func TestProjectServiceCreateAndGet(t *testing.T) {
	ctx := context.Background()
	_, svc, wfSvc := newProjectTestServices(t)
	wf := createTestWorkflow(t, wfSvc, "tenant-A")

	created, err := svc.CreateProject(ctx, &CreateProjectRequest{
		TenantID:    "tenant-A",
		Name:        "春季营销",
		Description: "2026 春季投放素材",
		WorkflowID:  &wf.ID,
		CreatedBy:   "user-1",
	})
	if err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}
	if created.Status != StatusActive {
		t.Fatalf("新项目应为 active: %+v", created)
	}

	got, err := svc.GetProject(ctx, "tenant-A", created.ID)
	if err != nil {
		t.Fatalf("查询项目失败: %v", err)
	}
	if got.Name != "春季营销" || got.CreatedBy != "user-1" {
		t.Fatalf("项目信息不正确: %+v", got)
	}

	// 跨组织查询返回不存在
	if _, err := svc.GetProject(ctx, "tenant-B", created.ID); err == nil {
		t.Fatalf("跨组织查询应返回不存在")
	}

	gotWf, err := svc.GetProjectWorkflow(ctx, "tenant-A", created.ID)
	if err != nil {
		t.Fatalf("查询项目工作流失败: %v", err)
	}
	if gotWf.ID != wf.ID {
		t.Fatalf("工作流不匹配: %+v", gotWf)
	}
}

func TestProjectServiceCreateValidation(t *testing.T) {
	ctx := context.Background()
	_, svc, wfSvc := newProjectTestServices(t)

	if _, err := svc.CreateProject(ctx, &CreateProjectRequest{
		TenantID:  "tenant-A",
		Name:      "",
		CreatedBy: "user-1",
	}); err == nil {
		t.Fatalf("空名称应当失败")
	}

	// 绑定其他组织的工作流应当失败
	wf := createTestWorkflow(t, wfSvc, "tenant-other")
	if _, err := svc.CreateProject(ctx, &CreateProjectRequest{
		TenantID:   "tenant-A",
		Name:       "越权绑定",
		WorkflowID: &wf.ID,
		CreatedBy:  "user-1",
	}); err == nil {
		t.Fatalf("绑定其他组织的工作流应当失败")
	}

	// 绑定已归档工作流应当失败
	wf2 := createTestWorkflow(t, wfSvc, "tenant-A")
	if err := wfSvc.ArchiveWorkflow(ctx, "tenant-A", wf2.ID); err != nil {
		t.Fatalf("归档失败: %v", err)
	}
	if _, err := svc.CreateProject(ctx, &CreateProjectRequest{
		TenantID:   "tenant-A",
		Name:       "绑定归档",
		WorkflowID: &wf2.ID,
		CreatedBy:  "user-1",
	}); err == nil {
		t.Fatalf("绑定已归档工作流应当失败")
	}
}

func TestProjectServiceListByStatus(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := newProjectTestServices(t)

	for _, name := range []string{"项目一", "项目二"} {
		if _, err := svc.CreateProject(ctx, &CreateProjectRequest{
			TenantID:  "tenant-L",
			Name:      name,
			CreatedBy: "user-1",
		}); err != nil {
			t.Fatalf("创建项目失败: %v", err)
		}
	}
	archived, err := svc.CreateProject(ctx, &CreateProjectRequest{
		TenantID:  "tenant-L",
		Name:      "已归档",
		CreatedBy: "user-1",
	})
	if err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}
	status := StatusArchived
	if _, err := svc.UpdateProject(ctx, "tenant-L", archived.ID, &UpdateProjectRequest{Status: &status}); err != nil {
		t.Fatalf("更新状态失败: %v", err)
	}

	resp, err := svc.ListProjects(ctx, &ListProjectsRequest{TenantID: "tenant-L", Status: StatusActive})
	if err != nil {
		t.Fatalf("查询列表失败: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("active 项目数不正确: %+v", resp)
	}

	all, err := svc.ListProjects(ctx, &ListProjectsRequest{TenantID: "tenant-L"})
	if err != nil {
		t.Fatalf("查询列表失败: %v", err)
	}
	if all.Total != 3 {
		t.Fatalf("全部项目数不正确: %+v", all)
	}

	if _, err := svc.ListProjects(ctx, &ListProjectsRequest{TenantID: "tenant-L", Status: "bogus"}); err == nil {
		t.Fatalf("非法状态过滤应当失败")
	}
}

func TestProjectServiceWorkflowChangeFrozenByAssets(t *testing.T) {
	ctx := context.Background()
	db, svc, wfSvc := newProjectTestServices(t)
	wf1 := createTestWorkflow(t, wfSvc, "tenant-W")
	wf2 := createTestWorkflow(t, wfSvc, "tenant-W")

	proj, err := svc.CreateProject(ctx, &CreateProjectRequest{
		TenantID:   "tenant-W",
		Name:       "换流测试",
		WorkflowID: &wf1.ID,
		CreatedBy:  "user-1",
	})
	if err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	// 无素材时可更换
	if _, err := svc.UpdateProject(ctx, "tenant-W", proj.ID, &UpdateProjectRequest{WorkflowID: &wf2.ID}); err != nil {
		t.Fatalf("无素材时更换工作流失败: %v", err)
	}

	if err := db.Exec(
		`INSERT INTO assets (id, tenant_id, project_id) VALUES (?, ?, ?)`,
		"asset-1", "tenant-W", proj.ID,
	).Error; err != nil {
		t.Fatalf("插入素材失败: %v", err)
	}

	// 有素材后不可更换
	if _, err := svc.UpdateProject(ctx, "tenant-W", proj.ID, &UpdateProjectRequest{WorkflowID: &wf1.ID}); err == nil {
		t.Fatalf("有素材后更换工作流应当失败")
	}
}

func TestProjectServiceDelete(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := newProjectTestServices(t)

	proj, err := svc.CreateProject(ctx, &CreateProjectRequest{
		TenantID:  "tenant-D",
		Name:      "待删除",
		CreatedBy: "user-1",
	})
	if err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	if err := svc.DeleteProject(ctx, "tenant-D", proj.ID, "user-1"); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if _, err := svc.GetProject(ctx, "tenant-D", proj.ID); err == nil {
		t.Fatalf("删除后的项目不应可见")
	}
}
