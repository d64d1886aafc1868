package asset

import (
	"context"
	"fmt"
	"testing"
	"time"

	"backend/internal/project"
	"backend/internal/workflow"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAssetServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:asset_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	if err := db.AutoMigrate(&workflow.Workflow{}, &project.Project{}, &Folder{}, &Asset{}); err != nil {
		t.Fatalf("迁移 schema 失败: %v", err)
	}
	return db
}

func newAssetTestServices(t *testing.T) (*gorm.DB, *AssetService, *project.ProjectService) {
	t.Helper()
	db := setupAssetServiceTestDB(t)
	wfSvc := workflow.NewWorkflowService(db)
	projSvc := project.NewProjectService(db, wfSvc)
	return db, NewAssetService(db, projSvc), projSvc
}

func createTestProject(t *testing.T, svc *project.ProjectService, tenantID string) *project.Project {
	t.Helper()
	proj, err := svc.CreateProject(context.Background(), &project.CreateProjectRequest{
		TenantID:  tenantID,
		Name:      "测试项目",
		CreatedBy: "owner-1",
	})
	if err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}
	return proj
}

func TestAssetServiceCreateAndList(t *testing.T) {
	ctx := context.Background()
	_, svc, projSvc := newAssetTestServices(t)
	proj := createTestProject(t, projSvc, "tenant-A")

	created, err := svc.CreateAsset(ctx, &CreateAssetRequest{
		TenantID:  "tenant-A",
		ProjectID: proj.ID,
		Name:      "banner.png",
		Type:      TypeImage,
		FileURL:   "https://cdn.example.com/banner.png",
		FileSize:  2048,
		MimeType:  "image/png",
		CreatedBy: "user-1",
	})
	if err != nil {
		t.Fatalf("创建素材失败: %v", err)
	}
	if created.Version != 1 || created.IsFinalApproved() {
		t.Fatalf("新素材初始状态不正确: %+v", created)
	}

	resp, err := svc.ListAssets(ctx, &ListAssetsRequest{TenantID: "tenant-A", ProjectID: proj.ID})
	if err != nil {
		t.Fatalf("查询列表失败: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("素材数量不正确: %+v", resp)
	}

	// 跨组织查询返回不存在
	if _, err := svc.GetAsset(ctx, "tenant-B", created.ID); err == nil {
		t.Fatalf("跨组织查询应返回不存在")
	}

	// 类型过滤
	byType, err := svc.ListAssets(ctx, &ListAssetsRequest{TenantID: "tenant-A", ProjectID: proj.ID, Type: TypeVideo})
	if err != nil {
		t.Fatalf("查询列表失败: %v", err)
	}
	if byType.Total != 0 {
		t.Fatalf("类型过滤不正确: %+v", byType)
	}
}

func TestAssetServiceCreateValidation(t *testing.T) {
	ctx := context.Background()
	_, svc, projSvc := newAssetTestServices(t)
	proj := createTestProject(t, projSvc, "tenant-V")

	if _, err := svc.CreateAsset(ctx, &CreateAssetRequest{
		TenantID: "tenant-V", ProjectID: proj.ID, Name: "", CreatedBy: "user-1",
	}); err == nil {
		t.Fatalf("空名称应当失败")
	}
	if _, err := svc.CreateAsset(ctx, &CreateAssetRequest{
		TenantID: "tenant-V", ProjectID: proj.ID, Name: "x", Type: "hologram", CreatedBy: "user-1",
	}); err == nil {
		t.Fatalf("非法类型应当失败")
	}

	// 非 active 项目不可新增素材
	status := project.StatusArchived
	if _, err := projSvc.UpdateProject(ctx, "tenant-V", proj.ID, &project.UpdateProjectRequest{Status: &status}); err != nil {
		t.Fatalf("更新项目状态失败: %v", err)
	}
	if _, err := svc.CreateAsset(ctx, &CreateAssetRequest{
		TenantID: "tenant-V", ProjectID: proj.ID, Name: "late.png", Type: TypeImage, CreatedBy: "user-1",
	}); err == nil {
		t.Fatalf("归档项目新增素材应当失败")
	}
}

func TestAssetServiceFolderDepthLimit(t *testing.T) {
	ctx := context.Background()
	_, svc, projSvc := newAssetTestServices(t)
	proj := createTestProject(t, projSvc, "tenant-F")

	var parentID *string
	for i := 1; i <= MaxFolderDepth; i++ {
		folder, err := svc.CreateFolder(ctx, &CreateFolderRequest{
			TenantID:  "tenant-F",
			ProjectID: proj.ID,
			ParentID:  parentID,
			Name:      fmt.Sprintf("层级%d", i),
			CreatedBy: "user-1",
		})
		if err != nil {
			t.Fatalf("创建第 %d 层文件夹失败: %v", i, err)
		}
		if folder.Depth != i {
			t.Fatalf("第 %d 层深度不正确: %+v", i, folder)
		}
		parentID = &folder.ID
	}

	// 第六层应当失败
	if _, err := svc.CreateFolder(ctx, &CreateFolderRequest{
		TenantID:  "tenant-F",
		ProjectID: proj.ID,
		ParentID:  parentID,
		Name:      "超限层",
		CreatedBy: "user-1",
	}); err == nil {
		t.Fatalf("超过最大嵌套深度应当失败")
	}
}

func TestAssetServiceFolderDeleteRequiresEmpty(t *testing.T) {
	ctx := context.Background()
	_, svc, projSvc := newAssetTestServices(t)
	proj := createTestProject(t, projSvc, "tenant-E")

	folder, err := svc.CreateFolder(ctx, &CreateFolderRequest{
		TenantID: "tenant-E", ProjectID: proj.ID, Name: "待删", CreatedBy: "user-1",
	})
	if err != nil {
		t.Fatalf("创建文件夹失败: %v", err)
	}

	a, err := svc.CreateAsset(ctx, &CreateAssetRequest{
		TenantID: "tenant-E", ProjectID: proj.ID, FolderID: &folder.ID,
		Name: "inside.png", Type: TypeImage, CreatedBy: "user-1",
	})
	if err != nil {
		t.Fatalf("创建素材失败: %v", err)
	}

	if err := svc.DeleteFolder(ctx, "tenant-E", folder.ID, "user-1"); err == nil {
		t.Fatalf("非空文件夹删除应当失败")
	}

	if err := svc.DeleteAsset(ctx, "tenant-E", a.ID, "user-1"); err != nil {
		t.Fatalf("删除素材失败: %v", err)
	}
	if err := svc.DeleteFolder(ctx, "tenant-E", folder.ID, "user-1"); err != nil {
		t.Fatalf("清空后删除文件夹失败: %v", err)
	}
}

func TestAssetServiceUpdateBumpsVersionAndFreezesAfterFinal(t *testing.T) {
	ctx := context.Background()
	db, svc, projSvc := newAssetTestServices(t)
	proj := createTestProject(t, projSvc, "tenant-U")

	a, err := svc.CreateAsset(ctx, &CreateAssetRequest{
		TenantID: "tenant-U", ProjectID: proj.ID,
		Name: "spot.mp4", Type: TypeVideo, FileURL: "v1.mp4", CreatedBy: "user-1",
	})
	if err != nil {
		t.Fatalf("创建素材失败: %v", err)
	}

	newURL := "v2.mp4"
	updated, err := svc.UpdateAsset(ctx, "tenant-U", a.ID, &UpdateAssetRequest{FileURL: &newURL})
	if err != nil {
		t.Fatalf("更新素材失败: %v", err)
	}
	if updated.Version != 2 || updated.FileURL != "v2.mp4" {
		t.Fatalf("替换文件后版本应加一: %+v", updated)
	}

	// 仅改名不加版本
	name := "spot-final.mp4"
	renamed, err := svc.UpdateAsset(ctx, "tenant-U", a.ID, &UpdateAssetRequest{Name: &name})
	if err != nil {
		t.Fatalf("重命名失败: %v", err)
	}
	if renamed.Version != 2 {
		t.Fatalf("改名不应加版本: %+v", renamed)
	}

	// 终审后冻结
	now := time.Now().UTC()
	if err := db.Model(&Asset{}).Where("id = ?", a.ID).Updates(map[string]any{
		"final_approved_by": "admin-1",
		"final_approved_at": now,
	}).Error; err != nil {
		t.Fatalf("写入终审字段失败: %v", err)
	}
	if _, err := svc.UpdateAsset(ctx, "tenant-U", a.ID, &UpdateAssetRequest{FileURL: &newURL}); err == nil {
		t.Fatalf("终审后修改素材应当失败")
	}
}
