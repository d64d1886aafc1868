package comment

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupCommentServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:comment_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	if err := db.AutoMigrate(&Comment{}); err != nil {
		t.Fatalf("迁移 schema 失败: %v", err)
	}
	// 评论服务通过裸表名校验素材存在
	if err := db.Exec(`CREATE TABLE assets (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		deleted_at DATETIME
	)`).Error; err != nil {
		t.Fatalf("建 assets 表失败: %v", err)
	}
	if err := db.Exec(`INSERT INTO assets (id, tenant_id) VALUES ('asset-1', 'org-1')`).Error; err != nil {
		t.Fatalf("插入素材失败: %v", err)
	}
	return db
}

func TestCommentServiceCreateAndThread(t *testing.T) {
	ctx := context.Background()
	db := setupCommentServiceTestDB(t)
	svc := NewCommentService(db)

	root, err := svc.CreateComment(ctx, &CreateCommentRequest{
		TenantID: "org-1", AssetID: "asset-1", AuthorID: "user-1",
		Body:       "左上角的 logo 再大一点",
		Annotation: &Annotation{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.1},
	})
	if err != nil {
		t.Fatalf("创建评论失败: %v", err)
	}
	if len(root.Annotation) == 0 {
		t.Fatalf("标注未写入: %+v", root)
	}

	reply, err := svc.CreateComment(ctx, &CreateCommentRequest{
		TenantID: "org-1", AssetID: "asset-1", ParentID: &root.ID,
		AuthorID: "user-2", Body: "收到，下一版调整",
	})
	if err != nil {
		t.Fatalf("创建回复失败: %v", err)
	}
	if reply.ParentID == nil || *reply.ParentID != root.ID {
		t.Fatalf("回复未挂到父评论: %+v", reply)
	}

	// 回复不可带标注
	if _, err := svc.CreateComment(ctx, &CreateCommentRequest{
		TenantID: "org-1", AssetID: "asset-1", ParentID: &root.ID,
		AuthorID: "user-2", Body: "又一条", Annotation: &Annotation{X: 0.5, Y: 0.5},
	}); err == nil {
		t.Fatalf("回复带标注应当失败")
	}

	// 不存在的素材
	if _, err := svc.CreateComment(ctx, &CreateCommentRequest{
		TenantID: "org-1", AssetID: "asset-miss", AuthorID: "user-1", Body: "x",
	}); err == nil {
		t.Fatalf("素材不存在应当失败")
	}

	comments, err := svc.ListComments(ctx, "org-1", "asset-1", nil)
	if err != nil {
		t.Fatalf("查询列表失败: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("评论数量不正确: %+v", comments)
	}
}

func TestCommentServiceEditKeepsDiffHistory(t *testing.T) {
	ctx := context.Background()
	db := setupCommentServiceTestDB(t)
	svc := NewCommentService(db)

	c, err := svc.CreateComment(ctx, &CreateCommentRequest{
		TenantID: "org-1", AssetID: "asset-1", AuthorID: "user-1",
		Body: "第一版文案",
	})
	if err != nil {
		t.Fatalf("创建评论失败: %v", err)
	}

	// 非作者不可编辑
	if _, err := svc.UpdateComment(ctx, "org-1", c.ID, "user-2", "改掉"); err == nil {
		t.Fatalf("非作者编辑应当失败")
	}

	updated, err := svc.UpdateComment(ctx, "org-1", c.ID, "user-1", "第二版文案")
	if err != nil {
		t.Fatalf("编辑评论失败: %v", err)
	}
	if updated.Body != "第二版文案" {
		t.Fatalf("正文未更新: %+v", updated)
	}
	if len(updated.History) != 1 {
		t.Fatalf("历史数量不正确: %+v", updated.History)
	}
	if updated.History[0].Body != "第一版文案" {
		t.Fatalf("旧正文未归档: %+v", updated.History[0])
	}
	if !strings.Contains(updated.History[0].Diff, "-第一版文案") ||
		!strings.Contains(updated.History[0].Diff, "+第二版文案") {
		t.Fatalf("统一 diff 不正确: %q", updated.History[0].Diff)
	}

	// 内容不变时不产生历史
	same, err := svc.UpdateComment(ctx, "org-1", c.ID, "user-1", "第二版文案")
	if err != nil {
		t.Fatalf("编辑评论失败: %v", err)
	}
	if len(same.History) != 1 {
		t.Fatalf("内容不变不应新增历史: %+v", same.History)
	}
}

func TestCommentServiceResolveAndDelete(t *testing.T) {
	ctx := context.Background()
	db := setupCommentServiceTestDB(t)
	svc := NewCommentService(db)

	c, err := svc.CreateComment(ctx, &CreateCommentRequest{
		TenantID: "org-1", AssetID: "asset-1", AuthorID: "user-1", Body: "待解决",
	})
	if err != nil {
		t.Fatalf("创建评论失败: %v", err)
	}

	resolved, err := svc.ResolveComment(ctx, "org-1", c.ID, "user-2", true)
	if err != nil {
		t.Fatalf("标记解决失败: %v", err)
	}
	if !resolved.Resolved || resolved.ResolvedBy != "user-2" || resolved.ResolvedAt == nil {
		t.Fatalf("解决状态不正确: %+v", resolved)
	}

	// 按解决状态过滤
	tr := true
	list, err := svc.ListComments(ctx, "org-1", "asset-1", &tr)
	if err != nil {
		t.Fatalf("查询列表失败: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("过滤结果不正确: %+v", list)
	}

	reopened, err := svc.ResolveComment(ctx, "org-1", c.ID, "user-2", false)
	if err != nil {
		t.Fatalf("取消解决失败: %v", err)
	}
	if reopened.Resolved || reopened.ResolvedAt != nil {
		t.Fatalf("取消解决未生效: %+v", reopened)
	}

	// 非作者非管理员不可删除
	if err := svc.DeleteComment(ctx, "org-1", c.ID, "user-3", "member"); err == nil {
		t.Fatalf("无权限删除应当失败")
	}
	// 管理员可删除
	if err := svc.DeleteComment(ctx, "org-1", c.ID, "admin-1", "admin"); err != nil {
		t.Fatalf("管理员删除失败: %v", err)
	}
	if _, err := svc.GetComment(ctx, "org-1", c.ID); err == nil {
		t.Fatalf("删除后的评论不应可见")
	}
}
