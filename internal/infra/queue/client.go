package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend/internal/approval"
	"backend/internal/config"
	"backend/internal/worker/tasks"

	"github.com/hibiken/asynq"
)

// Client 任务队列客户端接口
type Client interface {
	EnqueueApprovalNotify(ctx context.Context, payload tasks.ApprovalNotifyPayload) error
	Close() error
}

type asynqClient struct {
	client *asynq.Client
}

// NewClient 创建任务队列客户端
func NewClient(cfg config.RedisConfig) Client {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &asynqClient{client: client}
}

func (c *asynqClient) EnqueueApprovalNotify(ctx context.Context, payload tasks.ApprovalNotifyPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(tasks.TypeApprovalNotify, data)

	// 通知尽力而为：少量重试，短超时
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
		asynq.Queue("notify"), // 通知专用队列
	)
	if err != nil {
		return fmt.Errorf("enqueue task failed: %w", err)
	}
	return nil
}

func (c *asynqClient) Close() error {
	return c.client.Close()
}

// ApprovalPublisher 把队列客户端适配为审批服务的事件发布接口
type ApprovalPublisher struct {
	client Client
}

// NewApprovalPublisher 创建审批事件发布器
func NewApprovalPublisher(client Client) *ApprovalPublisher {
	return &ApprovalPublisher{client: client}
}

// PublishApprovalEvent 将审批事件投递到通知队列
func (p *ApprovalPublisher) PublishApprovalEvent(ctx context.Context, event *approval.ApprovalEvent) error {
	return p.client.EnqueueApprovalNotify(ctx, tasks.ApprovalNotifyPayload{
		EventType:  event.Type,
		TenantID:   event.TenantID,
		AssetID:    event.AssetID,
		ProjectID:  event.ProjectID,
		StageOrder: event.StageOrder,
		ActorID:    event.ActorID,
		Status:     event.Status,
		Note:       event.Note,
	})
}
