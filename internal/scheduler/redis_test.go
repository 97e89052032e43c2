package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

func TestRedisClientOpt_ParsesURL(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6380/2", false)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.Addr != "localhost:6380" {
		t.Errorf("addr = %q, want localhost:6380", opt.Addr)
	}
	if opt.Password != "secret" {
		t.Errorf("password = %q, want secret", opt.Password)
	}
	if opt.DB != 2 {
		t.Errorf("db = %d, want 2", opt.DB)
	}
	if opt.TLSConfig != nil {
		t.Error("plain redis url should not carry a tls config")
	}
}

func TestRedisClientOpt_TLSInsecure(t *testing.T) {
	opt, err := redisClientOpt("rediss://localhost:6380", true)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.TLSConfig == nil {
		t.Fatal("rediss url should carry a tls config")
	}
	if !opt.TLSConfig.InsecureSkipVerify {
		t.Error("tls config should skip verification when insecure is set")
	}
}

func TestRedisClientOpt_InvalidURL(t *testing.T) {
	if _, err := redisClientOpt("not-a-url", false); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}

func TestEnqueueOutboxDueTask(t *testing.T) {
	mr := miniredis.RunT(t)

	opt, err := redisClientOpt("redis://"+mr.Addr(), false)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}

	client := asynq.NewClient(opt)
	defer client.Close()

	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{
		OutboxID:       "0b8f6f9e-6a3f-4f2b-9f3e-1a2b3c4d5e6f",
		OrganizationID: "7c1d2e3f-4a5b-6c7d-8e9f-0a1b2c3d4e5f",
	})
	if err != nil {
		t.Fatalf("NewNotificationOutboxDueTask: %v", err)
	}

	info, err := client.EnqueueContext(context.Background(), task,
		asynq.ProcessAt(time.Now().Add(time.Minute)), asynq.Queue("default"))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if info.Type != TaskNotificationOutboxDue {
		t.Errorf("task type = %q, want %q", info.Type, TaskNotificationOutboxDue)
	}
	if len(mr.Keys()) == 0 {
		t.Error("expected task keys in redis after enqueue")
	}
}
