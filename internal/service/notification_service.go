package service

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"peekify_backend/internal/config"
	"peekify_backend/internal/model"
	"peekify_backend/internal/repository"
	"peekify_backend/pkg/logger"
	"peekify_backend/pkg/monitoring"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
)

const (
	pushQueueSize   = 1024
	pushMaxAttempts = 3
)

// PushPayload Web Push 消息体
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

type pushJob struct {
	userID  uint
	payload PushPayload
}

// NotificationService 异步 Web Push 推送，失败重试，失效订阅自动清理
type NotificationService struct {
	PushRepo *repository.PushRepository
	Cfg      *config.Config

	queue chan pushJob
	wg    sync.WaitGroup
	once  sync.Once
}

func NewNotificationService(pushRepo *repository.PushRepository, cfg *config.Config) *NotificationService {
	s := &NotificationService{
		PushRepo: pushRepo,
		Cfg:      cfg,
		queue:    make(chan pushJob, pushQueueSize),
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

// Subscribe 登记浏览器推送订阅，endpoint 重复时覆盖
func (s *NotificationService) Subscribe(userID uint, endpoint, p256dh, auth string) error {
	if endpoint == "" || p256dh == "" || auth == "" {
		return fmt.Errorf("订阅信息不完整")
	}
	return s.PushRepo.Save(&model.PushSubscription{
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   p256dh,
		Auth:     auth,
	})
}

// Unsubscribe 按 endpoint 删除当前用户的订阅
func (s *NotificationService) Unsubscribe(userID uint, endpoint string) error {
	return s.PushRepo.DeleteByEndpoint(userID, endpoint)
}

// VAPIDPublicKey 前端订阅时需要的公钥
func (s *NotificationService) VAPIDPublicKey() string {
	return s.Cfg.Push.VAPIDPublicKey
}

// Notify 入队，队列满时丢弃并记录
func (s *NotificationService) Notify(userID uint, payload PushPayload) {
	if s.Cfg.Push.VAPIDPrivateKey == "" {
		return
	}
	select {
	case s.queue <- pushJob{userID: userID, payload: payload}:
	default:
		logger.Log.Warn("Push queue full, dropping notification", zap.Uint("userId", userID))
		monitoring.PushCounter.WithLabelValues("dropped").Inc()
	}
}

// NotifyMany 批量入队
func (s *NotificationService) NotifyMany(userIDs []uint, payload PushPayload) {
	for _, id := range userIDs {
		s.Notify(id, payload)
	}
}

func (s *NotificationService) worker() {
	defer s.wg.Done()
	for job := range s.queue {
		s.deliver(job)
	}
}

func (s *NotificationService) deliver(job pushJob) {
	subs, err := s.PushRepo.ListByUser(job.userID)
	if err != nil {
		logger.Log.Error("Failed to load push subscriptions", zap.Uint("userId", job.userID), zap.Error(err))
		return
	}

	body, err := json.Marshal(job.payload)
	if err != nil {
		return
	}

	for _, sub := range subs {
		target := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256dh,
				Auth:   sub.Auth,
			},
		}

		var lastErr error
		for attempt := 1; attempt <= pushMaxAttempts; attempt++ {
			resp, err := webpush.SendNotification(body, target, &webpush.Options{
				Subscriber:      s.Cfg.Push.Subscriber,
				VAPIDPublicKey:  s.Cfg.Push.VAPIDPublicKey,
				VAPIDPrivateKey: s.Cfg.Push.VAPIDPrivateKey,
				TTL:             3600,
			})
			if err == nil {
				status := resp.StatusCode
				resp.Body.Close()

				// 404/410 表示订阅已失效，直接清理
				if status == 404 || status == 410 {
					s.PushRepo.Delete(sub.ID)
					monitoring.PushCounter.WithLabelValues("expired").Inc()
					lastErr = nil
					break
				}
				if status < 400 {
					monitoring.PushCounter.WithLabelValues("sent").Inc()
					lastErr = nil
					break
				}
				lastErr = &pushStatusError{status: status}
			} else {
				lastErr = err
			}
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}
		if lastErr != nil {
			logger.Log.Warn("Push delivery failed",
				zap.Uint("userId", job.userID),
				zap.String("endpoint", truncateEndpoint(sub.Endpoint)),
				zap.Error(lastErr))
			monitoring.PushCounter.WithLabelValues("failed").Inc()
		}
	}
}

type pushStatusError struct {
	status int
}

func (e *pushStatusError) Error() string {
	return fmt.Sprintf("push endpoint returned status %d", e.status)
}

func truncateEndpoint(endpoint string) string {
	if len(endpoint) > 64 {
		return endpoint[:64] + "..."
	}
	return endpoint
}

// Stop 等待队列清空后退出
func (s *NotificationService) Stop() {
	s.once.Do(func() {
		close(s.queue)
	})
	s.wg.Wait()
}
