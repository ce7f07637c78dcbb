package service

import (
	"errors"

	"peekify_backend/internal/model"
	"peekify_backend/internal/repository"
	"peekify_backend/internal/util"

	"gorm.io/gorm"
)

type FriendshipService struct {
	FriendshipRepo *repository.FriendshipRepository
	UserRepo       *repository.UserRepository
	Hub            *EventHub
	Notifier       *NotificationService
}

func NewFriendshipService(friendRepo *repository.FriendshipRepository, userRepo *repository.UserRepository,
	hub *EventHub, notifier *NotificationService) *FriendshipService {
	return &FriendshipService{
		FriendshipRepo: friendRepo,
		UserRepo:       userRepo,
		Hub:            hub,
		Notifier:       notifier,
	}
}

// SendRequest 发送好友申请。对方已有一条发给我的待处理申请时，视为互相想加，直接接受
func (s *FriendshipService) SendRequest(senderID, receiverID uint) (*model.FriendRequest, bool, error) {
	if senderID == receiverID {
		return nil, false, util.ErrSelfRequest
	}

	if _, err := s.UserRepo.FindByID(receiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, util.ErrUserNotFound
		}
		return nil, false, err
	}

	isFriend, err := s.FriendshipRepo.IsFriend(senderID, receiverID)
	if err != nil {
		return nil, false, err
	}
	if isFriend {
		return nil, false, util.ErrAlreadyFriends
	}

	pending, err := s.FriendshipRepo.FindPendingBetween(senderID, receiverID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if pending != nil {
		if pending.SenderID == senderID {
			return nil, false, util.ErrRequestPending
		}
		// 对方先发的申请还在等我，互发即成为好友
		if err := s.FriendshipRepo.UpdateRequestStatus(pending.ID, model.RequestAccepted); err != nil {
			return nil, false, err
		}
		if err := s.FriendshipRepo.CreatePair(senderID, receiverID); err != nil {
			return nil, false, err
		}
		s.notifyAccepted(pending.SenderID, senderID)
		pending.Status = model.RequestAccepted
		return pending, true, nil
	}

	req := &model.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     model.RequestPending,
	}
	if err := s.FriendshipRepo.CreateRequest(req); err != nil {
		return nil, false, err
	}

	if s.Hub != nil {
		s.Hub.PushToUsers([]uint{receiverID}, WSMessage{
			Type: EventFriendRequest,
			Data: map[string]interface{}{
				"requestId": req.ID,
				"senderId":  senderID,
			},
		})
	}
	if s.Notifier != nil {
		sender, err := s.UserRepo.FindByID(senderID)
		body := "你收到一条好友申请"
		if err == nil {
			body = sender.DisplayName + " 想加你为好友"
		}
		s.Notifier.Notify(receiverID, PushPayload{
			Title: "好友申请",
			Body:  body,
			URL:   "/friends/requests",
			Tag:   "friend-request-" + req.ID,
		})
	}
	return req, false, nil
}

// AcceptRequest 只有接收者能接受，已终态的申请不能再变
func (s *FriendshipService) AcceptRequest(userID uint, requestID string) error {
	req, err := s.FriendshipRepo.GetRequest(requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrRequestNotFound
	}
	if err != nil {
		return err
	}

	if req.ReceiverID != userID {
		return util.ErrPermissionDenied
	}
	if req.Status != model.RequestPending {
		return util.ErrRequestFinalized
	}

	if err := s.FriendshipRepo.UpdateRequestStatus(requestID, model.RequestAccepted); err != nil {
		return err
	}
	if err := s.FriendshipRepo.CreatePair(req.SenderID, req.ReceiverID); err != nil {
		return err
	}

	s.notifyAccepted(req.SenderID, req.ReceiverID)
	return nil
}

// DeclineRequest 只有接收者能拒绝
func (s *FriendshipService) DeclineRequest(userID uint, requestID string) error {
	req, err := s.FriendshipRepo.GetRequest(requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrRequestNotFound
	}
	if err != nil {
		return err
	}

	if req.ReceiverID != userID {
		return util.ErrPermissionDenied
	}
	if req.Status != model.RequestPending {
		return util.ErrRequestFinalized
	}
	return s.FriendshipRepo.UpdateRequestStatus(requestID, model.RequestDeclined)
}

// RemoveFriend 解除好友关系，连同双向的历史申请一并清除
func (s *FriendshipService) RemoveFriend(userID, friendID uint) error {
	removed, err := s.FriendshipRepo.DeletePair(userID, friendID)
	if err != nil {
		return err
	}
	if !removed {
		return util.ErrFriendshipNotFound
	}
	return nil
}

func (s *FriendshipService) GetFriends(userID uint) ([]model.PublicProfile, error) {
	friends, err := s.FriendshipRepo.GetFriends(userID)
	if err != nil {
		return nil, err
	}
	profiles := make([]model.PublicProfile, 0, len(friends))
	for _, f := range friends {
		profiles = append(profiles, f.Public())
	}
	return profiles, nil
}

// PendingRequests 收到的和发出的待处理申请
func (s *FriendshipService) PendingRequests(userID uint) (received, sent []model.FriendRequest, err error) {
	received, err = s.FriendshipRepo.GetPendingReceived(userID)
	if err != nil {
		return nil, nil, err
	}
	sent, err = s.FriendshipRepo.GetPendingSent(userID)
	if err != nil {
		return nil, nil, err
	}
	return received, sent, nil
}

// notifyAccepted 通知申请发起者被接受了
func (s *FriendshipService) notifyAccepted(senderID, accepterID uint) {
	if s.Hub != nil {
		s.Hub.PushToUsers([]uint{senderID}, WSMessage{
			Type: EventFriendAccepted,
			Data: map[string]interface{}{
				"friendId": accepterID,
			},
		})
	}
	if s.Notifier != nil {
		accepter, err := s.UserRepo.FindByID(accepterID)
		body := "你的好友申请已通过"
		if err == nil {
			body = accepter.DisplayName + " 接受了你的好友申请"
		}
		s.Notifier.Notify(senderID, PushPayload{
			Title: "好友申请通过",
			Body:  body,
			URL:   "/friends",
		})
	}
}
