package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrFeedItemNotFound   = errors.New("动态不存在")
	ErrCommentNotFound    = errors.New("评论不存在")
	ErrReactionNotFound   = errors.New("没有可撤销的表态")
	ErrRequestNotFound    = errors.New("好友请求不存在")
	ErrFriendshipNotFound = errors.New("好友关系不存在")
	ErrPermissionDenied   = errors.New("没有权限")

	ErrAlreadyReacted   = errors.New("已经用过这个 emoji 表态了")
	ErrAlreadyFriends   = errors.New("已经是好友了")
	ErrSelfRequest      = errors.New("不能添加自己为好友")
	ErrRequestPending   = errors.New("好友请求已发送")
	ErrRequestFinalized = errors.New("好友请求已处理")
	ErrEmptyContent     = errors.New("内容不能为空")

	// Spotify 客户端错误分类
	ErrNoActiveDevice      = errors.New("没有可用的播放设备")
	ErrPremiumRequired     = errors.New("需要 Spotify Premium 账号")
	ErrSpotifyUnauthorized = errors.New("Spotify 授权已失效")
)
