package repository

import "errors"

var (
	// 对局记录相关错误
	ErrMatchRecordNotFound = errors.New("match record not found")

	// 会话存储相关错误
	ErrSnapshotNotFound = errors.New("session snapshot not found")
	ErrMetadataNotFound = errors.New("session metadata not found")
	ErrPlayerNotMapped  = errors.New("player has no session mapping")
	ErrHeartbeatMissing = errors.New("session heartbeat missing")
)
