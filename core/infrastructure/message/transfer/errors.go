package transfer

import "errors"

var (
	ErrInvalidToken    = errors.New("令牌无效")
	ErrSessionNotFound = errors.New("会话不存在")
	ErrNotYourTurn     = errors.New("不是该玩家的回合")
	ErrIllegalPlay     = errors.New("不合法的出牌")
	ErrSessionOver     = errors.New("会话已结束")
	ErrBadRequest      = errors.New("请求参数异常")
)
