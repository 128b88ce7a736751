package transfer

// 服务间路由
const GamePush = "game.push"

// 游戏节点订阅的请求路由
const GameSessionCreate = "game.session.create"
const GameSessionPlay = "game.session.play"
const GameSessionReconnect = "game.reconnect"

// 游戏推送路由
const GameplaySnapshot = "gameplay.state.snapshot"       // 全量状态快照
const GameplayRoundEnd = "gameplay.round.end"            // 回合结束
const GameplayMatchEnd = "gameplay.match.end"            // 对局结束
const GameplayForfeit = "gameplay.timeout.forfeit"       // 超时判负
const GameplayPeerReconnect = "gameplay.peer.reconnect"  // 对手重连
const GameplayPeerDisconnect = "gameplay.peer.disconnect" // 对手掉线
const GameplaySessionCancel = "gameplay.session.cancel"  // 会话被回收
const GameplayPlayRejected = "gameplay.play.rejected"    // 出牌被拒
