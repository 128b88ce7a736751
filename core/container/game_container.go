package container

import (
	"fmt"
	"sync"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/config"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/log"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/infrastructure/persistence"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/infrastructure/realtime"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/engines"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/engines/bisca"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/share"
)

// GameContainer game 服务专用容器
// 继承 BaseContainer 的数据库连接，添加 game 服务特定的依赖
type GameContainer struct {
	*BaseContainer
	GameWorker *game.Worker
	Watchdog   *game.Watchdog
	closed     bool
	mu         sync.Mutex
}

// NewGameContainer 创建 game 服务容器
// 装配顺序：数据库 -> 仓储 -> Worker -> 引擎工厂 -> 看门狗
func NewGameContainer() *GameContainer {
	base := NewBase(config.GameNodeConfig.DatabaseConf)
	if base == nil {
		log.Fatal("基础容器初始化失败")
		return nil
	}

	matchRepo := persistence.NewMatchRecordRepository(base.mongo)
	ledger := persistence.NewCoinLedgerRepository(base.mongo)
	store := realtime.NewRedisSessionStoreRepository(base.redis)

	worker := game.NewWorker(config.GameNodeConfig.ID)
	worker.SetRepositories(store, matchRepo, ledger)
	worker.SetEngineFactories(createBiscaEngine, restoreBiscaEngine)

	watchdog := game.NewWatchdog(worker)

	return &GameContainer{
		BaseContainer: base,
		GameWorker:    worker,
		Watchdog:      watchdog,
	}
}

// createBiscaEngine 引擎工厂，注入到 Worker
// game 包不依赖具体引擎实现，工厂在容器这一层闭合依赖环
func createBiscaEngine(w *game.Worker, params *share.SessionParams) engines.Engine {
	return bisca.NewBisca2p(w, params)
}

func restoreBiscaEngine(w *game.Worker, sessionID string, blob []byte) (engines.Engine, map[string]*share.UserInfo, error) {
	return bisca.RestoreBisca2p(w, sessionID, blob)
}

// Close 关闭容器资源（幂等操作，可以安全地多次调用）
// 关闭顺序：1. GameWorker 2. BaseContainer（数据库连接）
func (c *GameContainer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	var errs []error

	if c.GameWorker != nil {
		c.GameWorker.Close()
	}
	if c.BaseContainer != nil {
		if err := c.BaseContainer.Close(); err != nil {
			log.Error("BaseContainer 关闭失败: %v", err)
			errs = append(errs, err)
		}
	}

	c.closed = true

	if len(errs) > 0 {
		return fmt.Errorf("关闭资源时发生 %d 个错误", len(errs))
	}

	log.Info("GameContainer 已关闭")
	return nil
}
