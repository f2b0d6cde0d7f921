package replay

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"expohall/internal/domain"
	"expohall/internal/queue"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrReplayInProgress 已有重放在进行中（并发触发被折叠，避免重复投递风暴）
var ErrReplayInProgress = errors.New("replay already in progress")

// Deliverer 签到投递接口（云端假定幂等）
type Deliverer interface {
	DeliverCheckIn(ctx context.Context, payload domain.CheckInPayload) error
}

// Pinger 连通性探测（可选，nil 时直接尝试投递）
type Pinger interface {
	Ping(ctx context.Context) error
}

// Replayer 离线签到重放器
// 触发来源：定期轮询、Submit 入队后的即时触发、MQTT 下发、手动 /sync
// 一次重放严格按插入顺序逐条投递；单条失败不阻塞其余记录
type Replayer struct {
	queue    queue.Store
	deliver  Deliverer
	pinger   Pinger
	clock    clockwork.Clock
	logger   *zap.Logger
	interval time.Duration

	inFlight atomic.Bool
	trigger  chan struct{}
}

func NewReplayer(q queue.Store, deliver Deliverer, pinger Pinger, interval time.Duration, clock clockwork.Clock, logger *zap.Logger) *Replayer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Replayer{
		queue:    q,
		deliver:  deliver,
		pinger:   pinger,
		clock:    clock,
		logger:   logger,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger 请求一次尽快重放（非阻塞，重复触发折叠为一次）
func (r *Replayer) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// ReplayOnce 执行一轮重放
// 逐条投递（最旧在前）；成功删除该条，失败保留并继续下一条
// 返回本轮投递成功数与剩余数
func (r *Replayer) ReplayOnce(ctx context.Context) (delivered, remaining int, err error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		return 0, 0, ErrReplayInProgress
	}
	defer r.inFlight.Store(false)

	recs, err := r.queue.GetAll(ctx)
	if err != nil {
		return 0, 0, err
	}

	for i, rec := range recs {
		if ctx.Err() != nil {
			remaining += len(recs) - i
			break
		}
		if derr := r.deliver.DeliverCheckIn(ctx, rec.Payload()); derr != nil {
			// 留在队列里等下一轮，不做即时重试（网络可能仍然不通）
			remaining++
			r.logger.Warn("Check-in replay failed, record kept",
				zap.String("id", rec.ID), zap.String("uid", rec.UID), zap.Error(derr))
			continue
		}
		if derr := r.queue.Delete(ctx, rec.ID); derr != nil {
			// 云端已确认但本地删除失败：下一轮会重复投递，云端幂等兜底
			remaining++
			r.logger.Error("Failed to remove acknowledged check-in",
				zap.String("id", rec.ID), zap.Error(derr))
			continue
		}
		delivered++
	}
	return delivered, remaining, nil
}

// Run 重放循环：定期/触发式唤醒，投递持续失败时指数退避，队列清空后复位
func (r *Replayer) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.interval
	b.MaxInterval = 10 * r.interval
	b.MaxElapsedTime = 0 // 永不放弃

	wait := r.interval
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Replayer stopped")
			return nil
		case <-r.trigger:
		case <-r.clock.After(wait):
		}

		n, err := r.queue.Len(ctx)
		if err != nil {
			r.logger.Error("Failed to read check-in queue length", zap.Error(err))
			wait = b.NextBackOff()
			continue
		}
		if n == 0 {
			b.Reset()
			wait = r.interval
			continue
		}

		// 网络未恢复时不逐条空试
		if r.pinger != nil {
			if err := r.pinger.Ping(ctx); err != nil {
				r.logger.Debug("Upstream still unreachable", zap.Error(err))
				wait = b.NextBackOff()
				continue
			}
		}

		delivered, remaining, err := r.ReplayOnce(ctx)
		if err != nil && err != ErrReplayInProgress {
			r.logger.Error("Replay pass failed", zap.Error(err))
		}
		if delivered > 0 || remaining > 0 {
			r.logger.Info("Replay pass finished",
				zap.Int("delivered", delivered), zap.Int("remaining", remaining))
		}
		if remaining > 0 {
			wait = b.NextBackOff()
		} else {
			b.Reset()
			wait = r.interval
		}
	}
}
