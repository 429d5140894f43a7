package cache

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
)

var (
	// rs 全局的Redsync实例
	rs       *redsync.Redsync
	lockOnce sync.Once
)

// ErrLockNotAcquired 未能在重试次数内拿到锁
var ErrLockNotAcquired = errors.New("lock not acquired")

// localLocks 进程内的命名锁，Redis不可用时的降级方案
var localLocks sync.Map // string -> *sync.Mutex

// DistributedLockService 分布式锁服务。Redis不可用时退化为进程内互斥锁，
// 单实例部署下语义等价。
type DistributedLockService struct {
	rs *redsync.Redsync
}

// InitDistLock 初始化分布式锁
func InitDistLock() {
	lockOnce.Do(func() {
		client, err := GetClient()
		if err != nil {
			log.Printf("分布式锁不可用: %v", err)
			return
		}
		pool := goredis.NewPool(client)
		rs = redsync.New(pool)
		log.Println("分布式锁初始化成功")
	})
}

// GetLockService 获取分布式锁服务实例
func GetLockService() *DistributedLockService {
	InitDistLock()
	return &DistributedLockService{rs: rs}
}

// WithLock 在命名锁的保护下执行action
func (s *DistributedLockService) WithLock(lockName string, expiry time.Duration, action func() error) error {
	if s == nil || s.rs == nil {
		v, _ := localLocks.LoadOrStore(lockName, &sync.Mutex{})
		mu := v.(*sync.Mutex)
		mu.Lock()
		defer mu.Unlock()
		return action()
	}

	mutex := s.rs.NewMutex(lockName,
		redsync.WithExpiry(expiry),
		redsync.WithTries(5),
		redsync.WithRetryDelay(50*time.Millisecond),
		redsync.WithDriftFactor(0.01),
	)

	if err := mutex.Lock(); err != nil {
		return ErrLockNotAcquired
	}
	defer func() {
		if _, err := mutex.Unlock(); err != nil {
			log.Printf("释放锁 %s 失败: %v", lockName, err)
		}
	}()

	return action()
}
