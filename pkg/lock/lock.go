// Package lock 提供 (节点, 内容) 粒度的建议锁，防止本地化写入与重新分发互相覆盖。
package lock

import (
	"context"
	"fmt"
	"sync"
)

// Locker 获取 key 上的互斥锁，返回释放函数
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// MirrorKey 是镜像行的锁键
func MirrorKey(nodeID, contentID string) string {
	return fmt.Sprintf("lock:mirror:%s:%s", nodeID, contentID)
}

type entry struct {
	ch   chan struct{}
	refs int
}

// LocalLocker 是单进程实现，锁条目在无人持有时回收
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*entry)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, nil
}

func (l *LocalLocker) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}
