package auth

import (
	"sync"
	"time"
)

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// loginLimiter はIPごとのログイン失敗回数を数え、loginWindow 内に maxLoginAttempts 回失敗すると
// lockDuration の間ロックします。
type loginLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptState
}

func newLoginLimiter() *loginLimiter {
	return &loginLimiter{attempts: make(map[string]*attemptState)}
}

// locked はロック中であれば残り時間を返します。
func (l *loginLimiter) locked(ip string, now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.attempts[ip]
	if !ok || !now.Before(state.lockedUntil) {
		return 0
	}
	return state.lockedUntil.Sub(now)
}

// fail は失敗を記録し、残りの試行回数と今回ロックされたかどうかを返します。
func (l *loginLimiter) fail(ip string, now time.Time) (remaining int, locked bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(now)

	state, ok := l.attempts[ip]
	if !ok || now.Sub(state.firstAttempt) > loginWindow {
		state = &attemptState{firstAttempt: now}
		l.attempts[ip] = state
	}

	state.count++
	if state.count >= maxLoginAttempts {
		state.count = maxLoginAttempts
		state.lockedUntil = now.Add(lockDuration)
		locked = true
	}
	return maxLoginAttempts - state.count, locked
}

func (l *loginLimiter) reset(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, ip)
}

// prune は集計期間もロックも過ぎたエントリを捨てます。呼び出し側でロックを保持します。
func (l *loginLimiter) prune(now time.Time) {
	for ip, state := range l.attempts {
		if now.Sub(state.firstAttempt) > loginWindow && !now.Before(state.lockedUntil) {
			delete(l.attempts, ip)
		}
	}
}
