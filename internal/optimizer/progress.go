package optimizer

// ProgressReporter は進捗更新用コールバックです。
type ProgressReporter func(stage string, percent int)

// 進捗ステージ
const (
	StageLoad      = "load"
	StageAnalyze   = "analyze"
	StageImages    = "images"
	StageCompress  = "compress"
	StageWrite     = "write"
	StageCompleted = "completed"
)

func reportProgress(cb ProgressReporter, stage string, percent int) {
	if cb == nil {
		return
	}
	cb(stage, clamp(percent, 0, 100))
}
