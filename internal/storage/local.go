// Package storage は作業ディレクトリと入力ファイルのステージングを提供します。
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Workspace はジョブ1件分の作業ディレクトリです（<root>/<jobID>/in|out）。
type Workspace struct {
	JobID  string
	Dir    string
	InDir  string
	OutDir string
}

// Path はジョブディレクトリ直下のファイルパスを返します。
func (w Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// Workspaces はルートディレクトリ配下の作業ディレクトリを管理します。
type Workspaces struct {
	root  string
	newID func() string
}

// NewWorkspaces は root 配下に作業ディレクトリを作成する Workspaces を返します。
func NewWorkspaces(root string) *Workspaces {
	return &Workspaces{root: root, newID: uuid.NewString}
}

// Root はルートディレクトリを返します。
func (w *Workspaces) Root() string {
	return w.root
}

// Create は新しいジョブIDで作業ディレクトリを作成します。
func (w *Workspaces) Create() (Workspace, error) {
	ws := w.layout(w.newID())
	for _, dir := range []string{ws.InDir, ws.OutDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return Workspace{}, fmt.Errorf("作業ディレクトリの作成に失敗しました: %w", err)
		}
	}
	return ws, nil
}

// For は既存ジョブの作業ディレクトリを返します。jobID はUUIDでなければなりません。
func (w *Workspaces) For(jobID string) (Workspace, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return Workspace{}, fmt.Errorf("invalid job id %q: %w", jobID, err)
	}
	return w.layout(jobID), nil
}

// Remove はジョブの作業ディレクトリを削除します。
func (w *Workspaces) Remove(ws Workspace) error {
	return RemoveDir(ws.Dir)
}

// ExpireAfter は d 経過後に作業ディレクトリを削除します。
func (w *Workspaces) ExpireAfter(ws Workspace, d time.Duration) *time.Timer {
	return time.AfterFunc(d, func() {
		_ = RemoveDir(ws.Dir)
	})
}

func (w *Workspaces) layout(jobID string) Workspace {
	dir := filepath.Join(w.root, jobID)
	return Workspace{
		JobID:  jobID,
		Dir:    dir,
		InDir:  filepath.Join(dir, "in"),
		OutDir: filepath.Join(dir, "out"),
	}
}

// RemoveDir はディレクトリを再帰的に削除します。空文字は何もしません。
func RemoveDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}
