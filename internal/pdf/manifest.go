package pdf

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/pdf-opticompress/internal/optimizer"
	"github.com/yourusername/pdf-opticompress/internal/storage"
)

const manifestFilename = "manifest.json"

// JobManifest は作業ディレクトリに保存するジョブ定義です。
// 非同期ワーカーはこれだけを手がかりに処理を再開します。
type JobManifest struct {
	JobID     string           `json:"jobId"`
	Operation OperationType    `json:"operation"`
	Files     []JobFile        `json:"files"`
	Preset    optimizer.Preset `json:"preset,omitempty"`
	Quality   int              `json:"quality"`
	CreatedAt time.Time        `json:"createdAt"`
}

// JobFile はジョブ入力ファイルのメタデータを表します。
type JobFile struct {
	StoredName   string `json:"storedName"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	Pages        int    `json:"pages"`
}

// TotalSize は入力ファイルの合計バイト数です。
func (m *JobManifest) TotalSize() int64 {
	var total int64
	for _, f := range m.Files {
		total += f.Size
	}
	return total
}

// TotalPages は入力ファイルの合計ページ数です。
func (m *JobManifest) TotalPages() int {
	total := 0
	for _, f := range m.Files {
		total += f.Pages
	}
	return total
}

func (m *JobManifest) validate(jobID string) error {
	switch {
	case m.JobID != jobID:
		return fmt.Errorf("manifest belongs to job %q, not %q", m.JobID, jobID)
	case m.Operation == "":
		return errors.New("manifest missing operation")
	case len(m.Files) == 0:
		return errors.New("manifest has no input files")
	}
	return nil
}

func newJobFile(sf storedFile) JobFile {
	return JobFile{
		StoredName:   filepath.Base(sf.path),
		OriginalName: sf.originalName,
		Size:         sf.size,
		Pages:        sf.pages,
	}
}

// storedIn は inDir に保存済みの入力として復元します。解析結果は復元しません。
func (f JobFile) storedIn(inDir string) storedFile {
	return storedFile{
		path:         filepath.Join(inDir, filepath.Base(f.StoredName)),
		originalName: f.OriginalName,
		size:         f.Size,
		pages:        f.Pages,
	}
}

func writeManifest(ws storage.Workspace, manifest *JobManifest) error {
	if manifest == nil {
		return errors.New("manifest is nil")
	}
	return writeJSON(ws.Path(manifestFilename), manifest)
}

func loadManifest(ws storage.Workspace) (*JobManifest, error) {
	data, err := os.ReadFile(ws.Path(manifestFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var manifest JobManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := manifest.validate(ws.JobID); err != nil {
		return nil, err
	}
	return &manifest, nil
}
