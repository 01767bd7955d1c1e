package optimizer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/yourusername/pdf-opticompress/internal/storage"
)

// Stager は入力（ローカルパスまたはURL）を処理可能なローカルパスに変換します。
type Stager interface {
	Stage(ctx context.Context, input string) (path string, cleanup func(), err error)
}

type localStager struct{}

func (localStager) Stage(_ context.Context, input string) (string, func(), error) {
	return input, func() {}, nil
}

// ValidateInputFile は入力ファイルが存在し、通常ファイルで、読み取り可能かを確認します。
func ValidateInputFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewError(CodeIO, fmt.Sprintf("入力ファイルが見つかりません: %s", path), err)
		}
		return NewError(CodeIO, fmt.Sprintf("入力ファイルを確認できません: %s", path), err)
	}
	if !info.Mode().IsRegular() {
		return NewError(CodeIO, fmt.Sprintf("入力パスは通常ファイルではありません: %s", path), nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return NewError(CodeIO, fmt.Sprintf("入力ファイルを読み取れません: %s", path), err)
	}
	return f.Close()
}

func stageInput(ctx context.Context, stager Stager, input string) (string, func(), error) {
	path, cleanup, err := stager.Stage(ctx, input)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return "", nil, NewError(CodeLimitExceeded, "ダウンロードサイズが上限を超えています。", err)
		}
		return "", nil, NewError(CodeFetch, fmt.Sprintf("入力を取得できませんでした: %s", input), err)
	}
	if cleanup == nil {
		cleanup = func() {}
	}
	return path, cleanup, nil
}
