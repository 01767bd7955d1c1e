package pdf

import (
	"context"
	"mime/multipart"

	"github.com/yourusername/pdf-opticompress/internal/optimizer"
)

// AnalyzeMultipart は単一PDFを受け取り、内容の内訳と削減見積もりを返します。
// 作業ディレクトリは応答前に削除します。
func (s *Service) AnalyzeMultipart(ctx context.Context, file *multipart.FileHeader) (*AnalyzeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if file == nil {
		return nil, optimizer.NewError(optimizer.CodeInvalidInput, "PDFファイルを選択してください。", nil)
	}

	ws, err := s.workspaces.Create()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = s.workspaces.Remove(ws)
	}()

	stored, err := s.storeMultipartFile(ctx, file, ws.InDir)
	if err != nil {
		return nil, err
	}

	return &AnalyzeResult{
		Source: SourceFileMeta{
			Name:  stored.originalName,
			Size:  stored.size,
			Pages: stored.pages,
		},
		Analysis: stored.analysis,
	}, nil
}
