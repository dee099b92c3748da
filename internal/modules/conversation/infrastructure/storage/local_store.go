package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	conversationEntity "ShopPulse/internal/modules/conversation/domain/entity"
	"ShopPulse/pkg/util"
)

// AttachmentStore 消息附件存储
type AttachmentStore interface {
	Save(fh *multipart.FileHeader) (conversationEntity.Attachment, error)
}

type localStore struct {
	dir     string
	baseURL string
}

// NewLocalStore 本地磁盘附件存储。dir 不存在时自动创建。
func NewLocalStore(dir string, baseURL string) (AttachmentStore, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &localStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *localStore) Save(fh *multipart.FileHeader) (conversationEntity.Attachment, error) {
	if fh == nil {
		return conversationEntity.Attachment{}, fmt.Errorf("nil file header")
	}

	src, err := fh.Open()
	if err != nil {
		return conversationEntity.Attachment{}, err
	}
	defer src.Close()

	name := util.GenerateShortUUID() + filepath.Ext(fh.Filename)
	dstPath := filepath.Join(s.dir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		return conversationEntity.Attachment{}, err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(dstPath)
		return conversationEntity.Attachment{}, err
	}

	mime := fh.Header.Get("Content-Type")
	kind := conversationEntity.AttachmentFile
	if strings.HasPrefix(mime, "image/") {
		kind = conversationEntity.AttachmentImage
	}

	return conversationEntity.Attachment{
		Url:  s.baseURL + "/" + name,
		Kind: kind,
		Name: fh.Filename,
		Size: fh.Size,
		Mime: mime,
	}, nil
}
