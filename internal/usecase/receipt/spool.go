package receipt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileSpool пишет квитанции файлами в каталог; внешний демон печати
// забирает их оттуда сам
type FileSpool struct {
	dir string
}

// NewFileSpool создает спул, каталог создаётся при необходимости
func NewFileSpool(dir string) (*FileSpool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &FileSpool{dir: dir}, nil
}

// Print сохраняет документ; запись атомарна через переименование,
// чтобы демон не подхватил недописанный файл
func (s *FileSpool) Print(_ context.Context, name string, data []byte) error {
	tmp := filepath.Join(s.dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish receipt: %w", err)
	}
	return nil
}
