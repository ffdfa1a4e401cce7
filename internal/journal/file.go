package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileRecorder는 마지막 사이클 기록을 JSON 파일로 덮어씁니다
type FileRecorder struct {
	path string
}

// NewFileRecorder는 새로운 FileRecorder를 생성합니다
func NewFileRecorder(path string) *FileRecorder {
	return &FileRecorder{path: path}
}

// Record는 기록을 임시 파일에 쓴 뒤 교체합니다
func (f *FileRecorder) Record(_ context.Context, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("사이클 기록 직렬화 실패: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("기록 디렉토리 생성 실패: %w", err)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("사이클 기록 저장 실패: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("사이클 기록 교체 실패: %w", err)
	}
	return nil
}

// Last는 저장된 마지막 기록을 읽습니다
func (f *FileRecorder) Last() (Record, error) {
	var rec Record
	data, err := os.ReadFile(f.path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("사이클 기록 파싱 실패: %w", err)
	}
	return rec, nil
}
