package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

type mockFile struct {
	*bytes.Reader
}

func (m *mockFile) Close() error {
	return nil
}

func TestLocalStorage(t *testing.T) {
	tmpDir := t.TempDir()
	storage, err := NewLocalStorage(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	t.Run("SaveTextFile", func(t *testing.T) {
		content := []byte("once upon a time")
		reader := &mockFile{bytes.NewReader(content)}

		filename, err := storage.SaveFile(reader, FileInfo{
			Filename: "book.txt",
			Kind:     KindText,
			Size:     int64(len(content)),
		})
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		if filepath.Ext(filename) != ".txt" {
			t.Errorf("Expected .txt extension, got %s", filepath.Ext(filename))
		}
		if _, err := os.Stat(filepath.Join(tmpDir, filename)); os.IsNotExist(err) {
			t.Errorf("File was not saved to expected location")
		}
	})

	t.Run("SaveAudioFile", func(t *testing.T) {
		reader := &mockFile{bytes.NewReader([]byte("mp3 bytes"))}

		filename, err := storage.SaveFile(reader, FileInfo{
			Filename: "narration.MP3",
			Kind:     KindAudio,
		})
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}
		if filepath.Ext(filename) != ".mp3" {
			t.Errorf("Expected lowercased .mp3 extension, got %s", filepath.Ext(filename))
		}
	})

	t.Run("RejectsWrongKind", func(t *testing.T) {
		reader := &mockFile{bytes.NewReader([]byte("x"))}

		if _, err := storage.SaveFile(reader, FileInfo{Filename: "book.txt", Kind: KindAudio}); err == nil {
			t.Errorf("Text file accepted as audio")
		}
		if _, err := storage.SaveFile(reader, FileInfo{Filename: "evil.exe", Kind: KindText}); err == nil {
			t.Errorf("Unknown extension accepted")
		}
	})

	t.Run("OpenFile", func(t *testing.T) {
		content := []byte("chapter one")
		testFile := "open-test.txt"
		if err := os.WriteFile(filepath.Join(tmpDir, testFile), content, 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		file, err := storage.OpenFile(testFile)
		if err != nil {
			t.Fatalf("Failed to open file: %v", err)
		}
		defer file.Close()

		buf := make([]byte, len(content))
		n, err := file.Read(buf)
		if err != nil {
			t.Fatalf("Failed to read file: %v", err)
		}
		if n != len(content) || !bytes.Equal(buf, content) {
			t.Errorf("File content mismatch")
		}
	})

	t.Run("DeleteFile", func(t *testing.T) {
		testFile := "delete-test.mp3"
		fullPath := filepath.Join(tmpDir, testFile)
		if err := os.WriteFile(fullPath, []byte("test"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		if err := storage.DeleteFile(testFile); err != nil {
			t.Fatalf("Failed to delete file: %v", err)
		}
		if _, err := os.Stat(fullPath); !os.IsNotExist(err) {
			t.Errorf("File was not deleted")
		}
	})

	t.Run("PathTraversalPrevention", func(t *testing.T) {
		if _, err := storage.OpenFile("../../../etc/passwd"); err == nil {
			t.Errorf("Path traversal was not prevented")
		}
		if err := storage.DeleteFile("../../../etc/passwd"); err == nil {
			t.Errorf("Path traversal was not prevented in delete")
		}
		if _, err := storage.FilePath("/etc/passwd"); err == nil {
			t.Errorf("Absolute path was not rejected")
		}
	})
}
