package storage

import (
	"io"
	"mime/multipart"
)

// Kind distinguishes what an uploaded file is used for.
type Kind string

const (
	KindText  Kind = "text"
	KindAudio Kind = "audio"
)

type FileInfo struct {
	Filename string
	Kind     Kind
	Size     int64
}

type Storage interface {
	SaveFile(file multipart.File, info FileInfo) (string, error)
	OpenFile(name string) (io.ReadSeekCloser, error)
	FilePath(name string) (string, error)
	DeleteFile(name string) error
}
