package application

import (
	"sync"

	"machinetalk/ftp"
	"machinetalk/internal/logx"
)

// File is the ApplicationFile facade (spec SPEC_FULL §5): a thin wrapper
// exposing Upload/Download over an FTP connection to a resolved "file"
// service address. It holds no protocol state of its own beyond the lazily
// dialled connection — the original's ApplicationFile is equally thin.
type File struct {
	addr     string
	user     string
	password string

	mu     sync.Mutex
	client *ftp.Client

	log logx.Logger
}

// NewFile builds a File facade targeting addr ("host:port"), the numeric
// address a resolved "file" Service record contributes (spec §4.8).
func NewFile(addr, user, password string, log logx.Logger) *File {
	if log == nil {
		log = logx.NoOp()
	}
	return &File{addr: addr, user: user, password: password, log: log}
}

func (f *File) connect() (*ftp.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client != nil {
		return f.client, nil
	}
	c, err := ftp.Dial(f.addr, f.user, f.password)
	if err != nil {
		return nil, err
	}
	f.client = c
	return c, nil
}

// Upload copies local to remote on the file service.
func (f *File) Upload(local, remote string) error {
	c, err := f.connect()
	if err != nil {
		return err
	}
	return c.Upload(local, remote)
}

// Download copies remote from the file service to local.
func (f *File) Download(remote, local string) error {
	c, err := f.connect()
	if err != nil {
		return err
	}
	return c.Download(remote, local)
}

// Close releases the underlying FTP connection, if one was opened.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client == nil {
		return nil
	}
	err := f.client.Close()
	f.client = nil
	return err
}
