// Package ftp is a thin wrapper over github.com/jlaffaye/ftp (spec §1/§6:
// "FTP-based file upload/download... not systems work" — kept as a
// pass-through external collaborator, not reimplemented as a protocol).
package ftp

import (
	"fmt"
	"io"
	"os"

	"github.com/jlaffaye/ftp"
)

// Client wraps one FTP control connection.
type Client struct {
	conn *ftp.ServerConn
}

// Dial connects and logs in to an FTP server at addr ("host:port").
func Dial(addr, user, password string) (*Client, error) {
	conn, err := ftp.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("ftp: dial %s: %w", addr, err)
	}
	if err := conn.Login(user, password); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("ftp: login: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close logs out and closes the control connection.
func (c *Client) Close() error {
	return c.conn.Quit()
}

// Upload writes the contents of local to remote on the server.
func (c *Client) Upload(local, remote string) error {
	f, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("ftp: open %s: %w", local, err)
	}
	defer f.Close()

	if err := c.conn.Stor(remote, f); err != nil {
		return fmt.Errorf("ftp: stor %s: %w", remote, err)
	}
	return nil
}

// Download reads remote off the server into local.
func (c *Client) Download(remote, local string) error {
	resp, err := c.conn.Retr(remote)
	if err != nil {
		return fmt.Errorf("ftp: retr %s: %w", remote, err)
	}
	defer resp.Close()

	f, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("ftp: create %s: %w", local, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp); err != nil {
		return fmt.Errorf("ftp: copy %s: %w", remote, err)
	}
	return nil
}
