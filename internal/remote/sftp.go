package remote

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/candleworks/catalogsync/internal/config"
)

// SFTPClient is the production Client implementation over SSH/SFTP.
type SFTPClient struct {
	cfg *config.RemoteConfig
}

// NewSFTPClient creates a client for the configured remote host.
func NewSFTPClient(cfg *config.RemoteConfig) *SFTPClient {
	return &SFTPClient{cfg: cfg}
}

// Connect dials the remote host and opens an SFTP session. Both the TCP
// dial and the SSH handshake are bounded by the configured timeout, and
// the underlying connection enforces the same timeout as an idle deadline
// on every read and write, so no transfer can hang indefinitely.
func (c *SFTPClient) Connect(ctx context.Context) (Session, error) {
	sshConfig, err := c.sshClientConfig()
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.GetPort()))
	timeout := c.cfg.GetTimeout()

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	tconn := &deadlineConn{Conn: conn, timeout: timeout}
	sshConn, chans, reqs, err := ssh.NewClientConn(tconn, addr, sshConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}

	sftpClient, err := sftp.NewClient(ssh.NewClient(sshConn, chans, reqs))
	if err != nil {
		sshConn.Close()
		return nil, fmt.Errorf("failed to open sftp subsystem: %w", err)
	}

	return &sftpSession{client: sftpClient, conn: sshConn}, nil
}

// sshClientConfig builds the SSH auth configuration from the remote
// settings: key file when configured, password otherwise.
func (c *SFTPClient) sshClientConfig() (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod

	if c.cfg.KeyFile != "" {
		keyData, err := os.ReadFile(c.cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file %s: %w", c.cfg.KeyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse key file %s: %w", c.cfg.KeyFile, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	password, err := c.cfg.GetPassword()
	if err != nil {
		return nil, err
	}
	if password != "" {
		methods = append(methods, ssh.Password(password))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no SFTP credentials configured: set remote.keyFile, remote.password, or remote.passwordFile")
	}

	return &ssh.ClientConfig{
		User: c.cfg.User,
		Auth: methods,
		// The export host is a legacy appliance on the internal network
		// with no stable host key provisioning.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // #nosec G106
		Timeout:         c.cfg.GetTimeout(),
	}, nil
}

// deadlineConn extends the connection deadline before every read and
// write, turning the configured timeout into an idle timeout for the
// whole session.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (d *deadlineConn) Read(p []byte) (int, error) {
	if err := d.Conn.SetReadDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	return d.Conn.Read(p)
}

func (d *deadlineConn) Write(p []byte) (int, error) {
	if err := d.Conn.SetWriteDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	return d.Conn.Write(p)
}

// sftpSession implements Session over an open SFTP client.
type sftpSession struct {
	client *sftp.Client
	conn   ssh.Conn
}

func (s *sftpSession) List(dir string) ([]FileInfo, error) {
	entries, err := s.client.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote directory %s: %w", dir, err)
	}

	infos := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, FileInfo{
			Name:       e.Name(),
			SizeBytes:  e.Size(),
			ModifiedAt: e.ModTime(),
			IsRegular:  e.Mode().IsRegular(),
		})
	}
	return infos, nil
}

func (s *sftpSession) Fetch(remotePath, localPath string) (int64, error) {
	src, err := s.client.Open(remotePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open remote file %s: %w", path.Base(remotePath), err)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create staging file %s: %w", localPath, err)
	}

	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// Remove the partial file so a truncated transfer is never
		// mistaken for a staged payload.
		os.Remove(localPath)
		return 0, fmt.Errorf("failed to fetch %s: %w", path.Base(remotePath), err)
	}

	return n, nil
}

func (s *sftpSession) Close() error {
	err := s.client.Close()
	if connErr := s.conn.Close(); err == nil {
		err = connErr
	}
	return err
}
