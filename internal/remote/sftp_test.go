package remote

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/candleworks/catalogsync/internal/config"
)

func writeTestKey(t *testing.T) string {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))
	return path
}

func TestSSHClientConfig(t *testing.T) {
	t.Parallel()

	keyFile := writeTestKey(t)

	passwordFile := filepath.Join(t.TempDir(), "password")
	require.NoError(t, os.WriteFile(passwordFile, []byte("hunter2\n"), 0600))

	tests := []struct {
		name        string
		cfg         config.RemoteConfig
		wantMethods int
		wantErr     string
	}{
		{
			name:        "password auth",
			cfg:         config.RemoteConfig{Host: "h", User: "u", Password: "secret"},
			wantMethods: 1,
		},
		{
			name:        "password file auth",
			cfg:         config.RemoteConfig{Host: "h", User: "u", PasswordFile: passwordFile},
			wantMethods: 1,
		},
		{
			name:        "key auth",
			cfg:         config.RemoteConfig{Host: "h", User: "u", KeyFile: keyFile},
			wantMethods: 1,
		},
		{
			name:        "key and password auth",
			cfg:         config.RemoteConfig{Host: "h", User: "u", KeyFile: keyFile, Password: "secret"},
			wantMethods: 2,
		},
		{
			name:    "no credentials",
			cfg:     config.RemoteConfig{Host: "h", User: "u"},
			wantErr: "no SFTP credentials configured",
		},
		{
			name:    "missing key file",
			cfg:     config.RemoteConfig{Host: "h", User: "u", KeyFile: "/nonexistent/key"},
			wantErr: "failed to read key file",
		},
		{
			name:    "malformed key file",
			cfg:     config.RemoteConfig{Host: "h", User: "u", KeyFile: passwordFile},
			wantErr: "failed to parse key file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := NewSFTPClient(&tt.cfg)
			sshCfg, err := client.sshClientConfig()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u", sshCfg.User)
			assert.Len(t, sshCfg.Auth, tt.wantMethods)
			assert.Equal(t, config.DefaultRemoteTimeout, sshCfg.Timeout)
		})
	}
}

func TestDeadlineConnExtendsDeadlines(t *testing.T) {
	t.Parallel()

	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})

	dc := &deadlineConn{Conn: client, timeout: time.Second}

	go func() {
		buf := make([]byte, 5)
		_, _ = server.Read(buf)
		_, _ = server.Write([]byte("pong"))
	}()

	_, err := dc.Write([]byte("ping!"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = dc.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf))
}
