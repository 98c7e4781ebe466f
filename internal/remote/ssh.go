package remote

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aelpxy/dockup/internal/constants"
	"github.com/aelpxy/dockup/internal/failure"
	"github.com/aelpxy/dockup/internal/utils"
	"github.com/aelpxy/dockup/pkg/models"
	"github.com/charmbracelet/log"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHStore talks to the backup host over one SSH connection: shell commands
// for directory setup and SFTP for everything else. A timed out operation
// drops the connection; the next call dials again.
type SSHStore struct {
	cfg      models.SSHConfig
	timeouts models.TimeoutsConfig
	logger   *log.Logger

	mu   sync.Mutex
	conn *ssh.Client
	sftp *sftp.Client
}

func NewSSHStore(cfg models.SSHConfig, timeouts models.TimeoutsConfig, logger *log.Logger) (*SSHStore, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("ssh host is not configured")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("ssh user is not configured")
	}
	if cfg.Port == 0 {
		cfg.Port = constants.DefaultSSHPort
	}
	return &SSHStore{cfg: cfg, timeouts: timeouts, logger: logger}, nil
}

func (s *SSHStore) clientConfig() (*ssh.ClientConfig, error) {
	auth, err := s.authMethods()
	if err != nil {
		return nil, err
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if !s.cfg.InsecureIgnoreHostKey {
		knownHostsFile := utils.ExpandHome(s.cfg.KnownHosts)
		if knownHostsFile == "" {
			knownHostsFile = utils.ExpandHome("~/.ssh/known_hosts")
		}
		hostKeyCallback, err = knownhosts.New(knownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts %s: %w", knownHostsFile, err)
		}
	}

	return &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         constants.DialTimeout,
	}, nil
}

func (s *SSHStore) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if s.cfg.Key != "" {
		keyData, err := os.ReadFile(utils.ExpandHome(s.cfg.Key))
		if err != nil {
			return nil, fmt.Errorf("failed to read ssh key: %w", err)
		}

		var signer ssh.Signer
		if s.cfg.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyData, []byte(s.cfg.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(keyData)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse ssh key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if s.cfg.Passphrase != "" && s.cfg.Key == "" {
		methods = append(methods, ssh.Password(s.cfg.Passphrase))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no ssh credentials configured (set ssh.key)")
	}
	return methods, nil
}

func (s *SSHStore) connect(ctx context.Context) (*ssh.Client, *sftp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil && s.sftp != nil {
		return s.conn, s.sftp, nil
	}

	config, err := s.clientConfig()
	if err != nil {
		return nil, nil, err
	}

	addr := s.cfg.Address()
	s.logger.Debug("dialing backup host", "addr", addr)

	dialer := net.Dialer{Timeout: constants.DialTimeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	// NewClientConn closes netConn on error
	c, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
	if err != nil {
		return nil, nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	conn := ssh.NewClient(c, chans, reqs)

	sftpClient, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to start sftp subsystem: %w", err)
	}

	s.conn, s.sftp = conn, sftpClient
	return conn, sftpClient, nil
}

func (s *SSHStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sftp != nil {
		s.sftp.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn, s.sftp = nil, nil
}

// do runs op against a live connection, bounded by timeout. The SSH and
// SFTP calls do not take a context, so expiry is enforced by tearing the
// connection down underneath them.
func (s *SSHStore) do(ctx context.Context, timeout time.Duration, op func(*ssh.Client, *sftp.Client) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, sftpClient, err := s.connect(ctx)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- op(conn, sftpClient)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.logger.Warn("remote operation interrupted, dropping connection", "err", ctx.Err())
		s.reset()
		return ctx.Err()
	}
}

func (s *SSHStore) MkdirAll(ctx context.Context, dirs ...string) error {
	if len(dirs) == 0 {
		return nil
	}
	cmd := mkdirCommand(dirs)

	err := s.do(ctx, s.timeouts.RemoteCommand.Duration, func(conn *ssh.Client, _ *sftp.Client) error {
		session, err := conn.NewSession()
		if err != nil {
			return err
		}
		defer session.Close()

		if output, err := session.CombinedOutput(cmd); err != nil {
			return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
		}
		return nil
	})
	return failure.Wrap(failure.RemoteCommand, "create remote directories", strings.Join(dirs, " "), err)
}

func (s *SSHStore) List(ctx context.Context, dir string) ([]Entry, error) {
	var entries []Entry
	err := s.do(ctx, s.timeouts.RemoteCommand.Duration, func(_ *ssh.Client, sc *sftp.Client) error {
		infos, err := sc.ReadDir(dir)
		if err != nil {
			return err
		}
		entries = make([]Entry, 0, len(infos))
		for _, info := range infos {
			isDir := info.IsDir()
			if info.Mode()&os.ModeSymlink != 0 {
				if target, err := sc.Stat(path.Join(dir, info.Name())); err == nil {
					isDir = target.IsDir()
				}
			}
			entries = append(entries, Entry{Name: info.Name(), IsDir: isDir})
		}
		return nil
	})
	if err != nil {
		return nil, failure.Wrap(failure.RemoteCommand, "list remote directory", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (s *SSHStore) ReadFile(ctx context.Context, p string) ([]byte, error) {
	var data []byte
	err := s.do(ctx, s.timeouts.Transfer.Duration, func(_ *ssh.Client, sc *sftp.Client) error {
		f, err := sc.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		data, err = io.ReadAll(f)
		return err
	})
	if err != nil {
		return nil, failure.Wrap(failure.Transfer, "read remote file", p, err)
	}
	return data, nil
}

func (s *SSHStore) WriteFile(ctx context.Context, p string, data []byte) error {
	err := s.do(ctx, s.timeouts.Transfer.Duration, func(_ *ssh.Client, sc *sftp.Client) error {
		f, err := sc.Create(p)
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
	return failure.Wrap(failure.Transfer, "write remote file", p, err)
}

func (s *SSHStore) Upload(ctx context.Context, local, p string) (int64, error) {
	var size int64
	err := s.do(ctx, s.timeouts.Transfer.Duration, func(_ *ssh.Client, sc *sftp.Client) error {
		in, err := os.Open(local)
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := sc.Create(p)
		if err != nil {
			return err
		}
		if _, err := out.ReadFrom(in); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}

		info, err := sc.Stat(p)
		if err != nil {
			return err
		}
		size = info.Size()
		return nil
	})
	if err != nil {
		return 0, failure.Wrap(failure.Transfer, "upload", p, err)
	}
	return size, nil
}

func (s *SSHStore) Download(ctx context.Context, p, local string) error {
	err := s.do(ctx, s.timeouts.Transfer.Duration, func(_ *ssh.Client, sc *sftp.Client) error {
		in, err := sc.Open(p)
		if err != nil {
			return err
		}
		defer in.Close()

		if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
			return err
		}
		out, err := os.Create(local)
		if err != nil {
			return err
		}
		if _, err := in.WriteTo(out); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
	return failure.Wrap(failure.Transfer, "download", p, err)
}

func (s *SSHStore) Close() error {
	s.reset()
	return nil
}
