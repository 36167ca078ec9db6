// Package hgsource is the concrete HG repository reader. It drives an
// `hg serve --cmdserver pipe` session and turns its output into a stream
// of changesets.
package hgsource

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"unicode"

	shellquote "github.com/kballard/go-shellquote"

	"gitlab.com/hg2git/hg2git/internal/xlog"
)

// client is a session with a running Mercurial command server, the
// long-lived process `hg` forks per repository so that repeated commands
// don't each pay Mercurial's Python startup cost.
type client struct {
	repoPath string
	server   *exec.Cmd
	pipeIn   io.WriteCloser
	pipeOut  io.ReadCloser
}

// newClient starts an `hg serve --cmdserver pipe` session rooted at
// repoPath and verifies it speaks the runcommand/UTF-8 dialect this
// package depends on.
func newClient(repoPath string) (*client, error) {
	c := &client{repoPath: repoPath}
	c.server = exec.Command("hg", "--config", "ui.interactive=False", "serve", "--cmdserver", "pipe")
	c.server.Dir = repoPath
	c.server.Env = append(os.Environ(), "HGENCODING=UTF-8")

	var err error
	c.pipeOut, err = c.server.StdoutPipe()
	if err != nil {
		return nil, xlog.Throw(xlog.Source, "hg command server: stdout pipe: %v", err)
	}
	c.pipeIn, err = c.server.StdinPipe()
	if err != nil {
		return nil, xlog.Throw(xlog.Source, "hg command server: stdin pipe: %v", err)
	}
	if err := c.server.Start(); err != nil {
		return nil, xlog.Throw(xlog.Source, "hg command server: failed to start: %v", err)
	}
	if err := c.readHello(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *client) Close() error {
	if c == nil {
		return nil
	}
	if err := c.pipeIn.Close(); err != nil {
		return err
	}
	return c.server.Wait()
}

func (c *client) readHello() error {
	ch, hello, err := c.receive()
	if err != nil {
		return xlog.Throw(xlog.Source, "hg command server: failed to receive hello: %v", err)
	}
	if ch == "h" {
		return xlog.Throw(xlog.Source, "hg command server: bad channel; hg is too old (need >= 1.9)")
	}
	if ch != "o" {
		return xlog.Throw(xlog.Source, "hg command server: unexpected channel %q for hello", ch)
	}
	runcommand, utf8 := false, false
	for _, line := range strings.Split(string(hello), "\n") {
		parts := strings.SplitN(line, ": ", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "capabilities":
			for _, cap := range strings.Fields(parts[1]) {
				if cap == "runcommand" {
					runcommand = true
				}
			}
		case "encoding":
			utf8 = parts[1] == "UTF-8"
		}
	}
	if !runcommand {
		return xlog.Throw(xlog.Source, "hg command server: no runcommand capability")
	}
	if !utf8 {
		return xlog.Throw(xlog.Source, "hg command server: encoding is not UTF-8")
	}
	return nil
}

// run sends one `hg <args...>` invocation through the running session and
// returns its stdout, failing if hg exits non-zero.
func (c *client) run(args ...string) ([]byte, error) {
	stdout, stderr, rc, err := c.runRaw(args)
	if err != nil {
		return nil, xlog.Throw(xlog.Source, "hg %s: %v", shellquote.Join(args...), err)
	}
	if rc != 0 {
		return nil, xlog.Throw(xlog.Source, "hg %s: exit %d: %s", shellquote.Join(args...), rc, strings.TrimSpace(string(stderr)))
	}
	return stdout, nil
}

func (c *client) runRaw(hgargs []string) (stdout, stderr []byte, rc int32, err error) {
	payload := []byte(strings.Join(hgargs, "\x00"))
	if err = c.send("runcommand", payload); err != nil {
		return
	}
	var out, errOut bytes.Buffer
	for {
		ch, data, rerr := c.receive()
		if rerr != nil {
			return nil, nil, 0, rerr
		}
		switch ch {
		case "o":
			out.Write(data)
		case "e":
			errOut.Write(data)
		case "r":
			rc, err = parseHgInt(data[0:4])
			return out.Bytes(), errOut.Bytes(), rc, err
		case "d", "I", "L":
			// debug / input-request channels, unused by a batch converter
		default:
			if unicode.IsUpper(rune(ch[0])) {
				return nil, nil, 0, fmt.Errorf("hg command server: unexpected required channel %q", ch)
			}
		}
	}
}

func (c *client) send(cmd string, args []byte) error {
	cmd = strings.TrimRight(cmd, "\n") + "\n"
	var buf bytes.Buffer
	buf.WriteString(cmd)
	if len(args) > 0 {
		if err := binary.Write(&buf, binary.BigEndian, uint32(len(args))); err != nil {
			return err
		}
		buf.Write(args)
	}
	_, err := c.pipeIn.Write(buf.Bytes())
	return err
}

func (c *client) receive() (string, []byte, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(c.pipeOut, header); err != nil {
		return "", nil, err
	}
	ch := string(header[0])
	if ch == "" {
		return "", nil, errors.New("hg command server: empty channel")
	}
	length, err := parseHgUint(header[1:5])
	if err != nil {
		return ch, nil, fmt.Errorf("hg command server: bad length: %w", err)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(c.pipeOut, data); err != nil {
		return ch, data, err
	}
	return ch, data, nil
}

func parseHgUint(b []byte) (uint32, error) {
	var i uint32
	err := binary.Read(bytes.NewReader(b[0:4]), binary.BigEndian, &i)
	return i, err
}

func parseHgInt(b []byte) (int32, error) {
	u, err := parseHgUint(b)
	return int32(u), err
}
