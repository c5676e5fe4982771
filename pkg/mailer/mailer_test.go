package mailer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSMTP_Send(t *testing.T) {
	s := NewSMTP(SMTPConfig{Host: "mail.local", Username: "u", Password: "p", From: "noreply@bootcamps.dev"})
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	var gotAddr string
	var gotTo []string
	var gotMsg string
	s.send = func(_ context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		assert.NotNil(t, a)
		assert.Equal(t, "noreply@bootcamps.dev", from)
		return nil
	}

	err := s.Send(context.Background(), Message{To: "ann@example.com", Subject: "Hi", Body: "line1\nline2"})
	require.NoError(t, err)
	assert.Equal(t, "mail.local:587", gotAddr)
	assert.Equal(t, []string{"ann@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Hi\r\n")
	assert.Contains(t, gotMsg, "To: ann@example.com\r\n")
	assert.Contains(t, gotMsg, "\r\n\r\nline1\r\nline2")
}

func TestSMTP_SendErrors(t *testing.T) {
	s := NewSMTP(SMTPConfig{Host: "mail.local", Port: 25, From: "a@b.c"})
	s.send = func(context.Context, string, smtp.Auth, string, []string, []byte) error { return errors.New("relay down") }

	err := s.Send(context.Background(), Message{To: "x@y.z", Subject: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay down")

	err = s.Send(context.Background(), Message{To: "x@y.z\r\nBcc: evil@y.z", Subject: "s"})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: "x@y.z"}), context.Canceled)
}

func TestLog_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := Log{L: zap.New(core)}
	require.NoError(t, m.Send(context.Background(), Message{To: "ann@example.com", Subject: "Welcome"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "ann@example.com", logs.All()[0].ContextMap()["to"])
}

// listen starts a TCP listener on loopback and runs serve for each accepted
// connection until the test ends.
func listen(t *testing.T, serve func(net.Conn)) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var wg sync.WaitGroup
	t.Cleanup(func() {
		ln.Close()
		wg.Wait()
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer conn.Close()
				serve(conn)
			}()
		}
	}()
	h, p, _ := net.SplitHostPort(ln.Addr().String())
	port, _ = strconv.Atoi(p)
	return h, port
}

func TestSMTP_DeliverToRelay(t *testing.T) {
	var mu sync.Mutex
	var rcpt, data string
	host, port := listen(t, func(conn net.Conn) {
		r := bufio.NewReader(conn)
		fmt.Fprint(conn, "220 relay ready\r\n")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"):
				fmt.Fprint(conn, "250-relay\r\n250 8BITMIME\r\n")
			case strings.HasPrefix(cmd, "RCPT TO:"):
				mu.Lock()
				rcpt = strings.TrimSpace(line[len("RCPT TO:"):])
				mu.Unlock()
				fmt.Fprint(conn, "250 ok\r\n")
			case cmd == "DATA":
				fmt.Fprint(conn, "354 go ahead\r\n")
				var b strings.Builder
				for {
					l, err := r.ReadString('\n')
					if err != nil || l == ".\r\n" {
						break
					}
					b.WriteString(l)
				}
				mu.Lock()
				data = b.String()
				mu.Unlock()
				fmt.Fprint(conn, "250 queued\r\n")
			case cmd == "QUIT":
				fmt.Fprint(conn, "221 bye\r\n")
				return
			default:
				fmt.Fprint(conn, "250 ok\r\n")
			}
		}
	})

	s := NewSMTP(SMTPConfig{Host: host, Port: port, From: "noreply@bootcamps.dev"})
	err := s.Send(context.Background(), Message{To: "ann@example.com", Subject: "Hi", Body: "hello"})
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "<ann@example.com>", rcpt)
	assert.Contains(t, data, "Subject: Hi\r\n")
	assert.Contains(t, data, "hello")
}

func TestSMTP_SilentRelayHonorsContext(t *testing.T) {
	host, port := listen(t, func(conn net.Conn) {
		// Accept and never greet.
		buf := make([]byte, 1)
		conn.Read(buf)
	})
	s := NewSMTP(SMTPConfig{Host: host, Port: port, From: "a@b.c"})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := s.Send(ctx, Message{To: "x@y.z", Subject: "s"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSMTP_SilentRelayTimesOutWithoutDeadline(t *testing.T) {
	host, port := listen(t, func(conn net.Conn) {
		buf := make([]byte, 1)
		conn.Read(buf)
	})
	s := NewSMTP(SMTPConfig{Host: host, Port: port, From: "a@b.c", Timeout: 150 * time.Millisecond})

	start := time.Now()
	err := s.Send(context.Background(), Message{To: "x@y.z", Subject: "s"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
