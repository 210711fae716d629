package notify

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smtpServer accepts one connection and answers with a minimal SMTP dialogue.
// It records the envelope and returns the message body on done.
func smtpServer(t *testing.T) (addr string, rcpts chan string, done chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	rcpts = make(chan string, 4)
	done = make(chan string, 1)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }
		reply("220 localhost ESMTP")

		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 localhost")
			case strings.HasPrefix(cmd, "MAIL FROM"):
				reply("250 OK")
			case strings.HasPrefix(cmd, "RCPT TO"):
				rcpts <- strings.TrimSpace(line[len("RCPT TO:"):])
				reply("250 OK")
			case cmd == "DATA":
				reply("354 go ahead")
				var body strings.Builder
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					body.WriteString(l)
				}
				done <- body.String()
				reply("250 queued")
			case cmd == "QUIT":
				reply("221 bye")
				return
			default:
				reply("502 not implemented")
			}
		}
	}()

	return ln.Addr().String(), rcpts, done
}

func confirmationEmail() *email.Email {
	e := email.NewEmail()
	e.From = "Essenza <no-reply@essenza.test>"
	e.To = []string{"ana@example.com"}
	e.Subject = "Order confirmation #AB12CD34 - Essenza"
	e.Text = []byte("Tracking code: AB12CD34\n")
	return e
}

func TestSendSMTP(t *testing.T) {
	t.Run("Delivers", func(t *testing.T) {
		addr, rcpts, done := smtpServer(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		require.NoError(t, sendSMTP(ctx, addr, "127.0.0.1", nil, confirmationEmail()))

		assert.Equal(t, "<ana@example.com>", <-rcpts)
		body := <-done
		assert.Contains(t, body, "Subject: Order confirmation #AB12CD34 - Essenza")
		assert.Contains(t, body, "Tracking code: AB12CD34")
	})

	t.Run("HungServerHonoursDeadline", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer ln.Close()

		// Accept but never greet.
		go func() {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			time.Sleep(5 * time.Second)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		start := time.Now()
		err = sendSMTP(ctx, ln.Addr().String(), "127.0.0.1", nil, confirmationEmail())
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("BadSender", func(t *testing.T) {
		e := confirmationEmail()
		e.From = "not an address"
		assert.ErrorContains(t, sendSMTP(context.Background(), "127.0.0.1:1", "127.0.0.1", nil, e), "parse sender")
	})
}
