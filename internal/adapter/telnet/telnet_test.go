package telnet

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSpot     = "DX de DJ1TO:      3780.0  OH5Z         LSB                            2200Z JO62"
	testBulletin = "WWV de VE7CC <00>:   SFI=69, A=5, K=1, No Storms -> No Storms"
)

// --- decoder ---

func TestDecoder_StripsNegotiationAndRefuses(t *testing.T) {
	// DO ECHO, WILL SUPPRESS-GO-AHEAD, a terminal-type subnegotiation, an
	// escaped 0xFF, then WONT and NOP which need no reply.
	in := []byte{cmdIAC, cmdDO, 1}
	in = append(in, "hello"...)
	in = append(in, cmdIAC, cmdWILL, 3)
	in = append(in, cmdIAC, cmdSB, 24, 1, cmdIAC, cmdSE)
	in = append(in, cmdIAC, cmdIAC)
	in = append(in, cmdIAC, cmdWONT, 5, cmdIAC, 241, '!')

	var replies bytes.Buffer
	out, err := io.ReadAll(newDecoder(bytes.NewReader(in), &replies))
	require.NoError(t, err)

	assert.Equal(t, []byte("hello\xff!"), out)
	assert.Equal(t, []byte{cmdIAC, cmdWONT, 1, cmdIAC, cmdDONT, 3}, replies.Bytes())
}

func TestDecoder_CommandSplitAcrossReads(t *testing.T) {
	r := io.MultiReader(
		bytes.NewReader([]byte{'a', cmdIAC}),
		bytes.NewReader([]byte{cmdDO}),
		bytes.NewReader([]byte{31, 'b'}),
	)
	var replies bytes.Buffer
	out, err := io.ReadAll(newDecoder(r, &replies))
	require.NoError(t, err)

	assert.Equal(t, "ab", string(out))
	assert.Equal(t, []byte{cmdIAC, cmdWONT, 31}, replies.Bytes())
}

func TestDecoder_OnlyCommandsKeepsReading(t *testing.T) {
	r := io.MultiReader(
		bytes.NewReader([]byte{cmdIAC, cmdWILL, 1}),
		strings.NewReader("x"),
	)
	d := newDecoder(r, nil)

	p := make([]byte, 16)
	n, err := d.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "x", string(p[:n]))
}

// --- line splitting ---

func TestLineSession_LoginAndLines(t *testing.T) {
	var sent bytes.Buffer
	s := &lineSession{
		r:        bufio.NewReader(strings.NewReader("Please enter your call: Hello N0CALL\r\n" + testSpot + "\a\r\n\r\npartial")),
		w:        &sent,
		callsign: "N0CALL",
	}

	text, err := s.next()
	require.NoError(t, err)
	assert.Equal(t, "", text)
	assert.True(t, s.justLoggedIn)
	assert.Equal(t, "N0CALL\r\n", sent.String())

	var lines []string
	for {
		text, err := s.next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		lines = append(lines, text)
	}

	assert.Equal(t, []string{" Hello N0CALL", testSpot + "\a", "", "partial"}, lines)
	for _, line := range lines {
		assert.NotContains(t, line, "Please enter your call")
	}
	assert.Equal(t, "N0CALL\r\n", sent.String(), "login is sent once")
}

func TestIsLoginPrompt(t *testing.T) {
	assert.True(t, isLoginPrompt([]byte("login: ")))
	assert.True(t, isLoginPrompt([]byte("Please enter your call:")))
	assert.True(t, isLoginPrompt([]byte("Your Callsign:")))
	assert.False(t, isLoginPrompt([]byte("DX de N2CQ:")))
	assert.False(t, isLoginPrompt([]byte("Welcome")))
}

// --- client against a local listener ---

func startServer(t *testing.T, handle func(conn net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handle(conn)
		}
	}()
	return ln.Addr().String()
}

func collect(t *testing.T, c *Client, want int) []string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var texts []string
	for len(texts) < want {
		batch, err := c.ExtractBatch(ctx, 10)
		require.NoError(t, err)
		for _, l := range batch {
			texts = append(texts, l.Text)
		}
	}
	return texts
}

func TestClient_LoginAndReceive(t *testing.T) {
	login := make(chan string, 1)
	addr := startServer(t, func(conn net.Conn) {
		defer conn.Close()
		conn.Write([]byte{cmdIAC, cmdDO, 24})
		io.WriteString(conn, "login: ")
		call, _ := bufio.NewReader(conn).ReadString('\n')
		login <- call
		io.WriteString(conn, "Hello N0CALL\r\n"+testSpot+"\r\n"+testBulletin+"\r\n")
		time.Sleep(time.Second)
	})

	c := NewClient(Config{Addr: addr, Callsign: "N0CALL", DialTimeout: time.Second, FlushInterval: 50 * time.Millisecond}, slog.Default())
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var lines []string
	var sessions []string
	var seqs []int64
	for len(lines) < 3 {
		batch, err := c.ExtractBatch(ctx, 10)
		require.NoError(t, err)
		for _, l := range batch {
			lines = append(lines, l.Text)
			sessions = append(sessions, l.Session)
			seqs = append(seqs, l.Seq)
			assert.Equal(t, "telnet:"+addr, l.Source)
			assert.False(t, l.ReceivedAt.IsZero())
		}
	}

	// The refusal of the server's DO precedes the callsign on the wire.
	assert.Equal(t, string([]byte{cmdIAC, cmdWONT, 24})+"N0CALL\r\n", <-login)
	assert.Equal(t, []string{" Hello N0CALL", testSpot, testBulletin}, lines)
	assert.NotContains(t, lines[0], "login:")
	assert.Equal(t, []int64{1, 2, 3}, seqs)
	assert.NotEmpty(t, sessions[0])
	assert.Equal(t, sessions[0], sessions[2])
}

func TestClient_ReconnectsWithNewSession(t *testing.T) {
	var accepted atomic.Int32
	addr := startServer(t, func(conn net.Conn) {
		defer conn.Close()
		n := accepted.Add(1)
		if n == 1 {
			io.WriteString(conn, testSpot+"\r\n")
			return // drop the connection
		}
		io.WriteString(conn, testBulletin+"\r\n")
		time.Sleep(time.Second)
	})

	c := NewClient(Config{Addr: addr, FlushInterval: 10 * time.Millisecond, ReconnectDelay: 10 * time.Millisecond}, slog.Default())
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := c.ExtractBatch(ctx, 1)
	require.NoError(t, err)
	second, err := c.ExtractBatch(ctx, 1)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, testSpot, first[0].Text)
	assert.Equal(t, testBulletin, second[0].Text)
	assert.NotEqual(t, first[0].Session, second[0].Session)
	assert.Equal(t, int64(1), second[0].Seq)
}

func TestClient_RetriesFailedDial(t *testing.T) {
	addr := startServer(t, func(conn net.Conn) {
		defer conn.Close()
		io.WriteString(conn, testSpot+"\r\n")
		time.Sleep(time.Second)
	})

	var attempts atomic.Int32
	dial := func(ctx context.Context, network, a string) (net.Conn, error) {
		if attempts.Add(1) < 3 {
			return nil, errors.New("connection refused")
		}
		var d net.Dialer
		return d.DialContext(ctx, network, a)
	}

	c := NewClient(Config{Addr: addr, FlushInterval: 10 * time.Millisecond, ReconnectDelay: 5 * time.Millisecond}, slog.Default(), WithDialer(dial))
	defer c.Close()

	texts := collect(t, c, 1)
	assert.Equal(t, []string{testSpot}, texts)
	assert.GreaterOrEqual(t, attempts.Load(), int32(3))
}

func TestClient_BatchSizeLimit(t *testing.T) {
	addr := startServer(t, func(conn net.Conn) {
		defer conn.Close()
		io.WriteString(conn, strings.Repeat(testSpot+"\r\n", 5))
		time.Sleep(time.Second)
	})

	c := NewClient(Config{Addr: addr, FlushInterval: time.Second}, slog.Default())
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batch, err := c.ExtractBatch(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestClient_Close(t *testing.T) {
	t.Run("before first extract", func(t *testing.T) {
		c := NewClient(Config{Addr: "127.0.0.1:1"}, slog.Default())
		require.NoError(t, c.Close())

		_, err := c.ExtractBatch(context.Background(), 10)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("while connected", func(t *testing.T) {
		addr := startServer(t, func(conn net.Conn) {
			defer conn.Close()
			io.WriteString(conn, testSpot+"\r\n")
			time.Sleep(5 * time.Second)
		})

		c := NewClient(Config{Addr: addr, FlushInterval: 10 * time.Millisecond}, slog.Default())
		collect(t, c, 1)

		done := make(chan struct{})
		go func() {
			c.Close()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Close did not return")
		}

		_, err := c.ExtractBatch(context.Background(), 10)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("context cancelled while waiting", func(t *testing.T) {
		addr := startServer(t, func(conn net.Conn) {
			defer conn.Close()
			time.Sleep(2 * time.Second)
		})
		c := NewClient(Config{Addr: addr}, slog.Default())
		defer c.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := c.ExtractBatch(ctx, 10)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
