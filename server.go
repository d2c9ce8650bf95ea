package main

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
)

// request is one line read from the control socket. The main loop answers
// on reply.
type request struct {
	line  string
	reply chan string
}

func listenControl(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// A stale socket from an unclean exit blocks Listen.
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return net.Listen("unix", path)
}

// server accepts control connections until ln is closed. Each connection
// may send any number of newline-terminated commands and gets one reply
// line per command.
func server(ln net.Listener, ch chan<- request, log *slog.Logger) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("control accept failed", "error", err)
			continue
		}
		go serveConn(conn, ch, log)
	}
}

func serveConn(conn net.Conn, ch chan<- request, log *slog.Logger) {
	defer conn.Close()
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		req := request{line: sc.Text(), reply: make(chan string, 1)}
		ch <- req
		if _, err := conn.Write([]byte(<-req.reply + "\n")); err != nil {
			log.Debug("control reply failed", "error", err)
			return
		}
	}
	if err := sc.Err(); err != nil {
		log.Debug("control read failed", "error", err)
	}
}
