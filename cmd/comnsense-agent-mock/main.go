// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// comnsense-agent-mock stands in for the comnsense agent in manual and
// integration testing. It accepts router connections on the upstream
// endpoint, logs every event it receives, and, when given a script,
// answers each WorkbookOpen by sending the scripted actions back on
// the same connection.
//
// A script is a JSONC array of actions in the wire format:
//
//	[
//	  // Ask for the header row with every attribute.
//	  {"type": 1, "rangeName": "A1:D1", "flags": 15},
//	  {"type": 0, "sheet": "Sheet1", "cells": [[{"key": "E1", "value": "checked"}]],
//	   "font": false, "borders": false, "color": false, "fontstyle": false},
//	]
//
// Actions without a workbook go to whichever document opened.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/comnsense/lib/config"
	"github.com/bureau-foundation/comnsense/lib/fabric"
	"github.com/bureau-foundation/comnsense/lib/process"
	"github.com/bureau-foundation/comnsense/lib/protocol"
	"github.com/bureau-foundation/comnsense/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var listen, scriptPath string
	var logConfig config.LogConfig
	var showVersion bool

	flagSet := pflag.NewFlagSet("comnsense-agent-mock", pflag.ContinueOnError)
	flagSet.StringVar(&listen, "listen", config.Default().Upstream.Address, "address to accept router connections on")
	flagSet.StringVar(&scriptPath, "script", "", "JSONC file of actions to send after each WorkbookOpen")
	flagSet.StringVar(&logConfig.Level, "log-level", "info", "debug, info, warn or error")
	flagSet.StringVar(&logConfig.Format, "log-format", "text", "text or json")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print("comnsense-agent-mock")
		return nil
	}

	logger, err := logConfig.NewLogger(os.Stderr)
	if err != nil {
		return err
	}

	var actions script
	if scriptPath != "" {
		actions, err = loadScript(scriptPath)
		if err != nil {
			return err
		}
	}

	listener, err := fabric.Listen(listen)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mock := &agentMock{logger: logger, script: actions}
	logger.Info("agent mock listening", "listen", listener.Addr().String(), "scripted_actions", len(actions))
	return mock.serve(ctx, listener)
}

type agentMock struct {
	logger *slog.Logger
	script script

	wg sync.WaitGroup
}

// serve accepts connections until ctx is cancelled, then closes the
// listener and waits for every connection handler.
func (m *agentMock) serve(ctx context.Context, listener *fabric.Listener) error {
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	var conns sync.Map
	defer func() {
		conns.Range(func(key, _ any) bool {
			key.(*fabric.Conn).Close()
			return true
		})
		m.wg.Wait()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			m.logger.Warn("rejected connection", "error", err)
			continue
		}
		conns.Store(conn, struct{}{})
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer conns.Delete(conn)
			m.handle(conn)
		}()
	}
}

// handle logs the events of one router connection and plays the
// script on WorkbookOpen.
func (m *agentMock) handle(conn *fabric.Conn) {
	defer conn.Close()
	logger := m.logger.With("connection", string(conn.Identity()), "remote", conn.RemoteAddr().String())
	logger.Info("router connected")

	for message := range conn.Receive() {
		if len(message) != 2 || string(message[0]) != protocol.TagEvent {
			logger.Warn("unexpected message shape", "frames", len(message))
			continue
		}
		event, err := protocol.DecodeEvent(message[1])
		if err != nil {
			logger.Warn("undecodable event", "error", err)
			continue
		}
		logger.Info("event",
			"type", event.Type.String(),
			"workbook", event.Workbook,
			"sheet", event.Sheet,
			"cells", describe(event.Cells),
			"prev_cells", describe(event.PrevCells),
		)
		if event.Type == protocol.RangeResponse {
			logger.Debug("range response", "payload", string(message[1]))
		}
		if event.Type == protocol.WorkbookOpen {
			m.play(conn, logger, event.Workbook)
		}
	}
	if err := conn.Err(); err != nil && !fabric.IsExpectedClose(err) {
		logger.Warn("router connection failed", "error", err)
		return
	}
	logger.Info("router disconnected")
}

func (m *agentMock) play(conn *fabric.Conn, logger *slog.Logger, workbook string) {
	for _, action := range m.script.forDocument(workbook) {
		payload, err := protocol.EncodeAction(action)
		if err != nil {
			logger.Error("encoding scripted action", "error", err)
			continue
		}
		if err := conn.Send(fabric.Message{[]byte(protocol.TagAction), payload}); err != nil {
			logger.Error("sending scripted action", "error", err)
			return
		}
		logger.Info("sent action", "type", action.Type.String(), "workbook", workbook)
	}
}

// describe summarizes a cell grid as "rows x columns".
func describe(cells [][]protocol.Cell) string {
	if cells == nil {
		return "none"
	}
	columns := 0
	if len(cells) > 0 {
		columns = len(cells[0])
	}
	return fmt.Sprintf("%dx%d", len(cells), columns)
}
