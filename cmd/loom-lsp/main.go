// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"log"
	"os"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"loom/internal/lsp"
)

const lsName = "loom" // Name identifier for the language server

var (
	version = "0.0.1"        // Server version
	handler protocol.Handler // Protocol handler instance (wired up below)
)

func main() {
	// Configure debug logging (1 = debug level, nil = default logger)
	commonlog.Configure(1, nil)

	loomHandler := lsp.NewLoomHandler()

	// Wire up the handler with specific LSP method implementations
	handler = protocol.Handler{
		Initialize:            loomHandler.Initialize,
		Initialized:           loomHandler.Initialized,
		Shutdown:              loomHandler.Shutdown,
		SetTrace:              loomHandler.SetTrace,
		TextDocumentDidOpen:   loomHandler.TextDocumentDidOpen,
		TextDocumentDidClose:  loomHandler.TextDocumentDidClose,
		TextDocumentDidChange: loomHandler.TextDocumentDidChange,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Println("Starting Loom LSP server...")

	// Serve over standard input/output, the transport editors use for LSP
	err := s.RunStdio()
	if err != nil {
		log.Println("Error starting Loom LSP server:", err)
		os.Exit(1)
	}
}
