// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"os"

	"dil/internal/config"
	"dil/internal/lsp"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const lsName = "dil" // Name identifier for the language server

var (
	version = "0.1.0"        // Server version
	handler protocol.Handler // Protocol handler instance (wired up below)
)

var log = commonlog.GetLogger("dil.lsp.main")

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			os.Stderr.WriteString(err.Error() + "\n")
			os.Exit(1)
		}
		cfg = loaded
	}

	// stdout carries the protocol, so logs go to stderr or the configured file
	var logPath *string
	if cfg.Log.File != "" {
		logPath = &cfg.Log.File
	}
	commonlog.Configure(max(cfg.Log.Verbosity, 1), logPath)

	dilHandler := lsp.NewDilHandler(cfg)

	handler = protocol.Handler{
		Initialize:                     dilHandler.Initialize,
		Initialized:                    dilHandler.Initialized,
		Shutdown:                       dilHandler.Shutdown,
		SetTrace:                       dilHandler.SetTrace,
		TextDocumentDidOpen:            dilHandler.TextDocumentDidOpen,
		TextDocumentDidClose:           dilHandler.TextDocumentDidClose,
		TextDocumentDidChange:          dilHandler.TextDocumentDidChange,
		TextDocumentDocumentSymbol:     dilHandler.TextDocumentDocumentSymbol,
		TextDocumentSemanticTokensFull: dilHandler.TextDocumentSemanticTokensFull,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Infof("starting %s language server %s", lsName, version)

	if err := s.RunStdio(); err != nil {
		log.Errorf("language server stopped: %s", err)
		os.Exit(1)
	}
}
