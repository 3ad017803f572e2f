package main

import "flag"

type cliFlags struct {
	chatgpt     string
	gemini      string
	grok        string
	antigravity string
	reset       bool
	dryRun      bool
	noExport    bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.chatgpt, "chatgpt", "", "path to a ChatGPT export (conversations.json or .zip)")
	flag.StringVar(&f.gemini, "gemini", "", "path to a Gemini Takeout directory")
	flag.StringVar(&f.grok, "grok", "", "path to a Grok export (.zip or directory)")
	flag.StringVar(&f.antigravity, "antigravity", "", "path to an Antigravity brain directory")
	flag.BoolVar(&f.reset, "reset", false, "clear all collections and ingest state before running")
	flag.BoolVar(&f.dryRun, "dry-run", false, "parse and chunk without writing to the store")
	flag.BoolVar(&f.noExport, "no-export", false, "skip writing processed JSON files")
	flag.Parse()
	return f
}
