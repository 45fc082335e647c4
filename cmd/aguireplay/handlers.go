package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spetersoncode/aguikit/event"
	"github.com/spetersoncode/aguikit/tool"
	"github.com/spf13/cobra"
)

func runReplay(cmd *cobra.Command, cfg *Config, input, selectPath string, asJSON bool) error {
	logger := cfg.Logger()

	var manifest *Manifest
	if cfg.Manifest != "" {
		m, err := LoadManifest(cfg.Manifest)
		if err != nil {
			return err
		}
		manifest = m
	}

	in, closeIn, err := openInput(cmd, input)
	if err != nil {
		return err
	}
	defer closeIn()

	r, err := newReplayer(cmd.Context(), logger, manifest, replayOptions{
		AgentID:  cfg.AgentID,
		ThreadID: cfg.ThreadID,
		Execute:  cfg.Execute,
		Timeout:  cfg.Timeout,
		Select:   selectPath,
		JSON:     asJSON,
	})
	if err != nil {
		return err
	}
	defer r.Close()

	snap, err := r.Replay(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("replay %s: %w", input, err)
	}
	return r.Print(cmd.OutOrStdout(), snap)
}

func runCheck(cmd *cobra.Command, input string) error {
	in, closeIn, err := openInput(cmd, input)
	if err != nil {
		return err
	}
	defer closeIn()

	evs, err := readEvents(in)
	if err != nil {
		return fmt.Errorf("check %s: %w", input, err)
	}

	counts := make(map[event.Type]int)
	for _, e := range evs {
		counts[e.Type]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)

	out := cmd.OutOrStdout()
	for _, t := range types {
		fmt.Fprintf(out, "%-24s %d\n", t, counts[event.Type(t)])
	}
	fmt.Fprintf(out, "%-24s %d\n", "total", len(evs))
	return nil
}

func runTools(cmd *cobra.Command, path string) error {
	m, err := LoadManifest(path)
	if err != nil {
		return err
	}
	defs, err := m.ToolDefs()
	if err != nil {
		return err
	}

	// Registering compiles every parameter schema.
	registry := tool.NewRegistry()
	for _, t := range defs {
		if err := registry.Register(t); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	for _, t := range registry.Tools() {
		fmt.Fprintf(out, "%s\t%s\n", t.Key(), t.Description)
	}
	return nil
}

func openInput(cmd *cobra.Command, input string) (io.Reader, func(), error) {
	if input == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(input)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
