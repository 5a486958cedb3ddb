package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/njchilds90/xsssanitizer"
	"github.com/njchilds90/xsssanitizer/internal/allowlist"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// pipeline is the per-input work: deny-list pass, then allowlist filter.
type pipeline struct {
	sanitizer *xsssanitizer.Sanitizer
	filter    allowlist.Filter
	page      bool
}

func (p *pipeline) run(r io.Reader) (string, xsssanitizer.Report, error) {
	var (
		out    string
		report xsssanitizer.Report
		err    error
	)
	if p.page {
		out, report, err = p.sanitizer.SanitizePage(r)
	} else {
		var data []byte
		if data, err = io.ReadAll(r); err == nil {
			out, report, err = p.sanitizer.SanitizeStringReport(string(data))
		}
	}
	if err != nil {
		return "", report, err
	}
	return p.filter(out), report, nil
}

func (a *app) runSanitize(cmd *cobra.Command, args []string) error {
	filter, err := allowlist.Lookup(a.cfg.Allowlist)
	if err != nil {
		return err
	}
	p := &pipeline{
		sanitizer: a.cfg.Sanitizer(a.logger),
		filter:    filter,
		page:      a.cfg.Page,
	}

	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		out, report, err := p.run(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("stdin: %w", err)
		}
		a.logReport("stdin", report)
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	}

	results := make([]string, len(args))
	reports := make([]xsssanitizer.Report, len(args))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(a.cfg.Jobs)
	for i, path := range args {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, report, err := a.sanitizeFile(p, path)
			if err != nil {
				return err
			}
			results[i], reports[i] = out, report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var total xsssanitizer.Report
	for i, path := range args {
		a.logReport(path, reports[i])
		total.Add(reports[i])
	}
	a.logger.Debug("sanitised files", zap.Int("files", len(args)), zap.Bool("changed", total.Changed()))

	if a.cfg.Write {
		return nil
	}
	w := cmd.OutOrStdout()
	for _, out := range results {
		if _, err := io.WriteString(w, out); err != nil {
			return err
		}
	}
	return nil
}

// sanitizeFile returns the sanitised content, or writes it back to path
// when --write is set.
func (a *app) sanitizeFile(p *pipeline, path string) (string, xsssanitizer.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", xsssanitizer.Report{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	out, report, err := p.run(bytes.NewReader(data))
	if err != nil {
		return "", report, fmt.Errorf("%s: %w", path, err)
	}
	if !a.cfg.Write {
		return out, report, nil
	}
	if out == string(data) {
		return "", report, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", report, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
		return "", report, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return "", report, nil
}

func (a *app) logReport(source string, r xsssanitizer.Report) {
	if !r.Changed() {
		a.logger.Debug("unchanged", zap.String("source", source))
		return
	}
	a.logger.Info("sanitised",
		zap.String("source", source),
		zap.Int("elements_removed", r.ElementsRemoved),
		zap.Int("elements_unwrapped", r.ElementsUnwrapped),
		zap.Int("attributes_removed", r.AttributesRemoved),
		zap.Int("unsafe_uris", r.UnsafeURIs),
		zap.Int("unsafe_refreshes", r.UnsafeRefreshes))
}
