package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/mediaview/internal/cli/output"
	"github.com/marmos91/mediaview/internal/cli/timeutil"
	"github.com/marmos91/mediaview/internal/logger"
	"github.com/marmos91/mediaview/pkg/config"
	"github.com/marmos91/mediaview/pkg/gallery"
	"github.com/marmos91/mediaview/pkg/preload"
	"github.com/marmos91/mediaview/pkg/viewer"
)

var (
	preloadOutput string
	preloadIndex  int
	preloadSteps  int
	preloadWait   time.Duration
)

var preloadCmd = &cobra.Command{
	Use:   "preload <manifest>",
	Short: "Prefetch a gallery and report the cache state",
	Long: `Open a viewer session over a gallery manifest, prefetch around the
start index, optionally page forward, and print what ended up in the cache.

Bare paths in the manifest are read relative to the manifest's directory.
The configuration file is optional; defaults are used when none exists.

Examples:
  # Prefetch around the manifest's start index
  mediaview preload gallery.yaml

  # Start at item 3 and page forward twice
  mediaview preload gallery.yaml --index 3 --steps 2

  # Machine-readable report
  mediaview preload gallery.yaml -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runPreloadCmd,
}

func init() {
	preloadCmd.Flags().StringVarP(&preloadOutput, "output", "o", "table", "Output format (table|json|yaml)")
	preloadCmd.Flags().IntVar(&preloadIndex, "index", -1, "Start index (default: the manifest's index)")
	preloadCmd.Flags().IntVar(&preloadSteps, "steps", 0, "Navigate forward this many times after opening")
	preloadCmd.Flags().DurationVar(&preloadWait, "wait", 30*time.Second, "Maximum time to wait for prefetches to settle after each move")
}

func runPreloadCmd(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(preloadOutput)
	if err != nil {
		return err
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	report, err := runPreload(cmd.Context(), cfg, args[0], preloadOptions{
		Index: preloadIndex,
		Steps: preloadSteps,
		Wait:  preloadWait,
	})
	if err != nil {
		return err
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), format, isTerminal(cmd))
	if format == output.FormatTable {
		if err := output.PrintKeyValues(cmd.OutOrStdout(), report.summary()); err != nil {
			return err
		}
		printer.Printf("\n")
	}
	if err := printer.Print(report); err != nil {
		return err
	}
	if report.Pending > 0 {
		printer.Warning(fmt.Sprintf("%d prefetches still pending after %s", report.Pending, preloadWait))
	}
	return nil
}

func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

type preloadOptions struct {
	// Index overrides the manifest start index when >= 0.
	Index int
	Steps int
	Wait  time.Duration
}

// preloadReport is the outcome of a CLI preload run.
type preloadReport struct {
	Gallery string         `json:"gallery" yaml:"gallery"`
	Index   int            `json:"index" yaml:"index"`
	Items   int            `json:"items" yaml:"items"`
	Pending int            `json:"pending" yaml:"pending"`
	Entries []reportEntry  `json:"entries" yaml:"entries"`
	Export  preload.Export `json:"export" yaml:"export"`
}

type reportEntry struct {
	ID    string       `json:"id" yaml:"id"`
	Src   string       `json:"src" yaml:"src"`
	Kind  preload.Kind `json:"kind" yaml:"kind"`
	State string       `json:"state" yaml:"state"`
}

// Headers implements output.TableRenderer.
func (r *preloadReport) Headers() []string {
	return []string{"ID", "Kind", "State", "Source"}
}

// Rows implements output.TableRenderer.
func (r *preloadReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		rows = append(rows, []string{e.ID, string(e.Kind), e.State, e.Src})
	}
	return rows
}

func (r *preloadReport) summary() output.KeyValues {
	m := r.Export.Metrics
	var kv output.KeyValues
	kv.Add("Gallery", r.Gallery)
	kv.Add("Position", fmt.Sprintf("%d of %d", r.Index+1, r.Items))
	kv.Add("Cache size", fmt.Sprint(r.Export.CacheSize))
	kv.Add("Preloaded", fmt.Sprint(m.PreloadCount))
	kv.Add("Load time", timeutil.FormatMillis(float64(m.LoadTime.Microseconds())/1000))
	kv.Add("Navigation time", timeutil.FormatMillis(float64(m.NavigationTime.Microseconds())/1000))
	if r.Export.Memory != nil {
		kv.Add("Heap usage", fmt.Sprintf("%.1f%%", r.Export.Memory.Ratio()*100))
	}
	return kv
}

// runPreload opens a session over the manifest at path, walks it and
// returns the final cache state. The session is closed before returning.
func runPreload(ctx context.Context, cfg *config.Config, path string, opts preloadOptions) (*preloadReport, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	manifest, err := gallery.Load(abs)
	if err != nil {
		return nil, err
	}

	index := manifest.Index
	if opts.Index >= 0 {
		index = opts.Index
	}

	sources := cfg.Sources
	sources.File.Enabled = true
	sources.File.Root = filepath.Dir(abs)

	fetcher, err := config.NewFetcher(ctx, sources, nil)
	if err != nil {
		return nil, err
	}

	name := manifest.Name
	if name == "" {
		name = filepath.Base(abs)
	}
	session := viewer.NewSession(name, config.NewCacheFactory(cfg.Preload, fetcher, nil)())
	defer session.Close()

	cache := session.Cache()
	cache.StartTimer()
	if _, err := session.Open(ctx, manifest.Items, index); err != nil {
		return nil, err
	}
	waitSettled(ctx, cache, opts.Wait)
	cache.EndTimer()

	for range opts.Steps {
		if _, err := session.Next(ctx); err != nil {
			return nil, err
		}
		waitSettled(ctx, cache, opts.Wait)
	}

	kinds := make(map[preload.Key]preload.Kind, len(manifest.Items))
	for _, it := range manifest.Items {
		kinds[it.Key()] = it.Kind
	}

	_, current, _ := session.Current()
	report := &preloadReport{
		Gallery: name,
		Index:   current,
		Items:   len(manifest.Items),
		Export:  session.Export(),
	}
	for _, k := range cache.Keys() {
		state, ok := cache.State(k.ID, k.Src)
		if !ok {
			continue
		}
		if state == preload.StatePending {
			report.Pending++
		}
		report.Entries = append(report.Entries, reportEntry{
			ID:    k.ID,
			Src:   k.Src,
			Kind:  kinds[k],
			State: state.String(),
		})
	}

	logger.Debug("Preload finished",
		logger.KeyGallery, name,
		logger.KeyIndex, current,
		logger.KeyCacheSize, report.Export.CacheSize)
	return report, nil
}

// waitSettled polls until no entry is pending, ctx ends or wait elapses.
func waitSettled(ctx context.Context, cache *preload.Cache, wait time.Duration) {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for {
		if !hasPending(cache) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-tick.C:
		}
	}
}

func hasPending(cache *preload.Cache) bool {
	for _, k := range cache.Keys() {
		if s, ok := cache.State(k.ID, k.Src); ok && s == preload.StatePending {
			return true
		}
	}
	return false
}
