package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/l1jgo/pooling/internal/config"
	"github.com/l1jgo/pooling/internal/data"
	"github.com/l1jgo/pooling/internal/pool"
)

type kindSummary struct {
	Kind         string   `json:"kind"`
	Preload      int      `json:"preload"`
	Capacity     int      `json:"capacity"`
	AllowRecycle bool     `json:"allow_recycle"`
	Notification string   `json:"notification"`
	Components   int      `json:"components"`
	Lazy         bool     `json:"lazy"`
	Warnings     []string `json:"warnings,omitempty"`
}

type catalogSummary struct {
	Catalog string        `json:"catalog"`
	Kinds   []kindSummary `json:"kinds"`
}

// validate loads the catalog named on the command line, or the one the
// config points at, and prints what the registry would build from it.
func validate(w io.Writer, cfgPath, catalogPath string, asJSON bool) error {
	if catalogPath == "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		catalogPath = cfg.Pooling.Catalog
	}
	catalog, err := data.LoadCatalog(catalogPath)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	sum := summarize(catalogPath, catalog)
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tPRELOAD\tCAPACITY\tRECYCLE\tNOTIFY\tPARTS\tLAZY")
	for _, k := range sum.Kinds {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%t\t%s\t%d\t%t\n",
			k.Kind, k.Preload, k.Capacity, k.AllowRecycle, k.Notification, k.Components, k.Lazy)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, k := range sum.Kinds {
		for _, warn := range k.Warnings {
			fmt.Fprintf(w, "warning: %s: %s\n", k.Kind, warn)
		}
	}
	fmt.Fprintf(w, "%d kinds ok\n", len(sum.Kinds))
	return nil
}

func summarize(path string, c *data.Catalog) catalogSummary {
	sum := catalogSummary{Catalog: path, Kinds: make([]kindSummary, 0, c.Count())}
	for _, e := range c.Entries() {
		k := kindSummary{
			Kind:         e.Kind,
			Preload:      e.Preload,
			Capacity:     e.MaxCapacity,
			AllowRecycle: e.AllowRecycle,
			Notification: e.Notification,
			Components:   len(e.Components),
			Lazy:         e.Lazy,
		}
		if mode, err := pool.ParseNotificationMode(e.Notification); err == nil {
			k.Notification = mode.String()
		}
		if k.Capacity <= 0 {
			k.Capacity = k.Preload
		}
		if k.Preload > k.Capacity {
			k.Warnings = append(k.Warnings, fmt.Sprintf("preload %d exceeds capacity %d, clamped", k.Preload, k.Capacity))
			k.Preload = k.Capacity
		}
		if k.Capacity == 0 && !k.Lazy {
			k.Warnings = append(k.Warnings, "capacity 0, every allocation fails")
		}
		sum.Kinds = append(sum.Kinds, k)
	}
	return sum
}
