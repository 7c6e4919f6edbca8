package cache

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/truthcheck/truthcheck/internal/config"
	"github.com/truthcheck/truthcheck/internal/model"
)

// VerdictCache stores finished verdicts keyed by normalized claim text.
// A disabled cache misses on every Get and drops every Set, so callers
// never have to branch on configuration.
type VerdictCache struct {
	store   Cache
	enabled bool
}

// NewVerdictCache builds the layered verdict cache from config
func NewVerdictCache(cfg config.CacheConfig) *VerdictCache {
	if !cfg.Enabled {
		return &VerdictCache{}
	}

	return &VerdictCache{
		store:   NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL),
		enabled: true,
	}
}

// Get returns the cached verdict for a claim, if any
func (v *VerdictCache) Get(claimText string) (*model.Verdict, bool) {
	if !v.enabled {
		return nil, false
	}

	key := Key(claimText)
	data, found := v.store.Get(key)
	if !found {
		return nil, false
	}

	var verdict model.Verdict
	if err := json.Unmarshal(data, &verdict); err != nil {
		// A corrupt entry is a miss; drop it so it gets rebuilt
		zap.L().Warn("dropping corrupt cache entry", zap.Error(err))
		_ = v.store.Delete(key)
		return nil, false
	}

	return &verdict, true
}

// Set stores a verdict under its claim's key. Each cache layer applies
// its configured TTL.
func (v *VerdictCache) Set(claimText string, verdict *model.Verdict) error {
	if !v.enabled || verdict == nil {
		return nil
	}

	data, err := json.Marshal(verdict)
	if err != nil {
		return eris.Wrap(err, "marshal verdict")
	}

	return v.store.Set(Key(claimText), data, 0)
}

// Clear drops every cached verdict from both layers
func (v *VerdictCache) Clear() error {
	if !v.enabled {
		return nil
	}
	return v.store.Clear()
}
