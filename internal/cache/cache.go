// Package cache stores induced models keyed by a fingerprint of their training input.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/reginduce/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// fingerprint is everything that determines an induction result
type fingerprint struct {
	Label    string                `json:"label"`
	Engine   model.EngineKind      `json:"engine"`
	Config   model.InductionConfig `json:"config"`
	Examples []model.Example       `json:"examples"`
}

// ModelKey derives a cache key from the training input.
// Example IDs and the Debug flag do not affect the key.
func ModelKey(label string, kind model.EngineKind, cfg model.InductionConfig, examples []model.Example) string {
	cfg.Debug = false
	cfg.HoldoutWords = append([]string(nil), cfg.HoldoutWords...)
	sort.Strings(cfg.HoldoutWords)

	stripped := make([]model.Example, len(examples))
	for i, ex := range examples {
		ex.ID = ""
		stripped[i] = ex
	}

	// Marshal cannot fail for these plain types
	data, _ := json.Marshal(fingerprint{
		Label:    strings.ToLower(label),
		Engine:   kind,
		Config:   cfg,
		Examples: stripped,
	})
	hash := sha256.Sum256(data)
	return "reginduce:v1:" + hex.EncodeToString(hash[:])
}
