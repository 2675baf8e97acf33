package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ManifestJob is one entry in a submitter batch manifest (§6 enrichment
// A8): a single TiledImage or Animation submission. Exactly one of Tile or
// Frames should be set; Frames > 0 selects the animation variant.
type ManifestJob struct {
	Scene  string `yaml:"scene"`
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
	Output string `yaml:"output"`
	Tile   struct {
		Gx uint32 `yaml:"gx"`
		Gy uint32 `yaml:"gy"`
	} `yaml:"tile,omitempty"`
	Frames uint32 `yaml:"frames,omitempty"`
}

// Manifest is the top-level document for `-manifest jobs.yaml`: a list of
// jobs submitted in order against a single server (§4.14 "submitter
// variant" runs its single-job protocol once per manifest entry).
type Manifest struct {
	ServerName string        `yaml:"server_name,omitempty"`
	PortNumber int           `yaml:"port_number,omitempty"`
	Jobs       []ManifestJob `yaml:"jobs"`
}

// IsAnimation reports whether a manifest job should submit as
// SubmitJobAnim rather than SubmitJobBasic.
func (j ManifestJob) IsAnimation() bool { return j.Frames > 0 }

// LoadManifest parses a batch submission file; this is additive to the
// single-job CLI of §6, not a replacement for it.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("config: read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("config: parse manifest %s: %w", path, err)
	}
	return m, nil
}
