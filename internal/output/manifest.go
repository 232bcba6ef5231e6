package output

import (
	"encoding/json"
	"fmt"
	"sort"
)

const manifestVersion = 1

// Category classifies a written file.
type Category string

const (
	CategoryArticle Category = "article"
	CategoryAsset   Category = "asset"
	CategorySection Category = "section"
)

// Record describes one file written during a run.
type Record struct {
	Path     string   `json:"path"`
	Category Category `json:"category"`
	Checksum string   `json:"sha256"`
	Size     int64    `json:"size"`
}

// manifest lists the files a run produced. It carries no timestamps so that
// converting the same archive twice yields identical bytes.
type manifest struct {
	Version int      `json:"version"`
	Files   []Record `json:"files"`
}

func parseManifest(data []byte) (map[string]Record, error) {
	owned := map[string]Record{}
	if len(data) == 0 {
		return owned, nil
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("output: parse manifest: %w", err)
	}
	if m.Version == 0 || m.Version > manifestVersion {
		return nil, fmt.Errorf("output: unsupported manifest version %d", m.Version)
	}
	for _, rec := range m.Files {
		owned[rec.Path] = rec
	}
	return owned, nil
}

func marshalManifest(records map[string]Record) ([]byte, error) {
	ordered := manifest{Version: manifestVersion, Files: make([]Record, 0, len(records))}
	for _, rec := range records {
		ordered.Files = append(ordered.Files, rec)
	}
	sort.Slice(ordered.Files, func(i, j int) bool {
		return ordered.Files[i].Path < ordered.Files[j].Path
	})
	data, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
